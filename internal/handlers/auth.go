package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/plastware/storefront/internal/hash"
	"github.com/plastware/storefront/internal/logging"
	"github.com/plastware/storefront/internal/models"
	"github.com/plastware/storefront/internal/mykafka"
	"github.com/plastware/storefront/internal/tokens"
	"github.com/plastware/storefront/internal/transport"
	"github.com/plastware/storefront/internal/validate"
)

type AuthHandler struct {
	DB            *gorm.DB
	JWTSecret     []byte
	RefreshSecret []byte
	Producer      *mykafka.Producer
}

func (h *AuthHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", fmt.Sprint(event["userID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req transport.RegisterRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}

	var existing models.User
	err := h.DB.Where("username = ? OR email = ?", req.Username, req.Email).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "user already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	passwordHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         "user",
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusCreated, transport.OK("registered", map[string]any{"user": user}))
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req transport.LoginRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}

	var user models.User
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	accessToken, accessExp, err := tokens.NewAccessToken(user.ID, user.Role, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create access token")
	}

	refreshToken, refreshExp, err := tokens.NewRefreshToken(user.ID, user.Role, h.RefreshSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create refresh token")
	}

	refreshModel := models.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: refreshExp.Unix(),
	}
	if err := h.DB.Create(&refreshModel).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.SetCookie(tokens.CreateCookie("accessToken", accessToken, "/", accessExp))
	c.SetCookie(tokens.CreateCookie("refreshToken", refreshToken, "/", refreshExp))

	h.publish(c, map[string]any{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusOK, transport.OK("logged in", map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"is_admin":      user.Role == "admin",
	}))
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	refreshCookie, err := c.Cookie("refreshToken")
	if err != nil || refreshCookie.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	claims, err := tokens.RefreshClaimsFromToken(refreshCookie.Value, h.RefreshSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}

	var stored models.RefreshToken
	if err := h.DB.Where("token = ?", refreshCookie.Value).First(&stored).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unknown refresh token")
	}
	if stored.Revoked || stored.ExpiresAt < time.Now().Unix() {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token expired or revoked")
	}

	role, _ := claims["role"].(string)

	accessToken, accessExp, err := tokens.NewAccessToken(stored.UserID, role, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create access token")
	}

	newRefresh, refreshExp, err := tokens.NewRefreshToken(stored.UserID, role, h.RefreshSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create refresh token")
	}

	// Rotation: the old token is revoked the moment the new one is stored.
	if err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&stored).Update("revoked", true).Error; err != nil {
			return err
		}
		return tx.Create(&models.RefreshToken{
			Token:     newRefresh,
			UserID:    stored.UserID,
			Role:      role,
			ExpiresAt: refreshExp.Unix(),
		}).Error
	}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.SetCookie(tokens.CreateCookie("accessToken", accessToken, "/", accessExp))
	c.SetCookie(tokens.CreateCookie("refreshToken", newRefresh, "/", refreshExp))

	return c.JSON(http.StatusOK, transport.OK("refreshed", map[string]any{
		"access_token":  accessToken,
		"refresh_token": newRefresh,
	}))
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if refreshCookie, err := c.Cookie("refreshToken"); err == nil && refreshCookie.Value != "" {
		if err := h.DB.Model(&models.RefreshToken{}).
			Where("token = ?", refreshCookie.Value).
			Update("revoked", true).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	c.SetCookie(tokens.DeleteCookie("accessToken", "/"))
	c.SetCookie(tokens.DeleteCookie("refreshToken", "/"))

	return c.JSON(http.StatusOK, transport.OK("logged out", nil))
}
