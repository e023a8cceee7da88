package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/plastware/storefront/internal/mail"
	"github.com/plastware/storefront/internal/models"
	"github.com/plastware/storefront/internal/transport"
	"github.com/plastware/storefront/internal/util"
	"github.com/plastware/storefront/internal/validate"
)

type ContactHandler struct {
	DB   *gorm.DB
	Mail *mail.Dispatcher
}

func (h *ContactHandler) Submit(c echo.Context) error {
	var req transport.ContactRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}

	msg := models.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Subject,
		Message: req.Message,
	}
	if err := h.DB.Create(&msg).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	subject, html := mail.ContactAcknowledgement(&msg)
	h.Mail.Enqueue(msg.Email, subject, html)

	return c.JSON(http.StatusCreated, transport.OK("message received", map[string]any{"id": msg.ID}))
}

func (h *ContactHandler) AdminList(c echo.Context) error {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.ContactMessage{})
	if c.QueryParam("resolved") == "false" {
		q = q.Where("resolved = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var messages []models.ContactMessage
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&messages).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": messages,
		"meta": map[string]any{"page": page, "size": limit, "total": total},
	})
}

func (h *ContactHandler) AdminResolve(c echo.Context) error {
	id := util.ParseIntDefault(c.Param("id"), 0)
	if id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message id")
	}

	var msg models.ContactMessage
	if err := h.DB.First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "message not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	msg.Resolved = true
	if err := h.DB.Save(&msg).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, msg)
}
