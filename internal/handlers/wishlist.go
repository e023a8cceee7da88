package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	authmw "github.com/plastware/storefront/internal/middleware/auth"
	"github.com/plastware/storefront/internal/models"
	"github.com/plastware/storefront/internal/transport"
	"github.com/plastware/storefront/internal/util"
	"github.com/plastware/storefront/internal/validate"
)

type WishlistHandler struct {
	DB *gorm.DB
}

func (h *WishlistHandler) List(c echo.Context) error {
	p, err := authmw.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var productIDs []uint
	if err := h.DB.Model(&models.WishlistItem{}).
		Where("user_id = ?", p.UserID).
		Pluck("product_id", &productIDs).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	products := []models.Product{}
	if len(productIDs) > 0 {
		if err := h.DB.Where("id IN ?", productIDs).Find(&products).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, transport.OK("", map[string]any{"products": products}))
}

func (h *WishlistHandler) Add(c echo.Context) error {
	p, err := authmw.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var req transport.WishlistRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	item := models.WishlistItem{UserID: p.UserID, ProductID: req.ProductID}
	if err := h.DB.Create(&item).Error; err != nil {
		// Unique index: already wishlisted is not an error worth surfacing.
		return c.JSON(http.StatusOK, transport.OK("already in wishlist", nil))
	}

	return c.JSON(http.StatusCreated, transport.OK("added to wishlist", nil))
}

func (h *WishlistHandler) Remove(c echo.Context) error {
	p, err := authmw.PrincipalFrom(c)
	if err != nil {
		return err
	}

	productID := util.ParseIntDefault(c.Param("productID"), 0)
	if productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	res := h.DB.Where("user_id = ? AND product_id = ?", p.UserID, productID).Delete(&models.WishlistItem{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "item not found")
	}

	return c.NoContent(http.StatusNoContent)
}
