package cart

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/plastware/storefront/internal/logging"
	authmw "github.com/plastware/storefront/internal/middleware/auth"
	"github.com/plastware/storefront/internal/models"
	"github.com/plastware/storefront/internal/mykafka"
	"github.com/plastware/storefront/internal/transport"
	"github.com/plastware/storefront/internal/util"
	"github.com/plastware/storefront/internal/validate"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *CartHandler) GetCart(c echo.Context) error {
	p, err := authmw.PrincipalFrom(c)
	if err != nil {
		return err
	}

	items, err := h.loadCart(c, p.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, cartResponse(items))
}

func (h *CartHandler) AddItem(c echo.Context) error {
	p, err := authmw.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var req transport.AddCartItemRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !product.Active {
		return echo.NewHTTPError(http.StatusBadRequest, "product is not available")
	}

	var item models.CartItem
	tx := h.DB.Where("user_id = ? AND product_id = ?", p.UserID, req.ProductID).First(&item)
	if tx.Error == nil {
		item.Quantity += req.Quantity
		if err := h.DB.Save(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	} else if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		item = models.CartItem{
			UserID:    p.UserID,
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			Price:     product.Price,
		}
		if err := h.DB.Create(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	} else {
		return echo.NewHTTPError(http.StatusInternalServerError, tx.Error.Error())
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"userID":    p.UserID,
		"productID": req.ProductID,
		"quantity":  item.Quantity,
	})

	items, err := h.loadCart(c, p.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cartResponse(items))
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	p, err := authmw.PrincipalFrom(c)
	if err != nil {
		return err
	}

	productID := util.ParseIntDefault(c.Param("productID"), 0)
	if productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var req transport.UpdateCartItemRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}

	var item models.CartItem
	if err := h.DB.Where("user_id = ? AND product_id = ?", p.UserID, productID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	item.Quantity = req.Quantity
	if err := h.DB.Save(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_updated",
		"userID":    p.UserID,
		"productID": productID,
		"quantity":  item.Quantity,
	})

	items, err := h.loadCart(c, p.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cartResponse(items))
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	p, err := authmw.PrincipalFrom(c)
	if err != nil {
		return err
	}

	productID := util.ParseIntDefault(c.Param("productID"), 0)
	if productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	res := h.DB.Where("user_id = ? AND product_id = ?", p.UserID, productID).Delete(&models.CartItem{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "item not found")
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_removed",
		"userID":    p.UserID,
		"productID": productID,
	})

	items, err := h.loadCart(c, p.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cartResponse(items))
}

func (h *CartHandler) Clear(c echo.Context) error {
	p, err := authmw.PrincipalFrom(c)
	if err != nil {
		return err
	}

	if err := h.DB.Where("user_id = ?", p.UserID).Delete(&models.CartItem{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":   "cart_cleared",
		"userID": p.UserID,
	})

	return c.JSON(http.StatusOK, cartResponse(nil))
}

func (h *CartHandler) loadCart(c echo.Context, userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := h.DB.WithContext(c.Request().Context()).
		Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("cart load failed", "user_id", userID, "error", err)
		return nil, err
	}
	return items, nil
}
