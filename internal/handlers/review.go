package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/plastware/storefront/internal/logging"
	authmw "github.com/plastware/storefront/internal/middleware/auth"
	"github.com/plastware/storefront/internal/models"
	"github.com/plastware/storefront/internal/transport"
	"github.com/plastware/storefront/internal/util"
	"github.com/plastware/storefront/internal/validate"
)

type ReviewHandler struct {
	DB *gorm.DB
}

func (h *ReviewHandler) Create(c echo.Context) error {
	p, err := authmw.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var req transport.CreateReviewRequest
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

	review := models.Review{
		UserID:    p.UserID,
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := h.DB.Create(&review).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "you have already reviewed this product")
	}

	h.recomputeRating(c.Request().Context(), review.ProductID)

	return c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) Update(c echo.Context) error {
	p, err := authmw.PrincipalFrom(c)
	if err != nil {
		return err
	}

	id := util.ParseIntDefault(c.Param("id"), 0)
	if id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid review id")
	}

	var req transport.UpdateReviewRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}

	var review models.Review
	if err := h.DB.Where("id = ? AND user_id = ?", id, p.UserID).First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "review not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if req.Rating != nil {
		review.Rating = *req.Rating
	}
	if req.Comment != nil {
		review.Comment = *req.Comment
	}
	// An edited review goes back into the moderation queue.
	review.Approved = false

	if err := h.DB.Save(&review).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.recomputeRating(c.Request().Context(), review.ProductID)

	return c.JSON(http.StatusOK, review)
}

func (h *ReviewHandler) Delete(c echo.Context) error {
	p, err := authmw.PrincipalFrom(c)
	if err != nil {
		return err
	}

	id := util.ParseIntDefault(c.Param("id"), 0)
	if id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid review id")
	}

	var review models.Review
	q := h.DB.Where("id = ?", id)
	if !p.IsAdmin() {
		q = q.Where("user_id = ?", p.UserID)
	}
	if err := q.First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "review not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.DB.Delete(&review).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.recomputeRating(c.Request().Context(), review.ProductID)

	return c.NoContent(http.StatusNoContent)
}

func (h *ReviewHandler) ListForProduct(c echo.Context) error {
	productID := util.ParseIntDefault(c.Param("id"), 0)
	if productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Review{}).Where("product_id = ? AND approved = ?", productID, true)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var reviews []models.Review
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&reviews).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": reviews,
		"meta": map[string]any{"page": page, "size": limit, "total": total},
	})
}

func (h *ReviewHandler) Approve(c echo.Context) error {
	id := util.ParseIntDefault(c.Param("id"), 0)
	if id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid review id")
	}

	var review models.Review
	if err := h.DB.First(&review, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "review not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	review.Approved = true
	if err := h.DB.Save(&review).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.recomputeRating(c.Request().Context(), review.ProductID)

	return c.JSON(http.StatusOK, review)
}

// recomputeRating does a full recomputation over approved reviews and
// overwrites the stored aggregate. Failure is logged and swallowed; it never
// fails the review mutation that triggered it.
func (h *ReviewHandler) recomputeRating(ctx context.Context, productID uint) {
	var agg struct {
		Avg   float64
		Count int64
	}
	err := h.DB.WithContext(ctx).Model(&models.Review{}).
		Where("product_id = ? AND approved = ?", productID, true).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Scan(&agg).Error
	if err != nil {
		logging.FromContext(ctx).Error("rating aggregation failed", "product_id", productID, "error", err)
		return
	}

	avg := math.Round(agg.Avg*10) / 10
	if agg.Count == 0 {
		avg = 0
	}

	if err := h.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{"rating_avg": avg, "rating_count": agg.Count}).Error; err != nil {
		logging.FromContext(ctx).Error("rating aggregation write failed", "product_id", productID, "error", err)
	}
}
