package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/plastware/storefront/internal/handlers/order"
	"github.com/plastware/storefront/internal/logging"
	"github.com/plastware/storefront/internal/models"
	"github.com/plastware/storefront/internal/transport"
)

type AdminHandler struct {
	DB     *gorm.DB
	Orders *order.Service
}

type bestSeller struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Sold      int64  `json:"sold"`
}

type monthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
	Orders  int64   `json:"orders"`
}

// Dashboard recomputes every counter on each request; the admin frontend is
// expected to cache on its side.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.dashboard")

	var userCount, productCount, reviewPending int64
	if err := h.DB.WithContext(ctx).Model(&models.User{}).Count(&userCount).Error; err != nil {
		l.Error("dashboard_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.DB.WithContext(ctx).Model(&models.Product{}).Where("active = ?", true).Count(&productCount).Error; err != nil {
		l.Error("dashboard_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.DB.WithContext(ctx).Model(&models.Review{}).Where("approved = ?", false).Count(&reviewPending).Error; err != nil {
		l.Error("dashboard_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	orderStats, err := h.Orders.OrderStats(ctx)
	if err != nil {
		l.Error("dashboard_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	monthly, err := h.monthlyRevenue(ctx)
	if err != nil {
		l.Error("dashboard_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	sellers, err := h.bestSellers(ctx, 5)
	if err != nil {
		l.Error("dashboard_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, transport.OK("", map[string]any{
		"users":           userCount,
		"products":        productCount,
		"pending_reviews": reviewPending,
		"orders":          orderStats,
		"monthly_revenue": monthly,
		"best_sellers":    sellers,
	}))
}

// monthlyRevenue buckets the last twelve months in Go instead of leaning on
// dialect-specific date functions, so the same query runs on postgres and the
// sqlite test database.
func (h *AdminHandler) monthlyRevenue(ctx context.Context) ([]monthlyRevenue, error) {
	now := time.Now()
	since := now.AddDate(-1, 0, 0)

	var rows []struct {
		CreatedAt   time.Time
		TotalAmount float64
	}
	if err := h.DB.WithContext(ctx).Model(&models.Order{}).
		Where("created_at >= ? AND order_status IN ?", since,
			[]string{models.OrderStatusShipped, models.OrderStatusDelivered, models.OrderStatusCompleted}).
		Select("created_at, total_amount").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	buckets := map[string]*monthlyRevenue{}
	for _, r := range rows {
		key := r.CreatedAt.Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &monthlyRevenue{Month: key}
			buckets[key] = b
		}
		b.Revenue += r.TotalAmount
		b.Orders++
	}

	return monthlySeries(buckets, since, now), nil
}

// monthlySeries emits the buckets in calendar order. It walks month starts,
// never raw dates: stepping Aug 31 by one month lands on Oct 1 and would skip
// September entirely.
func monthlySeries(buckets map[string]*monthlyRevenue, since, now time.Time) []monthlyRevenue {
	out := make([]monthlyRevenue, 0, len(buckets))
	first := time.Date(since.Year(), since.Month(), 1, 0, 0, 0, 0, time.UTC)
	for m := first; !m.After(now); m = m.AddDate(0, 1, 0) {
		if b, ok := buckets[m.Format("2006-01")]; ok {
			out = append(out, *b)
		}
	}
	return out
}

func (h *AdminHandler) bestSellers(ctx context.Context, limit int) ([]bestSeller, error) {
	var sellers []bestSeller
	err := h.DB.WithContext(ctx).
		Table("order_items").
		Select("order_items.product_id, order_items.name, SUM(order_items.quantity) AS sold").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.order_status <> ?", models.OrderStatusCancelled).
		Group("order_items.product_id, order_items.name").
		Order("sold DESC").
		Limit(limit).
		Scan(&sellers).Error
	return sellers, err
}
