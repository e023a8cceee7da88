package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/plastware/storefront/internal/logging"
	"github.com/plastware/storefront/internal/models"
	"github.com/plastware/storefront/internal/transport"
)

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(event["userID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

// cartResponse derives the totals on every read. They are never stored, so
// they can never drift from the line items.
func cartResponse(items []models.CartItem) transport.Envelope {
	if items == nil {
		items = []models.CartItem{}
	}
	var (
		count uint
		sum   float64
	)
	for _, it := range items {
		count += it.Quantity
		sum += it.Price * float64(it.Quantity)
	}
	return transport.OK("", map[string]any{
		"items":       items,
		"total_items": count,
		"total_price": sum,
	})
}
