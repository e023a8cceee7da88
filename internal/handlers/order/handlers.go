package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/plastware/storefront/internal/logging"
	"github.com/plastware/storefront/internal/mail"
	authmw "github.com/plastware/storefront/internal/middleware/auth"
	"github.com/plastware/storefront/internal/models"
	"github.com/plastware/storefront/internal/mykafka"
	"github.com/plastware/storefront/internal/transport"
	"github.com/plastware/storefront/internal/util"
	"github.com/plastware/storefront/internal/validate"
)

type Handler struct {
	Svc      *Service
	Producer *mykafka.Producer
	Mail     *mail.Dispatcher
}

func (h *Handler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["userID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func (h *Handler) notify(c echo.Context, userID uint, o *models.Order, build func(*models.Order) (string, string)) {
	email, err := h.Svc.UserEmail(c.Request().Context(), userID)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("user email lookup failed", "user_id", userID, "error", err)
		return
	}
	subject, html := build(o)
	h.Mail.Enqueue(email, subject, html)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, Reason(err))
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, Reason(err))
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, Reason(err))
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusBadRequest, Reason(err))
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	p, err := authmw.PrincipalFrom(c)
	if err != nil {
		return err
	}

	var req transport.CreateOrderRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "invalid body", "error", err)
		return err
	}

	order, err := h.Svc.PlaceOrder(ctx, p.UserID, req)
	if err != nil {
		l.Warn("create_order_error", "reason", Reason(err), "error", err)
		return httpError(err)
	}

	h.publish(c, map[string]any{
		"type":         "order_created",
		"userID":       p.UserID,
		"orderID":      order.ID,
		"order_number": order.OrderNumber,
		"total":        order.TotalAmount,
	})
	h.notify(c, p.UserID, order, mail.OrderConfirmation)

	l.Info("create_order_success", "order_number", order.OrderNumber, "total", order.TotalAmount)
	return c.JSON(http.StatusCreated, transport.OK("order placed", map[string]any{"order": order}))
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	p, err := authmw.PrincipalFrom(c)
	if err != nil {
		return err
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	status := c.QueryParam("status")
	if status != "" && !ValidStatus(status) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status filter")
	}

	total, orders, err := h.Svc.ListOrders(ctx, p.UserID, status, offset, limit)
	if err != nil {
		l.Error("list_orders_error", "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, transport.OK("", map[string]any{
		"orders": orders,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
		},
	}))
}

func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	p, err := authmw.PrincipalFrom(c)
	if err != nil {
		return err
	}

	id := util.ParseIntDefault(c.Param("id"), 0)
	if id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	order, err := h.Svc.GetOrder(ctx, p.UserID, uint(id))
	if err != nil {
		l.Warn("get_order_error", "order_id", id, "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, transport.OK("", map[string]any{"order": order}))
}

func (h *Handler) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel")

	p, err := authmw.PrincipalFrom(c)
	if err != nil {
		return err
	}

	id := util.ParseIntDefault(c.Param("id"), 0)
	if id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var req transport.CancelOrderRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}

	order, err := h.Svc.CancelOrder(ctx, p.UserID, uint(id), req.Reason)
	if err != nil {
		l.Warn("cancel_order_error", "order_id", id, "reason", Reason(err), "error", err)
		return httpError(err)
	}

	h.publish(c, map[string]any{
		"type":         "order_cancelled",
		"userID":       p.UserID,
		"orderID":      order.ID,
		"order_number": order.OrderNumber,
		"reason":       req.Reason,
	})

	l.Info("cancel_order_success", "order_number", order.OrderNumber)
	return c.JSON(http.StatusOK, transport.OK("order cancelled", map[string]any{"order": order}))
}

func (h *Handler) AdminList(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.admin_list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	status := c.QueryParam("status")
	if status != "" && !ValidStatus(status) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status filter")
	}
	userID := util.ParseIntDefault(c.QueryParam("user"), 0)

	total, orders, err := h.Svc.AdminListOrders(ctx, status, uint(userID), offset, limit)
	if err != nil {
		l.Error("admin_list_orders_error", "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, transport.OK("", map[string]any{
		"orders": orders,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
		},
	}))
}

func (h *Handler) AdminUpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.admin_update_status")

	id := util.ParseIntDefault(c.Param("id"), 0)
	if id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var req transport.UpdateOrderStatusRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		l.Warn("update_status_error", "status", 400, "reason", "invalid body", "error", err)
		return err
	}

	order, forced, err := h.Svc.UpdateStatus(ctx, uint(id), req)
	if err != nil {
		l.Warn("update_status_error", "order_id", id, "reason", Reason(err), "error", err)
		return httpError(err)
	}

	if forced {
		l.Warn("order_status_forced", "order_number", order.OrderNumber, "to", req.OrderStatus)
	}

	h.publish(c, map[string]any{
		"type":         "order_status_updated",
		"userID":       order.UserID,
		"orderID":      order.ID,
		"order_number": order.OrderNumber,
		"status":       order.OrderStatus,
		"forced":       forced,
	})

	switch order.OrderStatus {
	case models.OrderStatusShipped:
		h.notify(c, order.UserID, order, mail.OrderShipped)
	case models.OrderStatusDelivered:
		h.notify(c, order.UserID, order, mail.OrderDelivered)
	}

	l.Info("update_status_success", "order_number", order.OrderNumber, "status", order.OrderStatus, "forced", forced)
	return c.JSON(http.StatusOK, transport.OK("order status updated", map[string]any{"order": order}))
}

func (h *Handler) AdminStats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.admin_stats")

	stats, err := h.Svc.OrderStats(ctx)
	if err != nil {
		l.Error("order_stats_error", "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, transport.OK("", map[string]any{"stats": stats}))
}
