package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/plastware/storefront/internal/models"
	"github.com/plastware/storefront/internal/transport"
)

var (
	ErrValidation = errors.New("validation") // 400
	ErrNotFound   = errors.New("not found")  // 404
	ErrForbidden  = errors.New("forbidden")  // 403
	ErrConflict   = errors.New("conflict")   // 409
)

// Reason strips the sentinel prefix so handlers can surface the
// human-readable part of a service error.
func Reason(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrValidation, ErrNotFound, ErrForbidden, ErrConflict} {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}
	return msg
}

const (
	FreeShippingThreshold = 500.0
	FlatShippingFee       = 50.0
)

type Service struct {
	DB *gorm.DB
}

// PlaceOrder turns the caller's stored cart into an order. Everything runs in
// one transaction: stock is taken with a conditional decrement (floor guard at
// zero), the order and its snapshots are created, and the cart is emptied.
// Any failure rolls the whole thing back; there is never a partial order.
func (s *Service) PlaceOrder(ctx context.Context, userID uint, req transport.CreateOrderRequest) (*models.Order, error) {
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.PaymentMethodCOD
	}

	var order *models.Order
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.CartItem
		if err := tx.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("%w: cart is empty", ErrValidation)
		}

		var subtotal float64
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, it := range items {
			var p models.Product
			if err := tx.First(&p, it.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: product %d no longer exists", ErrValidation, it.ProductID)
				}
				return err
			}
			if !p.Active {
				return fmt.Errorf("%w: product %q is not available", ErrValidation, p.Name)
			}

			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", p.ID, it.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", it.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: insufficient stock for %q (available %d)", ErrValidation, p.Name, p.Stock)
			}

			subtotal += p.Price * float64(it.Quantity)
			orderItems = append(orderItems, models.OrderItem{
				ProductID: p.ID,
				Name:      p.Name,
				Price:     p.Price,
				Quantity:  it.Quantity,
				Image:     p.Image,
			})
		}

		shipping := FlatShippingFee
		if subtotal >= FreeShippingThreshold {
			shipping = 0
		}

		number, err := nextOrderNumber(tx, time.Now())
		if err != nil {
			return err
		}

		o := &models.Order{
			OrderNumber: number,
			UserID:      userID,
			Items:       orderItems,
			ShippingAddress: models.ShippingAddress{
				Name:    req.ShippingAddress.Name,
				Phone:   req.ShippingAddress.Phone,
				Address: req.ShippingAddress.Address,
				City:    req.ShippingAddress.City,
				State:   req.ShippingAddress.State,
				Pincode: req.ShippingAddress.Pincode,
			},
			OrderStatus:     models.OrderStatusPending,
			PaymentStatus:   models.PaymentStatusPending,
			PaymentMethod:   paymentMethod,
			Subtotal:        subtotal,
			ShippingCharges: shipping,
			Discount:        0,
			TotalAmount:     subtotal + shipping,
			Notes:           req.Notes,
		}
		if err := tx.Create(o).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		order = o
		return nil
	})

	return order, txErr
}

func (s *Service) ListOrders(ctx context.Context, userID uint, status string, offset, limit int) (int64, []models.Order, error) {
	q := s.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("order_status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := q.Preload("Items").Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func (s *Service) GetOrder(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).Preload("Items").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("%w: order %d belongs to another user", ErrForbidden, orderID)
	}
	return &order, nil
}

// CancelOrder is the customer path: owner-only, and only while the order is
// still on our side of the warehouse door (pending/confirmed/processing).
func (s *Service) CancelOrder(ctx context.Context, userID, orderID uint, reason string) (*models.Order, error) {
	var order models.Order
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
			}
			return err
		}
		if order.UserID != userID {
			return fmt.Errorf("%w: order %d belongs to another user", ErrForbidden, orderID)
		}
		if !CustomerCancellable(order.OrderStatus) {
			return fmt.Errorf("%w: order in status %q cannot be cancelled", ErrValidation, order.OrderStatus)
		}
		return cancelInTx(tx, &order, reason)
	})
	if txErr != nil {
		return nil, txErr
	}
	return &order, nil
}

// cancelInTx flips the order to cancelled and gives every line item's stock
// back, the exact inverse of placement's decrement.
func cancelInTx(tx *gorm.DB, order *models.Order, reason string) error {
	for _, it := range order.Items {
		if err := tx.Model(&models.Product{}).
			Where("id = ?", it.ProductID).
			UpdateColumn("stock", gorm.Expr("stock + ?", it.Quantity)).Error; err != nil {
			return err
		}
	}

	now := time.Now()
	order.OrderStatus = models.OrderStatusCancelled
	order.CancelledAt = &now
	order.CancellationReason = reason
	return tx.Save(order).Error
}

func (s *Service) AdminListOrders(ctx context.Context, status string, userID uint, offset, limit int) (int64, []models.Order, error) {
	q := s.DB.WithContext(ctx).Model(&models.Order{})
	if status != "" {
		q = q.Where("order_status = ?", status)
	}
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := q.Preload("Items").Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// UpdateStatus is the admin path. It consults the same transition table as
// the customer path; leaving the graph requires req.Force and the caller gets
// told the transition was forced so it can be logged and flagged downstream.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, req transport.UpdateOrderStatusRequest) (*models.Order, bool, error) {
	var (
		order  models.Order
		forced bool
	)
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
			}
			return err
		}

		from, to := order.OrderStatus, req.OrderStatus
		if from == to {
			return fmt.Errorf("%w: order already in status %q", ErrConflict, to)
		}
		if !CanTransition(from, to) {
			if !req.Force {
				return fmt.Errorf("%w: transition %s -> %s is not allowed", ErrConflict, from, to)
			}
			forced = true
		}

		now := time.Now()
		switch to {
		case models.OrderStatusShipped:
			order.ShippedAt = &now
			if req.TrackingNumber != "" {
				order.TrackingNumber = req.TrackingNumber
			}
		case models.OrderStatusDelivered:
			order.DeliveredAt = &now
		case models.OrderStatusCompleted:
			if order.PaymentMethod == models.PaymentMethodCOD {
				order.PaymentStatus = models.PaymentStatusPaid
			}
		case models.OrderStatusCancelled:
			return cancelInTx(tx, &order, req.CancellationReason)
		}

		order.OrderStatus = to
		return tx.Save(&order).Error
	})
	if txErr != nil {
		return nil, false, txErr
	}
	return &order, forced, nil
}

type Stats struct {
	TotalOrders    int64            `json:"total_orders"`
	CountsByStatus map[string]int64 `json:"counts_by_status"`
	TotalRevenue   float64          `json:"total_revenue"`
}

// OrderStats aggregates counters for the admin panel. Revenue only counts
// orders that actually went out the door (shipped and beyond, not cancelled).
func (s *Service) OrderStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{CountsByStatus: map[string]int64{}}

	if err := s.DB.WithContext(ctx).Model(&models.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		OrderStatus string
		Count       int64
	}
	if err := s.DB.WithContext(ctx).Model(&models.Order{}).
		Select("order_status, COUNT(*) AS count").
		Group("order_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.CountsByStatus[r.OrderStatus] = r.Count
	}

	if err := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("order_status IN ?", []string{models.OrderStatusShipped, models.OrderStatusDelivered, models.OrderStatusCompleted}).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&stats.TotalRevenue).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *Service) UserEmail(ctx context.Context, userID uint) (string, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		return "", err
	}
	return user.Email, nil
}
