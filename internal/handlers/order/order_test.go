package order

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/plastware/storefront/internal/config"
	"github.com/plastware/storefront/internal/mail"
	authmw "github.com/plastware/storefront/internal/middleware/auth"
	"github.com/plastware/storefront/internal/models"
	"github.com/plastware/storefront/internal/mykafka"
	"github.com/plastware/storefront/internal/transport"
	"github.com/plastware/storefront/internal/validate"
)

type nopSender struct{}

func (nopSender) Send(ctx context.Context, to, subject, html string) error { return nil }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	T   *testing.T
	E   *echo.Echo
	DB  *gorm.DB
	Svc *Service
	H   *Handler
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	e := echo.New()
	e.Validator = validate.New()

	svc := &Service{DB: db}
	h := &Handler{
		Svc:      svc,
		Producer: &mykafka.Producer{},
		Mail:     mail.NewDispatcher(nopSender{}, newTestLogger()),
	}
	t.Cleanup(h.Mail.Close)

	env := &testEnv{T: t, E: e, DB: db, Svc: svc, H: h}
	env.DB.Create(&models.User{Username: "buyer", Email: "buyer@example.com", PasswordHash: "x", Role: "user"})
	return env
}

func (env *testEnv) doJSON(method, target string, body any) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	authmw.SetPrincipal(c, authmw.Principal{UserID: 1, Role: "user"})
	return rec, c
}

func validAddress() transport.ShippingAddressDTO {
	return transport.ShippingAddressDTO{
		Name:    "Asha Patel",
		Phone:   "9876543210",
		Address: "14 Industrial Estate",
		City:    "Mumbai",
		State:   "Maharashtra",
		Pincode: "400001",
	}
}

type orderEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Order models.Order `json:"order"`
	} `json:"data"`
}

func TestPlaceOrderBelowFreeShippingThreshold(t *testing.T) {
	env := newTestEnv(t)

	env.DB.Create(&models.Product{Name: "Storage Crate 40L", Description: "d", Price: 200, Stock: 5, Active: true})
	env.DB.Create(&models.CartItem{UserID: 1, ProductID: 1, Quantity: 2, Price: 200})

	rec, c := env.doJSON(http.MethodPost, "/api/orders", map[string]any{
		"shipping_address": validAddress(),
	})
	require.NoError(t, env.H.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp orderEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	order := resp.Data.Order
	require.Equal(t, float64(400), order.Subtotal)
	require.Equal(t, FlatShippingFee, order.ShippingCharges)
	require.Equal(t, float64(450), order.TotalAmount)
	require.Equal(t, order.Subtotal+order.ShippingCharges-order.Discount, order.TotalAmount)
	require.Equal(t, models.OrderStatusPending, order.OrderStatus)
	require.Equal(t, models.PaymentMethodCOD, order.PaymentMethod)
	require.Regexp(t, regexp.MustCompile(`^PW-\d{8}-\d{3}$`), order.OrderNumber)
	require.Len(t, order.Items, 1)
	require.Equal(t, "Storage Crate 40L", order.Items[0].Name)

	var product models.Product
	require.NoError(t, env.DB.First(&product, 1).Error)
	require.Equal(t, 3, product.Stock)

	var remaining int64
	require.NoError(t, env.DB.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&remaining).Error)
	require.Zero(t, remaining)
}

func TestPlaceOrderFreeShipping(t *testing.T) {
	env := newTestEnv(t)

	env.DB.Create(&models.Product{Name: "Pallet", Description: "d", Price: 300, Stock: 10, Active: true})
	env.DB.Create(&models.CartItem{UserID: 1, ProductID: 1, Quantity: 2, Price: 300})

	order, err := env.Svc.PlaceOrder(context.Background(), 1, transport.CreateOrderRequest{ShippingAddress: validAddress()})
	require.NoError(t, err)
	require.Equal(t, float64(600), order.Subtotal)
	require.Zero(t, order.ShippingCharges)
	require.Equal(t, float64(600), order.TotalAmount)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSON(http.MethodPost, "/api/orders", map[string]any{
		"shipping_address": validAddress(),
	})
	err := env.H.Create(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)
	require.Contains(t, he.Message, "cart is empty")
}

func TestPlaceOrderInactiveProduct(t *testing.T) {
	env := newTestEnv(t)

	env.DB.Create(&models.Product{Name: "Discontinued Bin", Description: "d", Price: 100, Stock: 5, Active: false})
	env.DB.Create(&models.CartItem{UserID: 1, ProductID: 1, Quantity: 1, Price: 100})

	_, err := env.Svc.PlaceOrder(context.Background(), 1, transport.CreateOrderRequest{ShippingAddress: validAddress()})
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "Discontinued Bin")
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	env := newTestEnv(t)

	env.DB.Create(&models.Product{Name: "Bucket 10L", Description: "d", Price: 50, Stock: 10, Active: true})
	env.DB.Create(&models.Product{Name: "Lid 10L", Description: "d", Price: 20, Stock: 1, Active: true})
	env.DB.Create(&models.CartItem{UserID: 1, ProductID: 1, Quantity: 2, Price: 50})
	env.DB.Create(&models.CartItem{UserID: 1, ProductID: 2, Quantity: 3, Price: 20})

	_, err := env.Svc.PlaceOrder(context.Background(), 1, transport.CreateOrderRequest{ShippingAddress: validAddress()})
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "Lid 10L")
	require.Contains(t, err.Error(), "available 1")

	// The first product's decrement must have been rolled back with the rest.
	var bucket models.Product
	require.NoError(t, env.DB.First(&bucket, 1).Error)
	require.Equal(t, 10, bucket.Stock)

	var items int64
	require.NoError(t, env.DB.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&items).Error)
	require.Equal(t, int64(2), items)
}

func TestPlaceOrderStockFloorGuard(t *testing.T) {
	env := newTestEnv(t)

	env.DB.Create(&models.Product{Name: "Last Crate", Description: "d", Price: 100, Stock: 1, Active: true})

	env.DB.Create(&models.CartItem{UserID: 1, ProductID: 1, Quantity: 1, Price: 100})
	first, err := env.Svc.PlaceOrder(context.Background(), 1, transport.CreateOrderRequest{ShippingAddress: validAddress()})
	require.NoError(t, err)
	require.NotNil(t, first)

	var product models.Product
	require.NoError(t, env.DB.First(&product, 1).Error)
	require.Zero(t, product.Stock)

	env.DB.Create(&models.CartItem{UserID: 1, ProductID: 1, Quantity: 1, Price: 100})
	_, err = env.Svc.PlaceOrder(context.Background(), 1, transport.CreateOrderRequest{ShippingAddress: validAddress()})
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, env.DB.First(&product, 1).Error)
	require.Zero(t, product.Stock)
}

func TestOrderNumberFormat(t *testing.T) {
	require.Equal(t, "PW-20260831-007", formatOrderNumber("20260831", 7))
	require.Equal(t, "PW-20260831-999", formatOrderNumber("20260831", 999))
	// Past three digits the sequence widens rather than rolling over.
	require.Equal(t, "PW-20260831-1000", formatOrderNumber("20260831", 1000))
}

func TestOrderNumbersAreSequential(t *testing.T) {
	env := newTestEnv(t)

	env.DB.Create(&models.Product{Name: "Crate", Description: "d", Price: 100, Stock: 10, Active: true})

	var numbers []string
	for i := 0; i < 3; i++ {
		env.DB.Create(&models.CartItem{UserID: 1, ProductID: 1, Quantity: 1, Price: 100})
		order, err := env.Svc.PlaceOrder(context.Background(), 1, transport.CreateOrderRequest{ShippingAddress: validAddress()})
		require.NoError(t, err)
		numbers = append(numbers, order.OrderNumber)
	}

	require.Len(t, numbers, 3)
	seen := map[string]bool{}
	for _, n := range numbers {
		require.Regexp(t, regexp.MustCompile(`^PW-\d{8}-\d{3}$`), n)
		require.False(t, seen[n], "order number %s issued twice", n)
		seen[n] = true
	}
}

func placeTestOrder(t *testing.T, env *testEnv, qty uint) *models.Order {
	t.Helper()
	env.DB.Create(&models.CartItem{UserID: 1, ProductID: 1, Quantity: qty, Price: 100})
	order, err := env.Svc.PlaceOrder(context.Background(), 1, transport.CreateOrderRequest{ShippingAddress: validAddress()})
	require.NoError(t, err)
	return order
}

func TestCancelRestoresStock(t *testing.T) {
	env := newTestEnv(t)

	env.DB.Create(&models.Product{Name: "Crate", Description: "d", Price: 100, Stock: 5, Active: true})
	order := placeTestOrder(t, env, 2)

	var product models.Product
	require.NoError(t, env.DB.First(&product, 1).Error)
	require.Equal(t, 3, product.Stock)

	cancelled, err := env.Svc.CancelOrder(context.Background(), 1, order.ID, "changed my mind")
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusCancelled, cancelled.OrderStatus)
	require.NotNil(t, cancelled.CancelledAt)
	require.Equal(t, "changed my mind", cancelled.CancellationReason)

	require.NoError(t, env.DB.First(&product, 1).Error)
	require.Equal(t, 5, product.Stock)
}

func TestCancelRejectedOnceShipped(t *testing.T) {
	env := newTestEnv(t)

	env.DB.Create(&models.Product{Name: "Crate", Description: "d", Price: 100, Stock: 5, Active: true})
	order := placeTestOrder(t, env, 1)

	require.NoError(t, env.DB.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("order_status", models.OrderStatusShipped).Error)

	_, err := env.Svc.CancelOrder(context.Background(), 1, order.ID, "")
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "shipped")
}

func TestCancelTwiceRejected(t *testing.T) {
	env := newTestEnv(t)

	env.DB.Create(&models.Product{Name: "Crate", Description: "d", Price: 100, Stock: 5, Active: true})
	order := placeTestOrder(t, env, 1)

	_, err := env.Svc.CancelOrder(context.Background(), 1, order.ID, "first")
	require.NoError(t, err)

	_, err = env.Svc.CancelOrder(context.Background(), 1, order.ID, "second")
	require.ErrorIs(t, err, ErrValidation)

	// Stock must only be restored once.
	var product models.Product
	require.NoError(t, env.DB.First(&product, 1).Error)
	require.Equal(t, 5, product.Stock)
}

func TestCancelForeignOrderForbidden(t *testing.T) {
	env := newTestEnv(t)

	env.DB.Create(&models.User{Username: "other", Email: "other@example.com", PasswordHash: "x", Role: "user"})
	env.DB.Create(&models.Product{Name: "Crate", Description: "d", Price: 100, Stock: 5, Active: true})
	order := placeTestOrder(t, env, 1)

	_, err := env.Svc.CancelOrder(context.Background(), 2, order.ID, "")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestAdminStatusLifecycle(t *testing.T) {
	env := newTestEnv(t)

	env.DB.Create(&models.Product{Name: "Crate", Description: "d", Price: 100, Stock: 5, Active: true})
	placed := placeTestOrder(t, env, 1)

	for _, status := range []string{models.OrderStatusConfirmed, models.OrderStatusProcessing} {
		_, forced, err := env.Svc.UpdateStatus(context.Background(), placed.ID, transport.UpdateOrderStatusRequest{OrderStatus: status})
		require.NoError(t, err)
		require.False(t, forced)
	}

	shipped, forced, err := env.Svc.UpdateStatus(context.Background(), placed.ID, transport.UpdateOrderStatusRequest{
		OrderStatus:    models.OrderStatusShipped,
		TrackingNumber: "TRK-991",
	})
	require.NoError(t, err)
	require.False(t, forced)
	require.NotNil(t, shipped.ShippedAt)
	require.Equal(t, "TRK-991", shipped.TrackingNumber)

	delivered, _, err := env.Svc.UpdateStatus(context.Background(), placed.ID, transport.UpdateOrderStatusRequest{OrderStatus: models.OrderStatusDelivered})
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)

	completed, _, err := env.Svc.UpdateStatus(context.Background(), placed.ID, transport.UpdateOrderStatusRequest{OrderStatus: models.OrderStatusCompleted})
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPaid, completed.PaymentStatus)
}

func TestAdminStatusJumpRejectedWithoutForce(t *testing.T) {
	env := newTestEnv(t)

	env.DB.Create(&models.Product{Name: "Crate", Description: "d", Price: 100, Stock: 5, Active: true})
	placed := placeTestOrder(t, env, 1)

	_, _, err := env.Svc.UpdateStatus(context.Background(), placed.ID, transport.UpdateOrderStatusRequest{OrderStatus: models.OrderStatusDelivered})
	require.ErrorIs(t, err, ErrConflict)

	forcedOrder, forced, err := env.Svc.UpdateStatus(context.Background(), placed.ID, transport.UpdateOrderStatusRequest{
		OrderStatus: models.OrderStatusDelivered,
		Force:       true,
	})
	require.NoError(t, err)
	require.True(t, forced)
	require.Equal(t, models.OrderStatusDelivered, forcedOrder.OrderStatus)
}

func TestAdminCancelRestoresStock(t *testing.T) {
	env := newTestEnv(t)

	env.DB.Create(&models.Product{Name: "Crate", Description: "d", Price: 100, Stock: 5, Active: true})
	placed := placeTestOrder(t, env, 3)

	cancelled, forced, err := env.Svc.UpdateStatus(context.Background(), placed.ID, transport.UpdateOrderStatusRequest{
		OrderStatus:        models.OrderStatusCancelled,
		CancellationReason: "customer unreachable",
	})
	require.NoError(t, err)
	require.False(t, forced)
	require.Equal(t, models.OrderStatusCancelled, cancelled.OrderStatus)
	require.Equal(t, "customer unreachable", cancelled.CancellationReason)

	var product models.Product
	require.NoError(t, env.DB.First(&product, 1).Error)
	require.Equal(t, 5, product.Stock)
}

func TestOrderStats(t *testing.T) {
	env := newTestEnv(t)

	env.DB.Create(&models.Product{Name: "Crate", Description: "d", Price: 100, Stock: 20, Active: true})
	first := placeTestOrder(t, env, 1)
	_ = placeTestOrder(t, env, 1)

	for _, status := range []string{models.OrderStatusConfirmed, models.OrderStatusProcessing, models.OrderStatusShipped} {
		_, _, err := env.Svc.UpdateStatus(context.Background(), first.ID, transport.UpdateOrderStatusRequest{OrderStatus: status})
		require.NoError(t, err)
	}

	stats, err := env.Svc.OrderStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.TotalOrders)
	require.Equal(t, int64(1), stats.CountsByStatus[models.OrderStatusShipped])
	require.Equal(t, int64(1), stats.CountsByStatus[models.OrderStatusPending])
	require.Equal(t, float64(150), stats.TotalRevenue)
}

func TestListOrdersFiltersByStatus(t *testing.T) {
	env := newTestEnv(t)

	env.DB.Create(&models.Product{Name: "Crate", Description: "d", Price: 100, Stock: 20, Active: true})
	first := placeTestOrder(t, env, 1)
	_ = placeTestOrder(t, env, 1)

	_, err := env.Svc.CancelOrder(context.Background(), 1, first.ID, "")
	require.NoError(t, err)

	total, orders, err := env.Svc.ListOrders(context.Background(), 1, models.OrderStatusCancelled, 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, orders, 1)
	require.Equal(t, first.ID, orders[0].ID)

	total, _, err = env.Svc.ListOrders(context.Background(), 1, "", 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
}
