package models

import (
	"time"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	Email        string `gorm:"unique;not null"          json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"          json:"id"`
	Token     string `gorm:"unique;not null"     json:"token"`
	UserID    uint   `gorm:"index;not null"      json:"user_id"`
	Role      string `gorm:"not null"            json:"role"`
	ExpiresAt int64  `gorm:"not null"            json:"expires_at"`
	Revoked   bool   `gorm:"default:false"       json:"revoked"`
}

type Category struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name   string `gorm:"unique;not null"          json:"name"`
	Slug   string `gorm:"uniqueIndex;not null"     json:"slug"`
	Active bool   `gorm:"default:true"             json:"active"`
}

type Product struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"not null"                 json:"name"`
	Description string    `gorm:"not null"                 json:"description"`
	Price       float64   `gorm:"not null"                 json:"price"`
	Stock       int       `gorm:"not null;default:0"       json:"stock"`
	Active      bool      `gorm:"default:true"             json:"active"`
	CategoryID  uint      `gorm:"index"                    json:"category_id"`
	Image       string    `json:"image"`
	RatingAvg   float64   `gorm:"default:0"                json:"rating_avg"`
	RatingCount int       `gorm:"default:0"                json:"rating_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// CartItem is one line of a user's cart. The unique (user, product) index is
// what keeps the cart a singleton per user: there is never a second row for
// the same product. Price is captured at add time.
type CartItem struct {
	ID        uint    `gorm:"primaryKey"                                 json:"id"`
	UserID    uint    `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uint    `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Quantity  uint    `gorm:"default:1;check:quantity>0"                 json:"quantity"`
	Price     float64 `gorm:"not null"                                   json:"price"`
}

type ShippingAddress struct {
	Name    string `gorm:"not null" json:"name"`
	Phone   string `gorm:"not null" json:"phone"`
	Address string `gorm:"not null" json:"address"`
	City    string `gorm:"not null" json:"city"`
	State   string `gorm:"not null" json:"state"`
	Pincode string `gorm:"not null" json:"pincode"`
}

const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

const (
	PaymentMethodCOD    = "cod"
	PaymentMethodOnline = "online"

	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

type Order struct {
	ID                 uint            `gorm:"primaryKey"                    json:"id"`
	OrderNumber        string          `gorm:"uniqueIndex;not null"          json:"order_number"`
	UserID             uint            `gorm:"index;not null"                json:"user_id"`
	Items              []OrderItem     `gorm:"constraint:OnDelete:CASCADE"   json:"items"`
	ShippingAddress    ShippingAddress `gorm:"embedded;embeddedPrefix:ship_" json:"shipping_address"`
	OrderStatus        string          `gorm:"not null;index"                json:"order_status"`
	PaymentStatus      string          `gorm:"not null"                      json:"payment_status"`
	PaymentMethod      string          `gorm:"not null"                      json:"payment_method"`
	Subtotal           float64         `gorm:"not null"                      json:"subtotal"`
	ShippingCharges    float64         `gorm:"not null"                      json:"shipping_charges"`
	Discount           float64         `gorm:"default:0"                     json:"discount"`
	TotalAmount        float64         `gorm:"not null"                      json:"total_amount"`
	TrackingNumber     string          `json:"tracking_number"`
	Notes              string          `json:"notes"`
	CancellationReason string          `json:"cancellation_reason"`
	ShippedAt          *time.Time      `json:"shipped_at"`
	DeliveredAt        *time.Time      `json:"delivered_at"`
	CancelledAt        *time.Time      `json:"cancelled_at"`
	CreatedAt          time.Time       `json:"created_at"`
}

// OrderItem snapshots name/price/image at placement so later product edits
// never alter historical orders.
type OrderItem struct {
	ID        uint    `gorm:"primaryKey"                 json:"id"`
	OrderID   uint    `gorm:"index;not null"             json:"order_id"`
	ProductID uint    `gorm:"not null"                   json:"product_id"`
	Name      string  `gorm:"not null"                   json:"name"`
	Price     float64 `gorm:"not null"                   json:"price"`
	Quantity  uint    `gorm:"default:1;check:quantity>0" json:"quantity"`
	Image     string  `json:"image"`
}

// OrderCounter holds one row per calendar day, locked and incremented inside
// the placement transaction so order numbers are unique by construction.
type OrderCounter struct {
	Day string `gorm:"primaryKey" json:"day"`
	Seq int64  `gorm:"not null"   json:"seq"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey"                                   json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_review_user_product" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_review_user_product" json:"product_id"`
	Rating    int       `gorm:"not null;check:rating>=1 AND rating<=5"       json:"rating"`
	Comment   string    `json:"comment"`
	Approved  bool      `gorm:"default:false;index"                          json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

type WishlistItem struct {
	ID        uint `gorm:"primaryKey"                                 json:"id"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_wish_user_product" json:"user_id"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_wish_user_product" json:"product_id"`
}

type ContactMessage struct {
	ID        uint      `gorm:"primaryKey"    json:"id"`
	Name      string    `gorm:"not null"      json:"name"`
	Email     string    `gorm:"not null"      json:"email"`
	Phone     string    `json:"phone"`
	Subject   string    `gorm:"not null"      json:"subject"`
	Message   string    `gorm:"not null"      json:"message"`
	Resolved  bool      `gorm:"default:false" json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
}
