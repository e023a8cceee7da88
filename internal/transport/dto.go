package transport

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type CreateProductRequest struct {
	Name        string  `json:"name"        validate:"required"`
	Description string  `json:"description" validate:"required"`
	Price       float64 `json:"price"       validate:"required,gt=0"`
	Stock       int     `json:"stock"       validate:"gte=0"`
	CategoryID  uint    `json:"category_id"`
	Image       string  `json:"image"`
}

type PatchProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"       validate:"omitempty,gt=0"`
	Stock       *int     `json:"stock"       validate:"omitempty,gte=0"`
	CategoryID  *uint    `json:"category_id"`
	Image       *string  `json:"image"`
	Active      *bool    `json:"active"`
}

type CategoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=64"`
	Slug string `json:"slug" validate:"required,min=2,max=64"`
}

type AddCartItemRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  uint `json:"quantity"   validate:"omitempty,gte=1"`
}

type UpdateCartItemRequest struct {
	Quantity uint `json:"quantity" validate:"required,gte=1"`
}

type CreateReviewRequest struct {
	ProductID uint   `json:"product_id" validate:"required"`
	Rating    int    `json:"rating"     validate:"required,gte=1,lte=5"`
	Comment   string `json:"comment"    validate:"max=2000"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"  validate:"omitempty,gte=1,lte=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

type WishlistRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
}

type ContactRequest struct {
	Name    string `json:"name"    validate:"required"`
	Email   string `json:"email"   validate:"required,email"`
	Phone   string `json:"phone"   validate:"omitempty,min=7,max=15"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

type ShippingAddressDTO struct {
	Name    string `json:"name"    validate:"required"`
	Phone   string `json:"phone"   validate:"required,len=10,numeric"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city"    validate:"required"`
	State   string `json:"state"   validate:"required"`
	Pincode string `json:"pincode" validate:"required,len=6,numeric"`
}

type CreateOrderRequest struct {
	ShippingAddress ShippingAddressDTO `json:"shipping_address" validate:"required"`
	PaymentMethod   string             `json:"payment_method"   validate:"omitempty,oneof=cod online"`
	Notes           string             `json:"notes"            validate:"max=1000"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type UpdateOrderStatusRequest struct {
	OrderStatus        string `json:"order_status" validate:"required,oneof=pending confirmed processing shipped delivered completed cancelled"`
	TrackingNumber     string `json:"tracking_number"     validate:"max=64"`
	CancellationReason string `json:"cancellation_reason" validate:"max=500"`
	// Force permits a transition outside the state graph. It is logged and
	// flagged on the published event, never silent.
	Force bool `json:"force"`
}
