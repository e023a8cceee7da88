package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/plastware/storefront/internal/handlers"
	"github.com/plastware/storefront/internal/handlers/cart"
	"github.com/plastware/storefront/internal/handlers/order"
	authmw "github.com/plastware/storefront/internal/middleware/auth"
)

type Deps struct {
	Auth            *authmw.Middleware
	AuthHandler     *handlers.AuthHandler
	ProductHandler  *handlers.ProductHandler
	SearchHandler   *handlers.SearchHandler
	CategoryHandler *handlers.CategoryHandler
	ReviewHandler   *handlers.ReviewHandler
	WishlistHandler *handlers.WishlistHandler
	ContactHandler  *handlers.ContactHandler
	AdminHandler    *handlers.AdminHandler
	CartHandler     *cart.CartHandler
	OrderHandler    *order.Handler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout)

	products := api.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/search", d.SearchHandler.Search)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.GET("/:id/reviews", d.ReviewHandler.ListForProduct)

	api.GET("/categories", d.CategoryHandler.List)
	api.POST("/contact", d.ContactHandler.Submit)

	cartGroup := api.Group("/cart", d.Auth.RequireAuth)
	cartGroup.GET("", d.CartHandler.GetCart)
	cartGroup.POST("/items", d.CartHandler.AddItem)
	cartGroup.PUT("/items/:productID", d.CartHandler.UpdateItem)
	cartGroup.DELETE("/items/:productID", d.CartHandler.RemoveItem)
	cartGroup.DELETE("", d.CartHandler.Clear)

	wishlist := api.Group("/wishlist", d.Auth.RequireAuth)
	wishlist.GET("", d.WishlistHandler.List)
	wishlist.POST("", d.WishlistHandler.Add)
	wishlist.DELETE("/:productID", d.WishlistHandler.Remove)

	reviews := api.Group("/reviews", d.Auth.RequireAuth)
	reviews.POST("", d.ReviewHandler.Create)
	reviews.PUT("/:id", d.ReviewHandler.Update)
	reviews.DELETE("/:id", d.ReviewHandler.Delete)

	orders := api.Group("/orders")
	orders.GET("/admin/all", d.OrderHandler.AdminList, d.Auth.RequireAdmin)
	orders.GET("/admin/stats", d.OrderHandler.AdminStats, d.Auth.RequireAdmin)
	orders.PUT("/:id/status", d.OrderHandler.AdminUpdateStatus, d.Auth.RequireAdmin)
	orders.POST("", d.OrderHandler.Create, d.Auth.RequireAuth)
	orders.GET("", d.OrderHandler.List, d.Auth.RequireAuth)
	orders.GET("/:id", d.OrderHandler.Get, d.Auth.RequireAuth)
	orders.PUT("/:id/cancel", d.OrderHandler.Cancel, d.Auth.RequireAuth)

	admin := api.Group("/admin", d.Auth.RequireAdmin)
	admin.GET("/dashboard", d.AdminHandler.Dashboard)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	admin.POST("/categories", d.CategoryHandler.Create)
	admin.PATCH("/categories/:id", d.CategoryHandler.Patch)
	admin.DELETE("/categories/:id", d.CategoryHandler.Delete)
	admin.PUT("/reviews/:id/approve", d.ReviewHandler.Approve)
	admin.GET("/contact", d.ContactHandler.AdminList)
	admin.PUT("/contact/:id/resolve", d.ContactHandler.AdminResolve)
}
