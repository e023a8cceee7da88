package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/plastware/storefront/internal/config"
	"github.com/plastware/storefront/internal/es"
	"github.com/plastware/storefront/internal/handlers"
	"github.com/plastware/storefront/internal/handlers/cart"
	"github.com/plastware/storefront/internal/handlers/order"
	"github.com/plastware/storefront/internal/logging"
	"github.com/plastware/storefront/internal/mail"
	authmw "github.com/plastware/storefront/internal/middleware/auth"
	"github.com/plastware/storefront/internal/mykafka"
	httpserver "github.com/plastware/storefront/internal/transport/http"
	"github.com/plastware/storefront/internal/validate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.RefreshSecret, "REFRESH_SECRET")

	logger := logging.New(cfg.LogLevel)

	db, err := config.OpenDB(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	prod, err := mykafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(cfg)
	if err != nil {
		log.Fatal(err)
	}

	mailer := mail.NewDispatcher(mail.NewSendGridSender(cfg.SendgridAPIKey, cfg.MailFrom), logger)

	e := echo.New()
	e.Validator = validate.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), logging.RequestLogger(logger))

	mw := authmw.New(cfg.JWTSecret)
	orderSvc := &order.Service{DB: db}

	deps := httpserver.Deps{
		Auth:            mw,
		AuthHandler:     &handlers.AuthHandler{DB: db, JWTSecret: cfg.JWTSecret, RefreshSecret: cfg.RefreshSecret, Producer: prod},
		ProductHandler:  &handlers.ProductHandler{DB: db, Producer: prod},
		SearchHandler:   handlers.NewSearchHandler(esClient, "products"),
		CategoryHandler: &handlers.CategoryHandler{DB: db},
		ReviewHandler:   &handlers.ReviewHandler{DB: db},
		WishlistHandler: &handlers.WishlistHandler{DB: db},
		ContactHandler:  &handlers.ContactHandler{DB: db, Mail: mailer},
		AdminHandler:    &handlers.AdminHandler{DB: db, Orders: orderSvc},
		CartHandler:     &cart.CartHandler{DB: db, Producer: prod},
		OrderHandler:    &order.Handler{Svc: orderSvc, Producer: prod, Mail: mailer},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	mailer.Close()

	log.Println("shutdown complete")
}
