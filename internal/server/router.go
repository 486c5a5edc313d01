package server

import (
	"context"
	"net/http"
	"time"

	"travelapp/internal/middleware"
	"travelapp/internal/modules/auth"
	"travelapp/internal/modules/booking"
	"travelapp/internal/modules/listing"
	"travelapp/internal/modules/review"
	"travelapp/internal/modules/user"
	"travelapp/internal/pkg/jwt"
	"travelapp/internal/pkg/logger"
	"travelapp/internal/pkg/metrics"
	"travelapp/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	DB             *gorm.DB
	Tokens         *jwt.Service
	Metrics        *metrics.HTTPMetrics
	Logger         *zap.Logger
	BasePath       string
	AllowedOrigins []string
}

// NewRouter wires repositories, services and handlers onto a gin engine.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.BasePath == "" {
		d.BasePath = "/api"
	}

	userRepo := repository.NewUserRepository(d.DB)
	listingRepo := repository.NewListingRepository(d.DB)
	bookingRepo := repository.NewBookingRepository(d.DB)
	reviewRepo := repository.NewReviewRepository(d.DB)

	authHandler := auth.NewHandler(auth.NewService(userRepo, d.Tokens))
	userHandler := user.NewHandler(user.NewService(userRepo))
	listingHandler := listing.NewHandler(listing.NewService(listingRepo, userRepo))
	var transitions booking.TransitionRecorder
	if d.Metrics != nil {
		transitions = d.Metrics
	}
	bookingHandler := booking.NewHandler(booking.NewService(bookingRepo, listingRepo, transitions))
	reviewHandler := review.NewHandler(review.NewService(reviewRepo, listingRepo))

	r := gin.New()
	r.Use(
		middleware.RequestID(d.Logger),
		middleware.RequestLogger(),
		middleware.Recovery(),
		middleware.CORS(d.AllowedOrigins),
	)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	r.GET("/health", health(d.DB))

	r.Use(middleware.Auth(d.Tokens, userRepo))
	authHandler.RegisterRoutes(r)

	api := r.Group(d.BasePath)
	{
		userHandler.RegisterRoutes(api)
		listingHandler.RegisterRoutes(api)
		reviewHandler.RegisterRoutes(api)
		bookingHandler.RegisterRoutes(api)
	}

	return r
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			logger.FromContext(c.Request.Context()).Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
