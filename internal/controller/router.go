package controller

import (
	"time"

	"github.com/festivo/ticketing/internal/domain/order"
	"github.com/festivo/ticketing/internal/infrastructure/config"
	"github.com/festivo/ticketing/internal/infrastructure/observability"
	customMW "github.com/festivo/ticketing/internal/middleware"
	"github.com/festivo/ticketing/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	Pool               *pgxpool.Pool
	RedisClient        *redis.Client
	OrderRepo          order.Repository
	ReservationService *service.ReservationService
	PaymentService     *service.PaymentService
	Metrics            *observability.Metrics
	CORSConfig         config.CORSConfig
	JWTSecret          string
	RateLimitPerMinute int
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	orderH := NewOrderController(deps.ReservationService, deps.PaymentService, deps.OrderRepo)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if deps.RateLimitPerMinute > 0 {
			r.Use(customMW.RateLimit(deps.RateLimitPerMinute))
		}
		r.Use(customMW.RequireAuth(deps.JWTSecret))

		// Orders
		r.Post("/orders", orderH.Create)
		r.Get("/orders/{uuid}", orderH.Get)
		r.Post("/orders/{uuid}/payment", orderH.BeginPayment)
	})

	return r
}
