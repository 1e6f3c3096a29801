package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tavolo/restaurant-reservation/internal/config"
	"github.com/tavolo/restaurant-reservation/internal/handler"    // import the handlers that implement business logic
	"github.com/tavolo/restaurant-reservation/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: the health check used by load balancers and the
// Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterPublic registers the guest-facing availability endpoints.  These
// routes apply no JWT middleware; they are rate limited and their responses
// cached through Redis when a client is available (both degrade to no-ops
// otherwise).  Validation is read-only, so it sits here alongside the slot
// reads — only the booking endpoint requires a session.
func RegisterPublic(e *echo.Echo, a *handler.AvailabilityHandler, rdb *redis.Client) {
	g := e.Group("/v1")
	g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	g.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	// Computed slots for one service version on one date.
	g.GET("/service-versions/:id/slots", a.GetAvailableSlots)
	// Merged availability across a restaurant's active service versions.
	g.GET("/restaurants/:id/slots", a.GetRestaurantSlots)
	// Dry-run a reservation request; never writes.
	g.POST("/reservations/validate", a.ValidateReservation)
	// Day-by-day alternatives when the preferred time does not fit.
	g.GET("/service-versions/:id/alternatives", a.FindAlternatives)
}

// RegisterCustomer registers the booking endpoint.  It carries the JWT
// middleware so the reservation is bound to the authenticated customer;
// both CUSTOMER and staff roles may book.
func RegisterCustomer(e *echo.Echo, a *handler.AvailabilityHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("CUSTOMER", "OWNER", "MANAGER"))
	g.POST("/reservations", a.CreateReservation)
}

// RegisterStaff registers the schedule configuration endpoints.  Every
// route requires a valid staff token: template and policy replacement,
// date exceptions, version lifecycle and legacy slot changes all mutate
// what customers can book.
func RegisterStaff(e *echo.Echo, s *handler.StaffHandler, l *handler.LegacyHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("OWNER", "MANAGER"))

	// Weekly template reads and per-day replacement.
	g.GET("/service-versions/:id/template", s.GetWeeklyTemplate)
	g.PUT("/service-versions/:id/template/:weekday", s.UpdateTemplateDay)

	// Slot policy replacement; affects future computations only.
	g.PUT("/service-versions/:id/policy", s.UpdateSlotPolicy)

	// Date-specific overrides.
	g.POST("/service-versions/:id/exceptions", s.CreateException)
	g.DELETE("/exceptions/:id", s.DeleteException)

	// Version lifecycle.
	g.POST("/service-versions/:id/deactivate", s.DeactivateVersion)
	g.POST("/service-versions/:id/reactivate", s.ReactivateVersion)

	// Legacy recurring slots: read, append-only schedule change,
	// deactivation without successor.
	g.GET("/legacy-slots/:id", l.GetSlot)
	g.POST("/legacy-slots/:id/schedule", l.ChangeSchedule)
	g.POST("/legacy-slots/:id/deactivate", l.DeactivateSlot)
}
