package server

import (
	"github.com/courierbot/courier/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", s.health.HealthHandler)
	s.router.Get("/health/live", s.health.LivenessHandler)
	s.router.Get("/health/ready", s.health.ReadinessHandler)

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	rl := &handlers.RateLimitHandler{Table: s.opts.Table, Clock: s.opts.Clock}
	s.router.Get("/ratelimits", rl.List)
	s.router.Delete("/ratelimits", rl.Reset)
}
