// Package handlers contains health checks and reusable middleware for the
// archive's HTTP API.
//
// # Health Checks
//
// Named checks run in parallel. Critical checks (the store) decide
// readiness; optional ones (cache, interpreter) only degrade the report:
//
//	checker := handlers.NewCompositeHealthChecker("v0.1.0")
//	checker.AddCheck("database", handlers.NewPingCheck(conn))
//	checker.AddOptionalCheck("cache", handlers.NewPingCheck(cache))
//	checker.AddOptionalCheck("interpreter", handlers.NewBreakerCheck(gemini))
//
// # Middleware
//
//	auth := handlers.NewAPIKeyAuth("X-API-Key", keys)
//	limit := handlers.NewRateLimiter(120, time.Minute, handlers.ClientIP)
//	h := handlers.ChainHandler(mux,
//	    limit.Middleware,
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.NoCacheMiddleware,
//	    handlers.RequestSizeLimitMiddleware(1<<20),
//	    auth.Middleware,
//	)
//
// API key authentication only guards mutating methods.
package handlers
