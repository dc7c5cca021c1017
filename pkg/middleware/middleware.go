package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voicewms/dispatch-service/pkg/logging"
	"github.com/voicewms/dispatch-service/pkg/metrics"
)

// Config holds the middleware chain configuration for a service.
type Config struct {
	ServiceName string
	Logger      *logging.Logger
	Metrics     *metrics.Metrics

	// EnableCORS attaches permissive CORS headers. Intended for
	// development and internal tooling.
	EnableCORS bool
}

// Setup attaches the standard middleware chain to a gin engine. Order
// matters: recovery runs outermost, then identifiers, then logging and
// metrics so they observe the final status code.
func Setup(router *gin.Engine, config *Config) {
	router.Use(Recovery(config.Logger))
	router.Use(RequestID())
	router.Use(CorrelationID())
	router.Use(RequestLogger(config.Logger))
	if config.Metrics != nil {
		router.Use(MetricsMiddleware(config.Metrics))
	}
	if config.EnableCORS {
		router.Use(CORS())
	}
	router.Use(ErrorHandler(config.Logger))

	router.NoRoute(NoRoute())
	router.NoMethod(NoMethod())
}

// CORS returns a permissive CORS middleware.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Correlation-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// HealthCheck returns a liveness handler.
func HealthCheck(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// ReadinessChecker reports whether a dependency is ready to serve.
type ReadinessChecker func(c *gin.Context) error

// ReadinessCheck returns a readiness handler that runs each named check
// and reports per-dependency status.
func ReadinessCheck(serviceName string, checks map[string]ReadinessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(c); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
			} else {
				results[name] = "ok"
			}
		}

		ready := "ready"
		if status != http.StatusOK {
			ready = "not_ready"
		}
		c.JSON(status, gin.H{
			"status":  ready,
			"service": serviceName,
			"checks":  results,
		})
	}
}

// NoRoute handles requests to unknown paths.
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, APIErrorResponse{
			Error: APIError{
				Code:      "NOT_FOUND",
				Message:   "route not found: " + c.Request.Method + " " + c.Request.URL.Path,
				RequestID: GetRequestID(c),
			},
		})
	}
}

// NoMethod handles requests with an unsupported method on a known path.
func NoMethod() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, APIErrorResponse{
			Error: APIError{
				Code:      "METHOD_NOT_ALLOWED",
				Message:   "method not allowed: " + c.Request.Method,
				RequestID: GetRequestID(c),
			},
		})
	}
}
