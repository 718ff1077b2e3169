package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"skywatch/internal/service"
)

// RouterConfig reúne lo que ambos servicios comparten al armar el engine.
type RouterConfig struct {
	Logger            *zap.Logger
	CORSOrigin        string
	ExposeErrorDetail bool
	// HealthCheck se invoca en /healthz; nil significa siempre sano.
	HealthCheck func(ctx context.Context) error
}

// NewRouter configura el router del servicio de cuentas.
func NewRouter(cfg RouterConfig, userH *UserHandler, jwtSvc *service.JWTService, users UserLookup) *gin.Engine {
	r := newEngine(cfg, "accounts")

	accounts := r.Group("/api/users")
	accounts.POST("/register", userH.Register)
	accounts.POST("/login", userH.Login)
	accounts.POST("/google-auth", userH.GoogleAuth)

	owned := accounts.Group("/:id", JWTAuthMiddleware(jwtSvc, users), RequireOwner("id"))
	owned.GET("", userH.GetUser)
	owned.PUT("", userH.UpdateUser)
	owned.DELETE("", userH.DeleteUser)

	return r
}

// NewDataRouter configura el router del servicio de ubicaciones y clima.
func NewDataRouter(
	cfg RouterConfig,
	locationH *LocationHandler,
	weatherH *WeatherHandler,
	jwtSvc *service.JWTService,
	users UserLookup,
) *gin.Engine {
	r := newEngine(cfg, "userdata")

	locations := r.Group("/api/userData/locations", JWTAuthMiddleware(jwtSvc, users))
	locations.GET("", locationH.List)
	locations.POST("", locationH.Add)
	locations.GET("/:locationId", locationH.Get)
	locations.PUT("/:locationId", locationH.Update)
	locations.DELETE("/:locationId", locationH.Remove)

	weather := r.Group("/api/weather")
	weather.GET("", weatherH.Current)
	weather.GET("/suggestions", weatherH.Suggestions)

	return r
}

func newEngine(cfg RouterConfig, name string) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := newHTTPMetrics(name)

	r := gin.New()
	r.Use(
		zapLoggerMiddleware(logger),
		zapRecoveryMiddleware(logger),
		metrics.middleware(),
		securityHeadersMiddleware(),
		corsMiddleware(cfg.CORSOrigin),
		errorDetailMiddleware(cfg.ExposeErrorDetail),
	)

	r.GET("/healthz", healthHandler(cfg.HealthCheck))
	r.GET("/metrics", metrics.handler())
	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func zapRecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}

func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		c.Next()
	}
}

// corsMiddleware permite un único origen configurado; "*" abre a cualquiera.
func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqOrigin := c.GetHeader("Origin")
		if origin != "" && reqOrigin != "" && (origin == "*" || reqOrigin == origin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Set("Access-Control-Max-Age", "600")
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func errorDetailMiddleware(expose bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(exposeErrorDetailKey, expose)
		c.Next()
	}
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
