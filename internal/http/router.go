package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas base.
func NewRouter(
	logger *zap.Logger,
	jwtSecret string,
	sessionH *SessionHandler,
	memberH *MemberHandler,
	voteH *VoteHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	optionalAuth := SubjectAuthMiddleware(jwtSecret, false)
	requiredAuth := SubjectAuthMiddleware(jwtSecret, true)

	auth := r.Group("/auth")
	auth.POST("/login", sessionH.Login)
	auth.POST("/signup", sessionH.Signup)
	auth.POST("/oauth", sessionH.OAuth)
	auth.POST("/refresh", sessionH.Refresh)
	auth.POST("/logout", optionalAuth, sessionH.Logout)

	r.GET("/session", optionalAuth, sessionH.Resolve)
	r.POST("/session/events", optionalAuth, sessionH.Event)

	r.POST("/members", requiredAuth, memberH.CompleteProfile)

	votes := r.Group("/votes")
	votes.POST("/otp/request", voteH.RequestOTP)
	votes.POST("/otp/verify", voteH.VerifyOTP)
	votes.POST("", optionalAuth, voteH.Submit)
	votes.GET("/status", voteH.Status)

	r.GET("/artists", voteH.ListArtists)
	r.GET("/artists/:id/tally", voteH.ArtistTally)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

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

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
