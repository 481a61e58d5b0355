// Package handlers provides the HTTP API surface.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"learnpath/internal/config"
	"learnpath/internal/observability"
	contextutils "learnpath/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// NewRouter wires the middleware stack and all API routes.
func NewRouter(cfg *config.Config, logger *observability.Logger, analytics *AnalyticsHandler, quiz *QuizHandler, admin *AdminHandler) *gin.Engine {
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.OpenTelemetry.ServiceName))
	router.Use(requestLoggingMiddleware(logger))
	router.Use(secure.New(secure.Config{
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		FrameDeny:          true,
	}))

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/v1/health", healthHandler)

	v1 := router.Group("/v1")
	{
		v1.POST("/attempts", analytics.RecordAttempt)
		v1.POST("/analytics/recommendations", analytics.Recommendations)
		v1.POST("/analytics/learning-path", analytics.LearningPath)
		v1.POST("/analytics/clusters", analytics.Clusters)
		v1.GET("/analytics/mastery", analytics.Mastery)

		v1.POST("/quiz/generate", quiz.GenerateItem)
		v1.POST("/quiz/topic", quiz.TopicQuiz)
		v1.POST("/lessons/process", quiz.ProcessLesson)

		adm := v1.Group("/admin")
		{
			adm.POST("/train", admin.TriggerTraining)
			adm.POST("/worker/pause", admin.PauseWorker)
			adm.POST("/worker/resume", admin.ResumeWorker)
			adm.GET("/worker/status", admin.WorkerStatus)
		}
	}

	return router
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestLoggingMiddleware logs one line per request with latency and status.
func requestLoggingMiddleware(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info(c.Request.Context(), "HTTP request", map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
	}
}

// respondError maps the application error taxonomy onto HTTP status codes
// and renders the structured error body.
func respondError(c *gin.Context, logger *observability.Logger, err error) {
	status := http.StatusInternalServerError
	switch contextutils.GetErrorCode(err) {
	case contextutils.ErrorCodeDataInvalid, contextutils.ErrorCodeMissingRequired, contextutils.ErrorCodeInvalidInput:
		status = http.StatusBadRequest
	case contextutils.ErrorCodeInsufficientData:
		status = http.StatusUnprocessableEntity
	case contextutils.ErrorCodeModelUnavailable:
		status = http.StatusServiceUnavailable
	case contextutils.ErrorCodeRecordNotFound:
		status = http.StatusNotFound
	case contextutils.ErrorCodeTimeout:
		status = http.StatusGatewayTimeout
	}

	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "Request failed", err)
	}

	var appErr *contextutils.AppError
	if errors.As(err, &appErr) {
		c.JSON(status, gin.H{"error": appErr.ToJSON()})
		return
	}
	c.JSON(status, gin.H{"error": gin.H{"message": err.Error()}})
}
