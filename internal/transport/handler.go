package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-medical-analyzer/internal/config"
	apperrors "go-medical-analyzer/internal/errors"
	"go-medical-analyzer/internal/format"
	"go-medical-analyzer/internal/logger"
	"go-medical-analyzer/internal/pipeline"
	"go-medical-analyzer/internal/service"
	"go-medical-analyzer/pkg/models"
	"go-medical-analyzer/pkg/validation"
)

const (
	version         = "1.0.0"
	uploadField     = "image"
	defaultHistoryN = 20
	multipartMemory = 8 << 20
)

// MetricsSource exposes pipeline counters for the health endpoint.
type MetricsSource interface {
	Snapshot() map[string]map[string]int
}

func NewHandler(svc service.AnalysisService, validator *validation.UploadValidator, metrics MetricsSource, cfg *config.Config) http.Handler {
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = multipartMemory

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestLogger(),
		cors.New(corsConfig(cfg.AllowedOrigins)),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck(svc, metrics))

	api := r.Group("/api")
	api.POST("/analyze", analyzeUpload(svc, validator, pipeline.DefaultOptions()))
	api.POST("/ml-analyze", analyzeUpload(svc, validator, pipeline.LocalOptions()))
	api.GET("/analyses", listAnalyses(svc))
	api.GET("/analyses/:id", getAnalysis(svc))

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func analyzeUpload(svc service.AnalysisService, validator *validation.UploadValidator, opts pipeline.RunOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
		}).Info("Processing image analysis request")

		fileHeader, err := c.FormFile(uploadField)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(c, http.StatusRequestEntityTooLarge, "upload too large", err)
				return
			}
			respondError(c, http.StatusBadRequest, "no image file provided", err)
			return
		}

		ext, err := validator.ValidateFilename(fileHeader.Filename)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid upload", err)
			return
		}
		if err := validator.ValidateSize(fileHeader.Size); err != nil {
			respondError(c, http.StatusRequestEntityTooLarge, "invalid upload", err)
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "could not read upload", err)
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			respondError(c, http.StatusBadRequest, "could not read upload", err)
			return
		}

		result, err := svc.Analyze(c.Request.Context(), data, ext, opts)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				respondError(c, 499, "client closed request", err)
				return
			}
			respondError(c, apperrors.GetStatusCode(err), "analysis failed", err)
			return
		}

		html, err := format.HTML(result)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "could not render analysis", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"id":                 result.ID,
			"provider":           result.Provider,
			"filename":           fileHeader.Filename,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Analysis request completed")

		c.JSON(http.StatusOK, models.AnalyzeResponse{HTML: html, Analysis: result})
	}
}

func listAnalyses(svc service.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultHistoryN
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				respondError(c, http.StatusBadRequest, "invalid limit",
					apperrors.NewValidationError(fmt.Sprintf("limit must be a positive integer, got %q", raw), err))
				return
			}
			limit = n
		}

		analyses, err := svc.History(c.Request.Context(), limit)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "could not list analyses", err)
			return
		}
		c.JSON(http.StatusOK, models.HistoryResponse{Analyses: analyses, Count: len(analyses)})
	}
}

func getAnalysis(svc service.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "could not load analysis", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func healthCheck(svc service.AnalysisService, metrics MetricsSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:    "available",
			Version:   version,
			Time:      time.Now().UTC().Format(time.RFC3339),
			Providers: svc.Providers(),
		}
		if metrics != nil {
			resp.Metrics = metrics.Snapshot()
		}
		c.JSON(http.StatusOK, resp)
	}
}

// Middleware and helper functions
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("HTTP request")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	text := http.StatusText(code)
	if text == "" {
		text = "Error"
	}
	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   text,
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
