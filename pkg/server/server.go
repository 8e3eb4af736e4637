// Package server exposes the chatbot over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kakapo-ai/kakapo/pkg/config"
	"github.com/kakapo-ai/kakapo/pkg/metrics"
	"github.com/kakapo-ai/kakapo/pkg/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// ServiceName is reported by the index endpoint.
const ServiceName = "Kakapo Expert Chatbot API"

// maxBodyBytes bounds request bodies; base64 images dominate.
const maxBodyBytes = 20 << 20

// AnswerService answers text and image questions.
type AnswerService interface {
	Mode() string
	Ask(ctx context.Context, question string) (*models.Answer, error)
	Vision(ctx context.Context, image []byte, question string) (*models.Answer, error)
}

// ModelCatalog lists the models visible to the configured key.
type ModelCatalog interface {
	ListModels(ctx context.Context) ([]models.ModelInfo, error)
}

// ModelResolver picks a usable model; health uses it as an access check.
type ModelResolver interface {
	Resolve(ctx context.Context, preferVision bool) (string, error)
}

// AuditSink records answered requests.
type AuditSink interface {
	Log(ctx context.Context, entry models.AuditEntry) error
}

// Server is the kakapo HTTP API.
type Server struct {
	cfg      *config.Config
	answers  AnswerService
	catalog  ModelCatalog
	resolver ModelResolver
	auditor  AuditSink
	engine   *gin.Engine
}

// New creates a Server wired with all dependencies. auditor may be nil.
func New(cfg *config.Config, answers AnswerService, catalog ModelCatalog, resolver ModelResolver, auditor AuditSink) *Server {
	s := &Server{
		cfg:      cfg,
		answers:  answers,
		catalog:  catalog,
		resolver: resolver,
		auditor:  auditor,
		engine:   gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestLogger(), limitBody(maxBodyBytes))

	s.engine.GET("/", s.handleIndex)
	s.engine.POST("/ask", s.handleAsk)
	s.engine.POST("/analyze-image", s.handleAnalyzeImage)
	s.engine.POST("/webhook", s.handleWebhook)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/list-models", s.handleListModels)
	s.engine.GET("/test", s.handleTest)
	if cfg.Metrics.Enabled {
		s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Listen).Str("mode", s.answers.Mode()).Msg("kakapo listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

const requestIDKey = "request_id"

// requestLogger assigns a request id, then logs and measures the request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.RequestCount.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(elapsed.Seconds())

		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("request_id", id).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", elapsed).
			Msg("request")
	}
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func writeError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}
