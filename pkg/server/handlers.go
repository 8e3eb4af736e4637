package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kakapo-ai/kakapo/pkg/answer"
	"github.com/kakapo-ai/kakapo/pkg/budget"
	"github.com/kakapo-ai/kakapo/pkg/config"
	"github.com/kakapo-ai/kakapo/pkg/llm"
	"github.com/kakapo-ai/kakapo/pkg/models"
	"github.com/kakapo-ai/kakapo/pkg/resolver"
	"github.com/kakapo-ai/kakapo/pkg/vision"
	"github.com/rs/zerolog/log"
)

// Fixed user-facing messages.
const (
	msgKeyNotConfigured = "GEMINI_API_KEY not configured"
	msgKeyNotSet        = "GEMINI_API_KEY not set"
	msgNoQuestion       = "No question provided"
	msgNoImage          = "No image provided"
	msgBadImage         = "Invalid base64 image"

	webhookSource        = "kakapo-chatbot"
	webhookNoKey         = "API key not configured. Please contact administrator."
	webhookNoQuery       = "No query received."
	webhookUnreachable   = "I'm having trouble connecting to my AI service. Please try again in a moment."
	webhookUsageLimit    = "I've reached my usage limit. Please try again later."
	webhookConfiguration = "There's a configuration issue. Please contact the administrator."
	webhookGeneric       = "I encountered an error while processing your request. Please try again."
)

// CacheHeader reports whether an encyclopedia answer came from the memo cache.
const CacheHeader = "X-Kakapo-Cache"

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "running",
		"service":   ServiceName,
		"endpoints": []string{"/ask", "/analyze-image", "/webhook", "/health", "/list-models", "/test"},
	})
}

// needsKey reports whether the text path requires an API key that is missing.
func (s *Server) needsKey() bool {
	return s.answers.Mode() == config.ModeLLM && !s.cfg.HasAPIKey()
}

func (s *Server) handleAsk(c *gin.Context) {
	start := time.Now()
	if s.needsKey() {
		writeError(c, http.StatusInternalServerError, msgKeyNotConfigured)
		return
	}

	var req models.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		writeError(c, http.StatusBadRequest, msgNoQuestion)
		return
	}
	question := strings.TrimSpace(req.Question)

	ans, err := s.answers.Ask(c.Request.Context(), question)
	if err != nil {
		log.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("ask failed")
		s.audit(c, start, question, nil, http.StatusInternalServerError)
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if ans.Source == models.SourceEncyclopedia {
		c.Header(CacheHeader, cacheState(ans.Cached))
	}
	s.audit(c, start, question, ans, http.StatusOK)
	c.JSON(http.StatusOK, models.AskResponse{
		Answer:  ans.Text,
		Source:  ans.Source,
		Model:   ans.Model,
		Title:   ans.Title,
		OnTopic: ans.OnTopic,
	})
}

func (s *Server) handleAnalyzeImage(c *gin.Context) {
	start := time.Now()
	if !s.cfg.HasAPIKey() {
		writeError(c, http.StatusInternalServerError, msgKeyNotConfigured)
		return
	}

	var req models.AnalyzeImageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Image) == "" {
		writeError(c, http.StatusBadRequest, msgNoImage)
		return
	}
	img, err := decodeImage(req.Image)
	if err != nil {
		writeError(c, http.StatusBadRequest, msgBadImage)
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		question = answer.DefaultImageQuestion
	}

	ans, err := s.answers.Vision(c.Request.Context(), img, question)
	if err != nil {
		log.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("image analysis failed")
		s.audit(c, start, question, nil, http.StatusInternalServerError)
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	s.audit(c, start, question, ans, http.StatusOK)
	c.JSON(http.StatusOK, models.AnalyzeImageResponse{
		Answer:         ans.Text,
		Model:          ans.Model,
		OpenCVAnalysis: vision.Analyze(img),
	})
}

// decodeImage accepts standard base64, with or without padding or a data URL prefix.
func decodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ";base64,"); i >= 0 {
			s = s[i+len(";base64,"):]
		}
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, errors.New("empty image")
	}
	return b, nil
}

func (s *Server) handleWebhook(c *gin.Context) {
	start := time.Now()
	if s.needsKey() {
		c.JSON(http.StatusOK, models.WebhookResponse{FulfillmentText: webhookNoKey, Source: webhookSource})
		return
	}

	var req models.WebhookRequest
	_ = c.ShouldBindJSON(&req)
	query := strings.TrimSpace(req.QueryResult.QueryText)
	if query == "" {
		c.JSON(http.StatusOK, models.WebhookResponse{FulfillmentText: webhookNoQuery, Source: webhookSource})
		return
	}

	ans, err := s.answers.Ask(c.Request.Context(), query)
	if err != nil {
		log.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("webhook failed")
		s.audit(c, start, query, nil, http.StatusOK)
		c.JSON(http.StatusOK, models.WebhookResponse{FulfillmentText: webhookMessage(err), Source: webhookSource})
		return
	}

	s.audit(c, start, query, ans, http.StatusOK)
	c.JSON(http.StatusOK, models.WebhookResponse{FulfillmentText: ans.Text, Source: webhookSource})
}

// webhookMessage maps a failure to the message shown to the chat user.
func webhookMessage(err error) string {
	switch {
	case errors.Is(err, budget.ErrBudgetExceeded):
		return webhookUsageLimit
	case errors.Is(err, resolver.ErrNoModelAvailable):
		return webhookUnreachable
	}
	switch llm.Classify(err) {
	case llm.KindNotFound:
		return webhookUnreachable
	case llm.KindQuota:
		return webhookUsageLimit
	case llm.KindAuth:
		return webhookConfiguration
	default:
		return webhookGeneric
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := models.HealthResponse{
		Status:           "healthy",
		APIKeyConfigured: s.cfg.HasAPIKey(),
		ModelStatus:      "Not checked",
	}
	if !resp.APIKeyConfigured {
		resp.Status = "warning"
		c.JSON(http.StatusOK, resp)
		return
	}

	if _, err := s.resolver.Resolve(c.Request.Context(), false); err != nil {
		resp.ModelStatus = "API error: " + truncate(err.Error(), 100)
	} else {
		resp.APIAccessible = true
		resp.ModelStatus = "API accessible"
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListModels(c *gin.Context) {
	if !s.cfg.HasAPIKey() {
		writeError(c, http.StatusInternalServerError, msgKeyNotSet)
		return
	}
	list, err := s.catalog.ListModels(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("list models failed")
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, models.ModelList{AvailableModels: list, Count: len(list)})
}

func (s *Server) handleTest(c *gin.Context) {
	ans, err := s.answers.Ask(c.Request.Context(), answer.SmokeQuestion)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "answer": ans.Text, "source": ans.Source})
}

func (s *Server) audit(c *gin.Context, start time.Time, question string, ans *models.Answer, status int) {
	if s.auditor == nil {
		return
	}
	entry := models.AuditEntry{
		RequestID:  c.GetString(requestIDKey),
		Endpoint:   c.FullPath(),
		Question:   question,
		StatusCode: status,
		LatencyMs:  time.Since(start).Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if ans != nil {
		entry.Answer = ans.Text
		entry.Source = ans.Source
		entry.Model = ans.Model
		if ans.Usage != nil {
			entry.PromptTokens = ans.Usage.PromptTokens
			entry.CompletionTokens = ans.Usage.CompletionTokens
			entry.TotalTokens = ans.Usage.TotalTokens
		}
	}
	if err := s.auditor.Log(c.Request.Context(), entry); err != nil {
		log.Warn().Err(err).Str("request_id", entry.RequestID).Msg("audit log failed")
	}
}

func cacheState(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
