package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/citysnap-gateway/internal/storage"
)

const (
	defaultLookupLimit = 20
	maxLookupLimit     = 200
)

// AdminHandler handles administrative endpoints.
type AdminHandler struct {
	lookupRepo  storage.LookupRepository
	llmCallRepo storage.LLMCallRepository
	llmEnabled  bool
	logger      *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(lookupRepo storage.LookupRepository, llmCallRepo storage.LLMCallRepository, llmEnabled bool, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		lookupRepo:  lookupRepo,
		llmCallRepo: llmCallRepo,
		llmEnabled:  llmEnabled,
		logger:      logger,
	}
}

// Stats returns lookup and LLM usage counters.
// Route: GET /api/v1/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	lookups, err := h.lookupRepo.Count(ctx)
	if err != nil {
		h.logger.Error("counting lookups", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	llmCalls, err := h.llmCallRepo.Count(ctx)
	if err != nil {
		h.logger.Error("counting llm calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	llmSuccessful, err := h.llmCallRepo.CountSuccessful(ctx)
	if err != nil {
		h.logger.Error("counting successful llm calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lookups":         lookups,
		"llm_enabled":     h.llmEnabled,
		"llm_calls":       llmCalls,
		"llm_calls_ok":    llmSuccessful,
		"llm_calls_error": llmCalls - llmSuccessful,
	})
}

// Lookups lists the most recent successful lookups.
// Route: GET /api/v1/admin/lookups?limit=20
func (h *AdminHandler) Lookups(c *gin.Context) {
	limit := defaultLookupLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxLookupLimit)
	}

	lookups, err := h.lookupRepo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("listing lookups", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(lookups),
		"lookups": lookups,
	})
}
