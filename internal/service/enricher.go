package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fleveque/citysnap-gateway/internal/model"
)

const (
	photoProvided = "The user provided a photo of the building"
	photoMissing  = "no photo provided"
)

// LLMQuerier is the slice of llm.Facade the enricher needs.
type LLMQuerier interface {
	QueryBuildingInfo(ctx context.Context, address, photoContext, providerName string) (*model.LLMQueryResult, error)
}

// LLMEnricher fills missing year, architect and history from an LLM. It
// never fails: an unconfigured facade, an exhausted budget or a provider
// error all leave the profile unchanged.
type LLMEnricher struct {
	llm     LLMQuerier // nil when no provider is configured
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewLLMEnricher creates an enricher. llm may be nil. ratePerMinute caps
// paid LLM calls per minute, allowing that many back-to-back; zero or less
// means unlimited.
func NewLLMEnricher(llm LLMQuerier, ratePerMinute int, logger *zap.Logger) *LLMEnricher {
	limit, burst := rate.Inf, 1
	if ratePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(ratePerMinute))
		burst = ratePerMinute
	}
	return &LLMEnricher{
		llm:     llm,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Enrich returns the profile with LLM-derived values merged into its empty
// fields and whether anything changed.
func (e *LLMEnricher) Enrich(ctx context.Context, profile model.BuildingProfile, address string, hasPhoto bool) (model.BuildingProfile, bool) {
	if e.llm == nil {
		e.logger.Info("LLM facade not configured, skipping enrichment")
		return profile, false
	}

	// Never block the request waiting for budget.
	if !e.limiter.Allow() {
		e.logger.Warn("LLM enrichment budget exhausted, skipping enrichment")
		return profile, false
	}

	photoContext := photoMissing
	if hasPhoto {
		photoContext = photoProvided
	}

	result, err := e.llm.QueryBuildingInfo(ctx, addressHint(address, profile), photoContext, "")
	if err != nil {
		e.logger.Warn("LLM provider failed to enrich response", zap.Error(err))
		return profile, false
	}
	if result.Empty() {
		return profile, false
	}

	return profile.MergeMissing(result)
}

func addressHint(address string, profile model.BuildingProfile) string {
	if address != "" {
		return address
	}
	if profile.Location != nil {
		return "coordinates " + profile.Location.String()
	}
	return ""
}
