package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fleveque/citysnap-gateway/internal/model"
)

// LookupRepository records successful building-info requests.
type LookupRepository interface {
	Create(ctx context.Context, lookup *model.Lookup) error
	Count(ctx context.Context) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]model.Lookup, error)
}

type sqliteLookupRepository struct {
	db *sqlx.DB
}

// NewLookupRepository creates a new SQLite-backed LookupRepository.
func NewLookupRepository(db *sqlx.DB) LookupRepository {
	return &sqliteLookupRepository{db: db}
}

func (r *sqliteLookupRepository) Create(ctx context.Context, lookup *model.Lookup) error {
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO lookups (osm_id, address, lat, lon, name, sources, image_path)
		VALUES (:osm_id, :address, :lat, :lon, :name, :sources, :image_path)
	`, lookup)
	if err != nil {
		return fmt.Errorf("creating lookup: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	lookup.ID = id
	return nil
}

func (r *sqliteLookupRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM lookups")
	return count, err
}

// ListRecent returns the newest lookups first.
func (r *sqliteLookupRepository) ListRecent(ctx context.Context, limit int) ([]model.Lookup, error) {
	var lookups []model.Lookup
	err := r.db.SelectContext(ctx, &lookups,
		"SELECT * FROM lookups ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing lookups: %w", err)
	}
	return lookups, nil
}

// LLMCallRepository handles persistence of LLM call tracking.
type LLMCallRepository interface {
	Create(ctx context.Context, call *model.LLMCall) error
	Count(ctx context.Context) (int64, error)
	CountSuccessful(ctx context.Context) (int64, error)
}

type sqliteLLMCallRepository struct {
	db *sqlx.DB
}

// NewLLMCallRepository creates a new SQLite-backed LLMCallRepository.
func NewLLMCallRepository(db *sqlx.DB) LLMCallRepository {
	return &sqliteLLMCallRepository{db: db}
}

func (r *sqliteLLMCallRepository) Create(ctx context.Context, call *model.LLMCall) error {
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO llm_calls (address_hint, provider, model, success, duration_ms)
		VALUES (:address_hint, :provider, :model, :success, :duration_ms)
	`, call)
	if err != nil {
		return fmt.Errorf("creating llm call record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	call.ID = id
	return nil
}

func (r *sqliteLLMCallRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM llm_calls")
	return count, err
}

func (r *sqliteLLMCallRepository) CountSuccessful(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM llm_calls WHERE success = 1")
	return count, err
}
