package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	apperrors "github.com/nongtiensonpro/yellowcat/pkg/errors"
	"github.com/nongtiensonpro/yellowcat/pkg/pagination"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/backend"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/domain"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/repository"
)

// Backend is the subset of *backend.Client the admin services use.
type Backend interface {
	List(ctx context.Context, basePath string, q backend.ListQuery, out any) error
	Get(ctx context.Context, basePath string, id int64, out any) error
	Create(ctx context.Context, basePath string, in, out any) error
	Update(ctx context.Context, basePath string, id int64, in, out any) error
	Delete(ctx context.Context, basePath string, id int64) error
}

// RefDataService manages every reference-data collection through one
// schema-driven code path.
type RefDataService struct {
	backend Backend
	pages   *pageCache
	logger  *slog.Logger
}

// NewRefDataService creates a new reference-data service.
func NewRefDataService(b Backend, cache repository.ListCache, logger *slog.Logger) *RefDataService {
	return &RefDataService{
		backend: b,
		pages:   &pageCache{cache: cache, logger: logger},
		logger:  logger,
	}
}

// List returns one page of a collection. search is forwarded to the
// backend's filter parameter.
func (s *RefDataService) List(ctx context.Context, kind string, params pagination.Params) (*pagination.Result[domain.Record], error) {
	schema, err := lookup(kind)
	if err != nil {
		return nil, err
	}

	var result pagination.Result[domain.Record]
	gen, hit := s.pages.get(ctx, string(schema.Kind), params, &result)
	if hit {
		return &result, nil
	}

	var page backend.Page[domain.Record]
	if err := s.backend.List(ctx, schema.BasePath, backend.ListQuery{
		Page:        params.BackendPage(),
		Size:        params.PerPage,
		SearchParam: schema.SearchParam,
		Search:      params.Search,
	}, &page); err != nil {
		return nil, fmt.Errorf("list %s: %w", schema.Kind, err)
	}

	result = pagination.NewResult(page.Content, page.TotalElements, params)
	s.pages.set(ctx, string(schema.Kind), gen, params, result)
	return &result, nil
}

// Get returns one record.
func (s *RefDataService) Get(ctx context.Context, kind string, id int64) (domain.Record, error) {
	schema, err := lookup(kind)
	if err != nil {
		return nil, err
	}

	var rec domain.Record
	if err := s.backend.Get(ctx, schema.BasePath, id, &rec); err != nil {
		return nil, fmt.Errorf("get %s %d: %w", schema.Label, id, err)
	}
	return rec, nil
}

// Create validates values against the collection's schema and stores them.
// Invalid input never reaches the backend.
func (s *RefDataService) Create(ctx context.Context, kind string, values map[string]any) (domain.Record, error) {
	schema, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	rec := schema.Sanitize(values)
	if err := schema.Validate(rec); err != nil {
		return nil, err
	}

	var created domain.Record
	if err := s.backend.Create(ctx, schema.BasePath, rec, &created); err != nil {
		return nil, fmt.Errorf("create %s: %w", schema.Label, err)
	}
	s.pages.invalidate(ctx, string(schema.Kind))

	s.logger.InfoContext(ctx, "reference data created", slog.String("kind", string(schema.Kind)))
	return created, nil
}

// Update validates values and replaces the record.
func (s *RefDataService) Update(ctx context.Context, kind string, id int64, values map[string]any) (domain.Record, error) {
	schema, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	rec := schema.Sanitize(values)
	if err := schema.Validate(rec); err != nil {
		return nil, err
	}

	var updated domain.Record
	if err := s.backend.Update(ctx, schema.BasePath, id, rec, &updated); err != nil {
		return nil, fmt.Errorf("update %s %d: %w", schema.Label, id, err)
	}
	s.pages.invalidate(ctx, string(schema.Kind))

	s.logger.InfoContext(ctx, "reference data updated",
		slog.String("kind", string(schema.Kind)),
		slog.Int64("id", id),
	)
	return updated, nil
}

// Delete removes a record.
func (s *RefDataService) Delete(ctx context.Context, kind string, id int64) error {
	schema, err := lookup(kind)
	if err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, schema.BasePath, id); err != nil {
		return fmt.Errorf("delete %s %d: %w", schema.Label, id, err)
	}
	s.pages.invalidate(ctx, string(schema.Kind))

	s.logger.InfoContext(ctx, "reference data deleted",
		slog.String("kind", string(schema.Kind)),
		slog.Int64("id", id),
	)
	return nil
}

func lookup(kind string) (domain.Schema, error) {
	schema, ok := domain.LookupSchema(kind)
	if !ok {
		return domain.Schema{}, apperrors.NotFound("collection", kind)
	}
	return schema, nil
}

// pageCache wraps a ListCache with JSON encoding. Cache failures are logged
// and otherwise ignored; the backend stays the source of truth.
type pageCache struct {
	cache  repository.ListCache
	logger *slog.Logger
}

func pageKey(p pagination.Params) string {
	return fmt.Sprintf("%d:%d:%s", p.Page, p.PerPage, p.Search)
}

// unknownGeneration marks a failed read; set skips the write.
const unknownGeneration int64 = -1

// get decodes a cached page into dst. The returned generation must be handed
// to set so a fetch that raced a write is filed under the retired generation.
func (c *pageCache) get(ctx context.Context, collection string, p pagination.Params, dst any) (int64, bool) {
	payload, gen, ok, err := c.cache.Get(ctx, collection, pageKey(p))
	if err != nil {
		c.logger.WarnContext(ctx, "list cache read failed",
			slog.String("collection", collection),
			slog.String("error", err.Error()),
		)
		listCacheLookups.WithLabelValues(collection, "miss").Inc()
		return unknownGeneration, false
	}
	if !ok {
		listCacheLookups.WithLabelValues(collection, "miss").Inc()
		return gen, false
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		c.logger.WarnContext(ctx, "discarding corrupt list cache entry",
			slog.String("collection", collection),
			slog.String("error", err.Error()),
		)
		listCacheLookups.WithLabelValues(collection, "miss").Inc()
		return gen, false
	}
	listCacheLookups.WithLabelValues(collection, "hit").Inc()
	return gen, true
}

func (c *pageCache) set(ctx context.Context, collection string, gen int64, p pagination.Params, v any) {
	if gen == unknownGeneration {
		return
	}
	payload, err := json.Marshal(v)
	if err == nil {
		err = c.cache.Set(ctx, collection, gen, pageKey(p), payload)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "list cache write failed",
			slog.String("collection", collection),
			slog.String("error", err.Error()),
		)
	}
}

func (c *pageCache) invalidate(ctx context.Context, collection string) {
	if err := c.cache.Invalidate(ctx, collection); err != nil {
		c.logger.ErrorContext(ctx, "list cache invalidation failed",
			slog.String("collection", collection),
			slog.String("error", err.Error()),
		)
	}
}
