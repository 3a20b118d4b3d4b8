package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/nongtiensonpro/yellowcat/pkg/errors"
	"github.com/nongtiensonpro/yellowcat/pkg/pagination"
	"github.com/nongtiensonpro/yellowcat/pkg/validator"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/backend"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/domain"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/repository"
)

const promotionCollection = "promotions"

// PreviewInput asks what a promotion would deduct from a sample order.
type PreviewInput struct {
	Form        domain.PromotionForm `json:"promotion"`
	Subtotal    int64                `json:"subtotal" validate:"gte=0"`
	ShippingFee int64                `json:"shippingFee" validate:"gte=0"`
	// At defaults to the promotion's start date.
	At *time.Time `json:"at"`
}

// PromotionService manages promotions and vouchers on the backend.
type PromotionService struct {
	backend Backend
	pages   *pageCache
	logger  *slog.Logger
}

// NewPromotionService creates a new promotion service.
func NewPromotionService(b Backend, cache repository.ListCache, logger *slog.Logger) *PromotionService {
	return &PromotionService{
		backend: b,
		pages:   &pageCache{cache: cache, logger: logger},
		logger:  logger,
	}
}

// List returns one page of promotions. search filters by code or name.
func (s *PromotionService) List(ctx context.Context, params pagination.Params) (*pagination.Result[domain.Promotion], error) {
	var result pagination.Result[domain.Promotion]
	gen, hit := s.pages.get(ctx, promotionCollection, params, &result)
	if hit {
		return &result, nil
	}

	var page backend.Page[domain.Promotion]
	if err := s.backend.List(ctx, domain.PromotionBasePath, backend.ListQuery{
		Page:        params.BackendPage(),
		Size:        params.PerPage,
		SearchParam: "keyword",
		Search:      params.Search,
	}, &page); err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}

	result = pagination.NewResult(page.Content, page.TotalElements, params)
	s.pages.set(ctx, promotionCollection, gen, params, result)
	return &result, nil
}

// Get returns one promotion.
func (s *PromotionService) Get(ctx context.Context, id int64) (*domain.Promotion, error) {
	var p domain.Promotion
	if err := s.backend.Get(ctx, domain.PromotionBasePath, id, &p); err != nil {
		return nil, fmt.Errorf("get promotion %d: %w", id, err)
	}
	return &p, nil
}

// Create normalizes and validates the form, generating a code when none was
// given, then stores it.
func (s *PromotionService) Create(ctx context.Context, form domain.PromotionForm) (*domain.Promotion, error) {
	form.Normalize()
	if err := form.Validate(); err != nil {
		return nil, err
	}

	var p domain.Promotion
	if err := s.backend.Create(ctx, domain.PromotionBasePath, form, &p); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.AlreadyExists("promotion", "code", form.Code)
		}
		return nil, fmt.Errorf("create promotion %s: %w", form.Code, err)
	}
	s.pages.invalidate(ctx, promotionCollection)

	s.logger.InfoContext(ctx, "promotion created",
		slog.String("code", form.Code),
		slog.String("type", string(form.Type)),
	)
	return &p, nil
}

// Update normalizes, validates and replaces a promotion.
func (s *PromotionService) Update(ctx context.Context, id int64, form domain.PromotionForm) (*domain.Promotion, error) {
	form.Normalize()
	if err := form.Validate(); err != nil {
		return nil, err
	}

	var p domain.Promotion
	if err := s.backend.Update(ctx, domain.PromotionBasePath, id, form, &p); err != nil {
		return nil, fmt.Errorf("update promotion %d: %w", id, err)
	}
	s.pages.invalidate(ctx, promotionCollection)

	s.logger.InfoContext(ctx, "promotion updated", slog.Int64("id", id), slog.String("code", form.Code))
	return &p, nil
}

// Delete removes a promotion.
func (s *PromotionService) Delete(ctx context.Context, id int64) error {
	if err := s.backend.Delete(ctx, domain.PromotionBasePath, id); err != nil {
		return fmt.Errorf("delete promotion %d: %w", id, err)
	}
	s.pages.invalidate(ctx, promotionCollection)

	s.logger.InfoContext(ctx, "promotion deleted", slog.Int64("id", id))
	return nil
}

// Preview computes the deduction without touching the backend.
func (s *PromotionService) Preview(in PreviewInput) (domain.Preview, error) {
	in.Form.Normalize()
	if err := validator.Merge(validator.Validate(in), in.Form.Validate()); err != nil {
		return domain.Preview{}, err
	}

	at := in.Form.StartDate
	if in.At != nil {
		at = *in.At
	}
	return in.Form.Preview(in.Subtotal, in.ShippingFee, at), nil
}
