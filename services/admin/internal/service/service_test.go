package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nongtiensonpro/yellowcat/pkg/discount"
	apperrors "github.com/nongtiensonpro/yellowcat/pkg/errors"
	"github.com/nongtiensonpro/yellowcat/pkg/pagination"
	"github.com/nongtiensonpro/yellowcat/pkg/validator"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/backend"
	"github.com/nongtiensonpro/yellowcat/services/admin/internal/domain"
)

// ============================================================================
// Test doubles
// ============================================================================

type mockBackend struct {
	mock.Mock
}

// fill copies v into out through JSON, the way the real client decodes.
func fill(out, v any) {
	b, _ := json.Marshal(v)
	_ = json.Unmarshal(b, out)
}

func (m *mockBackend) List(ctx context.Context, basePath string, q backend.ListQuery, out any) error {
	args := m.Called(ctx, basePath, q)
	if v := args.Get(0); v != nil {
		fill(out, v)
	}
	return args.Error(1)
}

func (m *mockBackend) Get(ctx context.Context, basePath string, id int64, out any) error {
	args := m.Called(ctx, basePath, id)
	if v := args.Get(0); v != nil {
		fill(out, v)
	}
	return args.Error(1)
}

func (m *mockBackend) Create(ctx context.Context, basePath string, in, out any) error {
	args := m.Called(ctx, basePath, in)
	if v := args.Get(0); v != nil {
		fill(out, v)
	}
	return args.Error(1)
}

func (m *mockBackend) Update(ctx context.Context, basePath string, id int64, in, out any) error {
	args := m.Called(ctx, basePath, id, in)
	if v := args.Get(0); v != nil {
		fill(out, v)
	}
	return args.Error(1)
}

func (m *mockBackend) Delete(ctx context.Context, basePath string, id int64) error {
	return m.Called(ctx, basePath, id).Error(0)
}

type memoryCache struct {
	mu      sync.Mutex
	pages   map[string][]byte
	gens    map[string]int64
	failGet bool
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{pages: map[string][]byte{}, gens: map[string]int64{}}
}

func pageSlot(collection string, gen int64, page string) string {
	return fmt.Sprintf("%s|%d|%s", collection, gen, page)
}

func (c *memoryCache) Get(_ context.Context, collection, page string) ([]byte, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, 0, false, errors.New("cache down")
	}
	gen := c.gens[collection]
	b, ok := c.pages[pageSlot(collection, gen, page)]
	return b, gen, ok, nil
}

func (c *memoryCache) Set(_ context.Context, collection string, gen int64, page string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.pages[pageSlot(collection, gen, page)] = payload
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, collection string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[collection]++
	return nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func colorPage() backend.Page[domain.Record] {
	return backend.Page[domain.Record]{
		Content:       []domain.Record{{"id": 1, "name": "Đỏ"}, {"id": 2, "name": "Xanh"}},
		TotalElements: 22,
		TotalPages:    3,
	}
}

// ============================================================================
// RefDataService
// ============================================================================

func TestRefData_ListMapsPaginationAndCaches(t *testing.T) {
	b := new(mockBackend)
	svc := NewRefDataService(b, newMemoryCache(), newTestLogger())
	params := pagination.Params{Page: 2, PerPage: 10, Search: "đỏ"}

	b.On("List", mock.Anything, "/api/colors", backend.ListQuery{
		Page: 1, Size: 10, SearchParam: "name", Search: "đỏ",
	}).Return(colorPage(), nil).Once()

	res, err := svc.List(context.Background(), "colors", params)
	require.NoError(t, err)
	assert.Len(t, res.Data, 2)
	assert.Equal(t, 22, res.TotalCount)
	assert.Equal(t, 3, res.TotalPages)
	assert.True(t, res.HasNext)
	assert.True(t, res.HasPrev)

	// Second call is served from cache.
	res, err = svc.List(context.Background(), "colors", params)
	require.NoError(t, err)
	assert.Len(t, res.Data, 2)
	b.AssertExpectations(t)
}

func TestRefData_WriteInvalidatesList(t *testing.T) {
	b := new(mockBackend)
	svc := NewRefDataService(b, newMemoryCache(), newTestLogger())
	params := pagination.DefaultParams()

	b.On("List", mock.Anything, "/api/colors", mock.Anything).Return(colorPage(), nil).Twice()
	b.On("Create", mock.Anything, "/api/colors", domain.Record{"name": "Tím"}).
		Return(domain.Record{"id": 3, "name": "Tím"}, nil).Once()

	_, err := svc.List(context.Background(), "colors", params)
	require.NoError(t, err)

	created, err := svc.Create(context.Background(), "colors", map[string]any{"name": " Tím ", "id": 99})
	require.NoError(t, err)
	assert.Equal(t, "Tím", created["name"])

	_, err = svc.List(context.Background(), "colors", params)
	require.NoError(t, err)
	b.AssertExpectations(t)
}

func TestRefData_WriteDuringListIsNotMasked(t *testing.T) {
	b := new(mockBackend)
	svc := NewRefDataService(b, newMemoryCache(), newTestLogger())
	params := pagination.DefaultParams()
	shirts := backend.Page[domain.Record]{Content: []domain.Record{{"id": 1, "name": "Shirts"}}, TotalElements: 1}
	both := backend.Page[domain.Record]{
		Content:       []domain.Record{{"id": 1, "name": "Shirts"}, {"id": 2, "name": "Shoes"}},
		TotalElements: 2,
	}

	b.On("Create", mock.Anything, "/api/categories", domain.Record{"name": "Shoes"}).
		Return(domain.Record{"id": 2, "name": "Shoes"}, nil).Once()
	// Another admin creates a category while the first page is in flight.
	b.On("List", mock.Anything, "/api/categories", mock.Anything).Return(shirts, nil).Once().
		Run(func(mock.Arguments) {
			_, err := svc.Create(context.Background(), "categories", map[string]any{"name": "Shoes"})
			require.NoError(t, err)
		})
	b.On("List", mock.Anything, "/api/categories", mock.Anything).Return(both, nil).Once()

	res, err := svc.List(context.Background(), "categories", params)
	require.NoError(t, err)
	assert.Len(t, res.Data, 1)

	res, err = svc.List(context.Background(), "categories", params)
	require.NoError(t, err)
	require.Len(t, res.Data, 2)
	assert.Equal(t, "Shoes", res.Data[1]["name"])
	b.AssertExpectations(t)
}

func TestRefData_CacheFailureFallsThrough(t *testing.T) {
	b := new(mockBackend)
	cache := newMemoryCache()
	cache.failGet = true
	svc := NewRefDataService(b, cache, newTestLogger())

	b.On("List", mock.Anything, "/api/sizes", mock.Anything).Return(colorPage(), nil)

	res, err := svc.List(context.Background(), "sizes", pagination.DefaultParams())
	require.NoError(t, err)
	assert.Len(t, res.Data, 2)
	assert.Zero(t, cache.sets, "a page is not stored under a generation that could not be read")
}

func TestRefData_EmptyNameBlocksBackend(t *testing.T) {
	b := new(mockBackend)
	svc := NewRefDataService(b, newMemoryCache(), newTestLogger())

	_, err := svc.Create(context.Background(), "categories", map[string]any{"name": ""})

	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "is required", ve.Fields()["name"])
	b.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefData_UnknownKind(t *testing.T) {
	svc := NewRefDataService(new(mockBackend), newMemoryCache(), newTestLogger())

	_, err := svc.List(context.Background(), "brands", pagination.DefaultParams())

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRefData_UpdateAndDelete(t *testing.T) {
	b := new(mockBackend)
	svc := NewRefDataService(b, newMemoryCache(), newTestLogger())
	ctx := context.Background()

	b.On("Update", mock.Anything, "/api/sizes", int64(4), domain.Record{"name": "XL", "description": "Extra large"}).
		Return(domain.Record{"id": 4, "name": "XL"}, nil)
	b.On("Delete", mock.Anything, "/api/sizes", int64(4)).Return(nil)

	_, err := svc.Update(ctx, "sizes", 4, map[string]any{"name": "XL", "description": "Extra large"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "sizes", 4))
	b.AssertExpectations(t)
}

func TestRefData_BackendErrorWrapped(t *testing.T) {
	b := new(mockBackend)
	svc := NewRefDataService(b, newMemoryCache(), newTestLogger())

	b.On("Get", mock.Anything, "/api/colors", int64(9)).Return(nil, apperrors.NotFound("color", "9"))

	_, err := svc.Get(context.Background(), "colors", 9)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "get color 9")
}

// ============================================================================
// PromotionService
// ============================================================================

func promoForm() domain.PromotionForm {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	return domain.PromotionForm{
		Name:      "Hè rực rỡ",
		Type:      discount.Percentage,
		Value:     decimal.NewFromInt(15),
		StartDate: start,
		EndDate:   start.AddDate(0, 1, 0),
	}
}

func TestPromotion_CreateGeneratesCode(t *testing.T) {
	b := new(mockBackend)
	svc := NewPromotionService(b, newMemoryCache(), newTestLogger())

	var sent domain.PromotionForm
	b.On("Create", mock.Anything, domain.PromotionBasePath, mock.AnythingOfType("domain.PromotionForm")).
		Run(func(args mock.Arguments) { sent = args.Get(2).(domain.PromotionForm) }).
		Return(map[string]any{"id": 11}, nil)

	p, err := svc.Create(context.Background(), promoForm())

	require.NoError(t, err)
	assert.Equal(t, int64(11), p.ID)
	assert.Regexp(t, `^HE-RUC-RO-[A-Z0-9]{4}$`, sent.Code)
}

func TestPromotion_CreateDuplicateCode(t *testing.T) {
	b := new(mockBackend)
	cache := newMemoryCache()
	svc := NewPromotionService(b, cache, newTestLogger())

	form := promoForm()
	form.Code = "summer10"
	b.On("Create", mock.Anything, domain.PromotionBasePath, mock.Anything).
		Return(nil, apperrors.Conflict("backend: duplicate"))

	_, err := svc.Create(context.Background(), form)

	require.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Contains(t, err.Error(), `"SUMMER10"`)
	assert.Zero(t, cache.gens[promotionCollection])
}

func TestPromotion_CreateRejectsInvalid(t *testing.T) {
	b := new(mockBackend)
	svc := NewPromotionService(b, newMemoryCache(), newTestLogger())

	form := promoForm()
	form.Value = decimal.NewFromInt(150)
	form.EndDate = form.StartDate.Add(-time.Hour)

	_, err := svc.Create(context.Background(), form)

	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields(), "discountValue")
	assert.Contains(t, ve.Fields(), "endDate")
	b.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestPromotion_ListUsesKeywordAndCache(t *testing.T) {
	b := new(mockBackend)
	svc := NewPromotionService(b, newMemoryCache(), newTestLogger())
	params := pagination.Params{Page: 1, PerPage: 20, Search: "SUMMER"}

	b.On("List", mock.Anything, domain.PromotionBasePath, backend.ListQuery{
		Page: 0, Size: 20, SearchParam: "keyword", Search: "SUMMER",
	}).Return(map[string]any{
		"content":       []map[string]any{{"id": 1, "promotionCode": "SUMMER10"}},
		"totalElements": 1,
	}, nil).Once()

	for range 2 {
		res, err := svc.List(context.Background(), params)
		require.NoError(t, err)
		require.Len(t, res.Data, 1)
		assert.Equal(t, "SUMMER10", res.Data[0].Code)
	}
	b.AssertExpectations(t)
}

func TestPromotion_DeleteInvalidatesList(t *testing.T) {
	b := new(mockBackend)
	cache := newMemoryCache()
	svc := NewPromotionService(b, cache, newTestLogger())

	b.On("Delete", mock.Anything, domain.PromotionBasePath, int64(5)).Return(nil)

	require.NoError(t, svc.Delete(context.Background(), 5))
	assert.Equal(t, int64(1), cache.gens[promotionCollection])
}

func TestPromotion_Preview(t *testing.T) {
	svc := NewPromotionService(new(mockBackend), newMemoryCache(), newTestLogger())

	p, err := svc.Preview(PreviewInput{Form: promoForm(), Subtotal: 200000, ShippingFee: 30000})

	require.NoError(t, err)
	assert.True(t, p.Eligible)
	assert.Equal(t, int64(30000), p.Discount)
	assert.Equal(t, int64(200000), p.Total)
}

func TestPromotion_PreviewValidates(t *testing.T) {
	svc := NewPromotionService(new(mockBackend), newMemoryCache(), newTestLogger())

	_, err := svc.Preview(PreviewInput{Form: promoForm(), Subtotal: -1})

	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields(), "subtotal")
}
