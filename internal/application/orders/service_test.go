package orders

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sellerdesk/backend/internal/domain/feed"
	"github.com/sellerdesk/backend/internal/domain/orders"
	"github.com/sellerdesk/backend/internal/domain/shared"
)

// MockOrderRepository is a mock implementation of orders.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, marketplace feed.Marketplace, orderID string) (*orders.Order, error) {
	args := m.Called(ctx, marketplace, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Order), args.Error(1)
}

func (m *MockOrderRepository) KnownIDs(ctx context.Context, marketplace feed.Marketplace, orderIDs []string) (map[string]bool, error) {
	args := m.Called(ctx, marketplace, orderIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *orders.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveSynced(ctx context.Context, order *orders.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateWorkflowField(ctx context.Context, marketplace feed.Marketplace, orderID string, field orders.WorkflowField, value interface{}) error {
	args := m.Called(ctx, marketplace, orderID, field, value)
	return args.Error(0)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]orders.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]orders.Order), args.Error(1)
}

func (m *MockOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) Delete(ctx context.Context, marketplace feed.Marketplace, orderID string) error {
	args := m.Called(ctx, marketplace, orderID)
	return args.Error(0)
}

func sampleOrder() *orders.Order {
	return orders.NewFromCanonical(feed.CanonicalOrder{
		OrderID:     "ord-1",
		Marketplace: feed.MarketplaceMercari,
		SellerCode:  "seller-1",
		BuyerName:   "Dana Field",
		Subtotal:    decimal.NewFromFloat(24.50),
		SoldAt:      time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC),
	})
}

func TestSetWorkflowFieldMessagingStatus(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := NewOrderService(repo)

	repo.On("FindByID", mock.Anything, feed.MarketplaceMercari, "ord-1").Return(sampleOrder(), nil)
	repo.On("UpdateWorkflowField", mock.Anything, feed.MarketplaceMercari, "ord-1",
		orders.FieldMessagingStatus, "ONGOING").Return(nil)

	resp, err := svc.SetWorkflowField(context.Background(), feed.MarketplaceMercari, "ord-1", UpdateWorkflowFieldRequest{
		Field: "messagingStatus",
		Value: "ONGOING",
	})
	require.NoError(t, err)
	assert.Equal(t, "ONGOING", resp.MessagingStatus)
	repo.AssertExpectations(t)
}

func TestSetWorkflowFieldRejectsSynchronizedField(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := NewOrderService(repo)

	_, err := svc.SetWorkflowField(context.Background(), feed.MarketplaceMercari, "ord-1", UpdateWorkflowFieldRequest{
		Field: "trackingNumber",
		Value: "1Z999",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidField)
	repo.AssertNotCalled(t, "UpdateWorkflowField", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetWorkflowFieldResolveRequiresNotes(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := NewOrderService(repo)

	repo.On("FindByID", mock.Anything, feed.MarketplaceMercari, "ord-1").Return(sampleOrder(), nil)

	_, err := svc.SetWorkflowField(context.Background(), feed.MarketplaceMercari, "ord-1", UpdateWorkflowFieldRequest{
		Field: "itemStatus",
		Value: "RESOLVED",
	})
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION", domainErr.Code)
	repo.AssertNotCalled(t, "UpdateWorkflowField", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetWorkflowFieldAdFeeOverride(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := NewOrderService(repo)

	repo.On("FindByID", mock.Anything, feed.MarketplaceMercari, "ord-1").Return(sampleOrder(), nil)
	repo.On("UpdateWorkflowField", mock.Anything, feed.MarketplaceMercari, "ord-1",
		orders.FieldAdFeeOverride, mock.Anything).Return(nil)

	resp, err := svc.SetWorkflowField(context.Background(), feed.MarketplaceMercari, "ord-1", UpdateWorkflowFieldRequest{
		Field: "adFeeOverride",
		Value: "4.505",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.AdFeeOverride)
	assert.True(t, resp.AdFeeOverride.Equal(decimal.NewFromFloat(4.51)), "override rounds to cents, got %s", resp.AdFeeOverride)
}

func TestSetWorkflowFieldAdFeeOverrideNegative(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := NewOrderService(repo)

	repo.On("FindByID", mock.Anything, feed.MarketplaceMercari, "ord-1").Return(sampleOrder(), nil)

	_, err := svc.SetWorkflowField(context.Background(), feed.MarketplaceMercari, "ord-1", UpdateWorkflowFieldRequest{
		Field: "adFeeOverride",
		Value: "-2.00",
	})
	require.Error(t, err)
	repo.AssertNotCalled(t, "UpdateWorkflowField", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetWorkflowFieldClearAdFeeOverride(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := NewOrderService(repo)

	order := sampleOrder()
	amount := decimal.NewFromFloat(3.00)
	require.NoError(t, order.SetAdFeeOverride(&amount))

	repo.On("FindByID", mock.Anything, feed.MarketplaceMercari, "ord-1").Return(order, nil)
	repo.On("UpdateWorkflowField", mock.Anything, feed.MarketplaceMercari, "ord-1",
		orders.FieldAdFeeOverride, decimal.NullDecimal{}).Return(nil)

	resp, err := svc.SetWorkflowField(context.Background(), feed.MarketplaceMercari, "ord-1", UpdateWorkflowFieldRequest{
		Field: "adFeeOverride",
		Value: nil,
	})
	require.NoError(t, err)
	assert.Nil(t, resp.AdFeeOverride)
	repo.AssertExpectations(t)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := NewOrderService(repo)

	repo.On("FindByID", mock.Anything, feed.MarketplaceEbay, "missing").Return(nil, shared.ErrNotFound)

	_, err := svc.GetByID(context.Background(), feed.MarketplaceEbay, "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListBuildsDayFilter(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := NewOrderService(repo)

	var captured shared.Filter
	repo.On("FindAll", mock.Anything, mock.MatchedBy(func(f shared.Filter) bool {
		captured = f
		return true
	})).Return([]orders.Order{}, nil)
	repo.On("Count", mock.Anything, mock.Anything).Return(int64(0), nil)

	_, err := svc.List(context.Background(), ListOrdersQuery{SoldOn: "2026-03-14"})
	require.NoError(t, err)

	from := captured.Filters["sold_from"].(time.Time)
	before := captured.Filters["sold_before"].(time.Time)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), before)
	assert.Equal(t, "sold_at", captured.OrderBy)
	assert.Equal(t, "desc", captured.OrderDir)
}

func TestListRejectsUnknownMarketplace(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := NewOrderService(repo)

	_, err := svc.List(context.Background(), ListOrdersQuery{Marketplace: "AMAZON"})
	require.Error(t, err)
	repo.AssertNotCalled(t, "FindAll", mock.Anything, mock.Anything)
}
