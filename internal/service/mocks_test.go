package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tidemark/stockroom/internal/domain"
	"github.com/tidemark/stockroom/internal/event"
	"github.com/tidemark/stockroom/internal/repository"
	pkgkafka "github.com/tidemark/stockroom/pkg/kafka"
)

// --- Mock repositories ---

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) ListByCustomer(ctx context.Context, customerID int64, page, perPage int) ([]domain.Order, int, error) {
	args := m.Called(ctx, customerID, page, perPage)
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) Update(ctx context.Context, id int64, update repository.OrderUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockOrderRepository) CountByCustomer(ctx context.Context, customerID int64) (int, error) {
	args := m.Called(ctx, customerID)
	return args.Int(0), args.Error(1)
}

type mockItemRepository struct {
	mock.Mock
}

func (m *mockItemRepository) Create(ctx context.Context, item *domain.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

func (m *mockItemRepository) List(ctx context.Context, filter repository.ItemFilter) ([]domain.Item, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Item), args.Int(1), args.Error(2)
}

func (m *mockItemRepository) Update(ctx context.Context, item *domain.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockItemRepository) SetStock(ctx context.Context, id string, newStock int, note string, performedBy int64) (*domain.Item, error) {
	args := m.Called(ctx, id, newStock, note, performedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

func (m *mockItemRepository) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockItemRepository) CountOrderLines(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *mockItemRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockItemRepository) Deactivate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockCustomerRepository struct {
	mock.Mock
}

func (m *mockCustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCustomerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *mockCustomerRepository) List(ctx context.Context, search string, includeInactive bool, page, perPage int) ([]domain.Customer, int, error) {
	args := m.Called(ctx, search, includeInactive, page, perPage)
	return args.Get(0).([]domain.Customer), args.Int(1), args.Error(2)
}

func (m *mockCustomerRepository) Update(ctx context.Context, c *domain.Customer) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCustomerRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCustomerRepository) Deactivate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockDistributorRepository struct {
	mock.Mock
}

func (m *mockDistributorRepository) Create(ctx context.Context, d *domain.Distributor) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDistributorRepository) GetByID(ctx context.Context, id int64) (*domain.Distributor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Distributor), args.Error(1)
}

func (m *mockDistributorRepository) List(ctx context.Context, search string, includeInactive bool, page, perPage int) ([]domain.Distributor, int, error) {
	args := m.Called(ctx, search, includeInactive, page, perPage)
	return args.Get(0).([]domain.Distributor), args.Int(1), args.Error(2)
}

func (m *mockDistributorRepository) Update(ctx context.Context, d *domain.Distributor) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDistributorRepository) CountItems(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *mockDistributorRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockDistributorRepository) Deactivate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockWarehouseLogRepository struct {
	mock.Mock
}

func (m *mockWarehouseLogRepository) Create(ctx context.Context, log *domain.WarehouseLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *mockWarehouseLogRepository) CreateWithStockAdjust(ctx context.Context, log *domain.WarehouseLog, delta int) (*domain.Item, error) {
	args := m.Called(ctx, log, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

func (m *mockWarehouseLogRepository) GetByID(ctx context.Context, id int64) (*domain.WarehouseLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WarehouseLog), args.Error(1)
}

func (m *mockWarehouseLogRepository) List(ctx context.Context, filter repository.WarehouseLogFilter) ([]domain.WarehouseLog, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.WarehouseLog), args.Int(1), args.Error(2)
}

func (m *mockWarehouseLogRepository) Summary(ctx context.Context, dateFrom, dateTo *time.Time) ([]repository.MovementSummary, error) {
	args := m.Called(ctx, dateFrom, dateTo)
	return args.Get(0).([]repository.MovementSummary), args.Error(1)
}

func (m *mockWarehouseLogRepository) Update(ctx context.Context, id int64, status domain.MovementStatus, notes *string) error {
	args := m.Called(ctx, id, status, notes)
	return args.Error(0)
}

func (m *mockWarehouseLogRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// --- Test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestProducer returns a producer wired to an unreachable broker. Publish
// failures are non-fatal everywhere, so services still succeed in tests.
func newTestProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}
