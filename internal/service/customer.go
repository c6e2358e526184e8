package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidemark/stockroom/internal/domain"
	"github.com/tidemark/stockroom/internal/repository"
)

// CustomerService implements the business logic for customer records.
type CustomerService struct {
	customers repository.CustomerRepository
	orders    repository.OrderRepository
	logger    *slog.Logger
}

// NewCustomerService creates a new customer service.
func NewCustomerService(customers repository.CustomerRepository, orders repository.OrderRepository, logger *slog.Logger) *CustomerService {
	return &CustomerService{
		customers: customers,
		orders:    orders,
		logger:    logger,
	}
}

// CustomerInput holds the writable fields of a customer.
type CustomerInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
	City    string
	State   string
	ZipCode string
	Notes   string
}

// CreateCustomer persists a new customer record.
func (s *CustomerService) CreateCustomer(ctx context.Context, input CustomerInput) (*domain.Customer, error) {
	now := time.Now().UTC()
	c := &domain.Customer{
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Address:   input.Address,
		City:      input.City,
		State:     input.State,
		ZipCode:   input.ZipCode,
		Notes:     input.Notes,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.customers.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	s.logger.InfoContext(ctx, "customer created",
		slog.Int64("customer_id", c.ID),
		slog.String("name", c.Name),
	)

	return c, nil
}

// GetCustomer retrieves a customer by its ID.
func (s *CustomerService) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	c, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer by id: %w", err)
	}
	return c, nil
}

// ListCustomers returns a searched, paginated list of customers.
func (s *CustomerService) ListCustomers(ctx context.Context, search string, includeInactive bool, page, perPage int) ([]domain.Customer, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	customers, total, err := s.customers.List(ctx, search, includeInactive, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	return customers, total, nil
}

// UpdateCustomer replaces a customer's writable fields.
func (s *CustomerService) UpdateCustomer(ctx context.Context, id int64, input CustomerInput) (*domain.Customer, error) {
	c, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer for update: %w", err)
	}

	c.Name = input.Name
	c.Email = input.Email
	c.Phone = input.Phone
	c.Address = input.Address
	c.City = input.City
	c.State = input.State
	c.ZipCode = input.ZipCode
	c.Notes = input.Notes

	if err := s.customers.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}

	return c, nil
}

// DeleteCustomer removes a customer, or deactivates it instead when orders
// reference it so order history stays intact.
func (s *CustomerService) DeleteCustomer(ctx context.Context, id int64) (deactivated bool, err error) {
	deactivated, err = deleteOrDeactivate(ctx, deletePolicy{
		count:      func(ctx context.Context) (int, error) { return s.orders.CountByCustomer(ctx, id) },
		deactivate: func(ctx context.Context) error { return s.customers.Deactivate(ctx, id) },
		delete:     func(ctx context.Context) error { return s.customers.Delete(ctx, id) },
	})
	if err != nil {
		return false, fmt.Errorf("delete customer: %w", err)
	}

	s.logger.InfoContext(ctx, "customer removed",
		slog.Int64("customer_id", id),
		slog.Bool("deactivated", deactivated),
	)

	return deactivated, nil
}
