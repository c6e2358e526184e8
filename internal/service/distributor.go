package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidemark/stockroom/internal/domain"
	"github.com/tidemark/stockroom/internal/repository"
)

// DistributorService implements the business logic for distributor records.
type DistributorService struct {
	distributors repository.DistributorRepository
	logger       *slog.Logger
}

// NewDistributorService creates a new distributor service.
func NewDistributorService(distributors repository.DistributorRepository, logger *slog.Logger) *DistributorService {
	return &DistributorService{
		distributors: distributors,
		logger:       logger,
	}
}

// DistributorInput holds the writable fields of a distributor.
type DistributorInput struct {
	Name          string
	ContactPerson string
	Email         string
	Phone         string
	Location      string
	Address       string
	Notes         string
}

// CreateDistributor persists a new distributor record.
func (s *DistributorService) CreateDistributor(ctx context.Context, input DistributorInput) (*domain.Distributor, error) {
	now := time.Now().UTC()
	d := &domain.Distributor{
		Name:          input.Name,
		ContactPerson: input.ContactPerson,
		Email:         input.Email,
		Phone:         input.Phone,
		Location:      input.Location,
		Address:       input.Address,
		Notes:         input.Notes,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.distributors.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create distributor: %w", err)
	}

	s.logger.InfoContext(ctx, "distributor created",
		slog.Int64("distributor_id", d.ID),
		slog.String("name", d.Name),
	)

	return d, nil
}

// GetDistributor retrieves a distributor by its ID.
func (s *DistributorService) GetDistributor(ctx context.Context, id int64) (*domain.Distributor, error) {
	d, err := s.distributors.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get distributor by id: %w", err)
	}
	return d, nil
}

// ListDistributors returns a searched, paginated list of distributors.
func (s *DistributorService) ListDistributors(ctx context.Context, search string, includeInactive bool, page, perPage int) ([]domain.Distributor, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	distributors, total, err := s.distributors.List(ctx, search, includeInactive, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list distributors: %w", err)
	}
	return distributors, total, nil
}

// UpdateDistributor replaces a distributor's writable fields.
func (s *DistributorService) UpdateDistributor(ctx context.Context, id int64, input DistributorInput) (*domain.Distributor, error) {
	d, err := s.distributors.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get distributor for update: %w", err)
	}

	d.Name = input.Name
	d.ContactPerson = input.ContactPerson
	d.Email = input.Email
	d.Phone = input.Phone
	d.Location = input.Location
	d.Address = input.Address
	d.Notes = input.Notes

	if err := s.distributors.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("update distributor: %w", err)
	}

	return d, nil
}

// DeleteDistributor removes a distributor, or deactivates it instead when
// items reference it.
func (s *DistributorService) DeleteDistributor(ctx context.Context, id int64) (deactivated bool, err error) {
	deactivated, err = deleteOrDeactivate(ctx, deletePolicy{
		count:      func(ctx context.Context) (int, error) { return s.distributors.CountItems(ctx, id) },
		deactivate: func(ctx context.Context) error { return s.distributors.Deactivate(ctx, id) },
		delete:     func(ctx context.Context) error { return s.distributors.Delete(ctx, id) },
	})
	if err != nil {
		return false, fmt.Errorf("delete distributor: %w", err)
	}

	s.logger.InfoContext(ctx, "distributor removed",
		slog.Int64("distributor_id", id),
		slog.Bool("deactivated", deactivated),
	)

	return deactivated, nil
}
