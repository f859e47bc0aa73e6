package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"foodloop/internal/foodloop/models"
	"foodloop/internal/foodloop/repository"
)

type CreateDonationInput struct {
	Title         string  `json:"title" yaml:"title"`
	Description   string  `json:"description" yaml:"description"`
	Category      string  `json:"category" yaml:"category"`
	Quantity      int     `json:"quantity" yaml:"quantity"`
	Unit          string  `json:"unit" yaml:"unit"`
	PickupAddress string  `json:"pickup_address" yaml:"pickup_address"`
	Lat           float64 `json:"lat" yaml:"lat"`
	Lng           float64 `json:"lng" yaml:"lng"`
	ExpiresAt     string  `json:"expires_at" yaml:"expires_at"`
}

// ============================================================
// Donation Service
// ============================================================

type DonationService struct {
	repo    *repository.Repository
	storage *FileStorage
	logger  *zap.Logger
}

func NewDonationService(repo *repository.Repository, storage *FileStorage, logger *zap.Logger) *DonationService {
	return &DonationService{repo: repo, storage: storage, logger: logger}
}

func (s *DonationService) Create(ctx context.Context, actor Actor, in CreateDonationInput) (*models.Donation, error) {
	if !actor.Is(models.RoleDonor) {
		return nil, fmt.Errorf("%w: only donors create donations", ErrForbidden)
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, invalid("title required")
	}
	if in.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}
	if err := validateCoords(in.Lat, in.Lng); err != nil {
		return nil, err
	}
	if in.ExpiresAt != "" {
		if _, err := time.Parse(time.RFC3339, in.ExpiresAt); err != nil {
			return nil, invalid("expires_at must be RFC3339")
		}
	}

	d := &models.Donation{
		ID:            uuid.NewString(),
		DonorID:       actor.ID,
		Title:         in.Title,
		Description:   in.Description,
		Category:      in.Category,
		Quantity:      in.Quantity,
		Unit:          in.Unit,
		PickupAddress: in.PickupAddress,
		Lat:           in.Lat,
		Lng:           in.Lng,
		ExpiresAt:     in.ExpiresAt,
		Status:        models.StatusPending,
	}
	if err := s.repo.CreateDonation(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info("donation created", zap.String("donation_id", d.ID), zap.String("donor_id", actor.ID))
	return d, nil
}

// List возвращает пожертвования, видимые актору.
func (s *DonationService) List(ctx context.Context, actor Actor, status models.DonationStatus) ([]models.Donation, error) {
	if status != "" && !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}

	var filters []models.DonationFilter
	switch actor.Role {
	case models.RoleAdmin:
		filters = []models.DonationFilter{{}}
	case models.RoleDonor:
		filters = []models.DonationFilter{{DonorID: actor.ID}}
	case models.RoleReceiver:
		filters = []models.DonationFilter{
			{Status: models.StatusApproved, ReceiverID: ""},
			{ReceiverID: actor.ID},
		}
	case models.RoleDriver:
		filters = []models.DonationFilter{
			{Status: models.StatusApproved, Unassigned: true},
			{DriverID: actor.ID},
		}
	default:
		return nil, ErrForbidden
	}

	seen := make(map[string]bool)
	out := []models.Donation{}
	for _, f := range filters {
		if status != "" {
			if f.Status != "" && f.Status != status {
				continue
			}
			f.Status = status
		}
		items, err := s.repo.ListDonations(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, d := range items {
			if seen[d.ID] || !s.canView(actor, &d) {
				continue
			}
			seen[d.ID] = true
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *DonationService) Get(ctx context.Context, actor Actor, id string) (*models.Donation, error) {
	d, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, d) {
		return nil, ErrForbidden
	}
	return d, nil
}

func (s *DonationService) canView(actor Actor, d *models.Donation) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDonor:
		return d.DonorID == actor.ID
	case models.RoleReceiver:
		return d.ReceiverID == actor.ID || (d.Status == models.StatusApproved && d.ReceiverID == "")
	case models.RoleDriver:
		return d.DriverID == actor.ID || (d.Status == models.StatusApproved && d.DriverID == "" && d.ReceiverID != "")
	}
	return false
}

// ============================================================
// Lifecycle
// ============================================================

func (s *DonationService) Approve(ctx context.Context, actor Actor, id string) (*models.Donation, error) {
	if !actor.Is(models.RoleAdmin) {
		return nil, ErrForbidden
	}
	return s.transition(ctx, actor, id, models.StatusApproved, repository.StatusChange{})
}

func (s *DonationService) Reject(ctx context.Context, actor Actor, id string) (*models.Donation, error) {
	if !actor.Is(models.RoleAdmin) {
		return nil, ErrForbidden
	}
	return s.transition(ctx, actor, id, models.StatusRejected, repository.StatusChange{})
}

func (s *DonationService) Cancel(ctx context.Context, actor Actor, id string) (*models.Donation, error) {
	d, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Is(models.RoleAdmin) && !(actor.Is(models.RoleDonor) && d.DonorID == actor.ID) {
		return nil, ErrForbidden
	}
	return s.transition(ctx, actor, id, models.StatusCancelled, repository.StatusChange{})
}

// Claim закрепляет одобренное пожертвование за получателем.
func (s *DonationService) Claim(ctx context.Context, actor Actor, id string) (*models.Donation, error) {
	if !actor.Is(models.RoleReceiver) {
		return nil, ErrForbidden
	}
	d, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != models.StatusApproved {
		return nil, fmt.Errorf("%w: only approved donations can be claimed (status %s)", ErrInvalidTransition, d.Status)
	}
	if d.ReceiverID != "" {
		return nil, fmt.Errorf("%w: already claimed", repository.ErrConflict)
	}

	claimed, err := s.repo.SetReceiver(ctx, id, actor.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("donation claimed", zap.String("donation_id", id), zap.String("receiver_id", actor.ID))
	return claimed, nil
}

// Assign назначает водителя. Админ указывает driverID, водитель берёт себе.
func (s *DonationService) Assign(ctx context.Context, actor Actor, id, driverID string) (*models.Donation, error) {
	switch {
	case actor.Is(models.RoleDriver):
		if driverID != "" && driverID != actor.ID {
			return nil, fmt.Errorf("%w: drivers can only assign themselves", ErrForbidden)
		}
		driverID = actor.ID
	case actor.Is(models.RoleAdmin):
		if driverID == "" {
			return nil, invalid("driver_id required")
		}
		driver, err := s.repo.GetUserByID(ctx, driverID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, invalid("driver %s not found", driverID)
			}
			return nil, err
		}
		if driver.Role != models.RoleDriver {
			return nil, invalid("user %s is not a driver", driverID)
		}
	default:
		return nil, ErrForbidden
	}

	d, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status == models.StatusApproved && d.ReceiverID == "" {
		return nil, invalid("donation has no receiver yet")
	}
	return s.transition(ctx, actor, id, models.StatusAssigned, repository.StatusChange{DriverID: &driverID})
}

func (s *DonationService) PickUp(ctx context.Context, actor Actor, id string) (*models.Donation, error) {
	if err := s.requireAssignedDriver(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id, models.StatusPickedUp, repository.StatusChange{})
}

func (s *DonationService) Deliver(ctx context.Context, actor Actor, id string) (*models.Donation, error) {
	if err := s.requireAssignedDriver(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, id, models.StatusDelivered, repository.StatusChange{})
}

func (s *DonationService) requireAssignedDriver(ctx context.Context, actor Actor, id string) error {
	d, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return err
	}
	if actor.Is(models.RoleAdmin) || (actor.Is(models.RoleDriver) && d.DriverID == actor.ID) {
		return nil
	}
	return ErrForbidden
}

func (s *DonationService) transition(ctx context.Context, actor Actor, id string, to models.DonationStatus, ch repository.StatusChange) (*models.Donation, error) {
	d, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(d.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, to)
	}

	ch.From, ch.To = d.Status, to
	updated, err := s.repo.ChangeStatus(ctx, id, ch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("donation status changed",
		zap.String("donation_id", id),
		zap.String("from", string(ch.From)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.ID),
	)
	return updated, nil
}

// ============================================================
// Photos
// ============================================================

func (s *DonationService) SavePhoto(ctx context.Context, actor Actor, id, filename string, data []byte) (*models.Donation, error) {
	d, err := s.repo.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !(actor.Is(models.RoleDonor) && d.DonorID == actor.ID) {
		return nil, ErrForbidden
	}

	name, err := s.storage.SavePhoto(d.ID, filename, data)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetPhoto(ctx, d.ID, name); err != nil {
		return nil, err
	}
	d.PhotoName = name
	return d, nil
}

// PhotoPath возвращает путь к фото, если актор видит пожертвование.
func (s *DonationService) PhotoPath(ctx context.Context, actor Actor, id string) (string, error) {
	d, err := s.Get(ctx, actor, id)
	if err != nil {
		return "", err
	}
	if d.PhotoName == "" {
		return "", repository.ErrNotFound
	}
	return s.storage.PhotoPath(d.ID, d.PhotoName), nil
}
