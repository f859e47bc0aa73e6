// Package seed loads demo data from a YAML fixture.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"foodloop/internal/foodloop/models"
	"foodloop/internal/foodloop/repository"
	"foodloop/internal/foodloop/service"
)

//go:embed fixture.yaml
var defaultFixture []byte

type Fixture struct {
	Users     []service.RegisterInput `yaml:"users"`
	Donations []Donation              `yaml:"donations"`
	Messages  []service.ContactInput  `yaml:"messages"`
}

// Donation: пожертвование из фикстуры. Status задаёт, до какого шага
// жизненного цикла его довести.
type Donation struct {
	Donor    string                `yaml:"donor"`
	Status   models.DonationStatus `yaml:"status"`
	Receiver string                `yaml:"receiver"`
	Driver   string                `yaml:"driver"`

	service.CreateDonationInput `yaml:",inline"`
}

type Result struct {
	Users     int
	Donations int
	Messages  int
	// Advanced counts existing donations moved closer to the fixture status.
	Advanced int
	Skipped  int
}

// Default returns the embedded demo fixture.
func Default() (*Fixture, error) {
	return Parse(defaultFixture)
}

func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for i, d := range f.Donations {
		if d.Status != "" && !d.Status.Valid() {
			return nil, fmt.Errorf("donation %d (%s): unknown status %q", i, d.Title, d.Status)
		}
	}
	return &f, nil
}

// ============================================================
// Seeder
// ============================================================

type Seeder struct {
	repo      *repository.Repository
	accounts  *service.AccountService
	donations *service.DonationService
	messages  *service.MessageService
	log       *zap.Logger
}

func New(repo *repository.Repository, accounts *service.AccountService, donations *service.DonationService, messages *service.MessageService, log *zap.Logger) *Seeder {
	return &Seeder{repo: repo, accounts: accounts, donations: donations, messages: messages, log: log}
}

// Apply загружает фикстуру. Повторный запуск ничего не дублирует:
// пользователи сверяются по email, пожертвования по донору и названию,
// сообщения по email и теме.
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (Result, error) {
	var res Result

	actors := make(map[string]service.Actor)
	for _, in := range f.Users {
		u, err := s.accounts.CreateAccount(ctx, in)
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			res.Skipped++
			if u, err = s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email))); err != nil {
				return res, err
			}
		case err != nil:
			return res, fmt.Errorf("user %s: %w", in.Email, err)
		default:
			res.Users++
		}
		actors[u.Email] = service.Actor{ID: u.ID, Role: u.Role}
	}

	for _, d := range f.Donations {
		created, advanced, err := s.applyDonation(ctx, actors, d)
		if err != nil {
			return res, fmt.Errorf("donation %q: %w", d.Title, err)
		}
		switch {
		case created:
			res.Donations++
		case advanced:
			res.Advanced++
		default:
			res.Skipped++
		}
	}

	existing, err := s.repo.ListMessages(ctx)
	if err != nil {
		return res, err
	}
	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		seen[m.Email+"\x00"+m.Subject] = true
	}
	for _, in := range f.Messages {
		if seen[in.Email+"\x00"+in.Subject] {
			res.Skipped++
			continue
		}
		if _, err := s.messages.Submit(ctx, in); err != nil {
			return res, fmt.Errorf("message from %s: %w", in.Email, err)
		}
		seen[in.Email+"\x00"+in.Subject] = true
		res.Messages++
	}

	s.log.Info("seed applied",
		zap.Int("users", res.Users),
		zap.Int("donations", res.Donations),
		zap.Int("messages", res.Messages),
		zap.Int("advanced", res.Advanced),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// applyDonation создаёт пожертвование, если у донора нет такого же по
// названию, и догоняет его статус до d.Status. Уже существующие
// пожертвования, отставшие от фикстуры, тоже догоняются.
func (s *Seeder) applyDonation(ctx context.Context, actors map[string]service.Actor, d Donation) (created, advanced bool, err error) {
	donor, err := s.actor(ctx, actors, d.Donor, models.RoleDonor)
	if err != nil {
		return false, false, err
	}

	mine, err := s.repo.ListDonations(ctx, models.DonationFilter{DonorID: donor.ID})
	if err != nil {
		return false, false, err
	}
	var current *models.Donation
	for i := range mine {
		if mine[i].Title == d.Title {
			current = &mine[i]
			break
		}
	}
	if current == nil {
		if current, err = s.donations.Create(ctx, donor, d.CreateDonationInput); err != nil {
			return false, false, err
		}
		created = true
	}

	advanced, err = s.advance(ctx, actors, current, d)
	return created, advanced && !created, err
}

// mainLine is the happy path of the lifecycle in order.
var mainLine = []models.DonationStatus{
	models.StatusPending,
	models.StatusApproved,
	models.StatusAssigned,
	models.StatusPickedUp,
	models.StatusDelivered,
}

// nextStep returns the status one transition closer to want, or "" when cur
// already is want, is past it or cannot reach it.
func nextStep(cur, want models.DonationStatus) models.DonationStatus {
	if want == "" {
		want = models.StatusPending
	}
	if cur == want || cur.Terminal() {
		return ""
	}
	if want == models.StatusRejected || want == models.StatusCancelled {
		if models.CanTransition(cur, want) {
			return want
		}
		return ""
	}
	have, target := slices.Index(mainLine, cur), slices.Index(mainLine, want)
	if have < 0 || target <= have {
		return ""
	}
	return mainLine[have+1]
}

// advance проводит пожертвование по жизненному циклу до d.Status, начиная
// с его текущего статуса.
func (s *Seeder) advance(ctx context.Context, actors map[string]service.Actor, cur *models.Donation, d Donation) (bool, error) {
	admin := service.Actor{ID: "seed", Role: models.RoleAdmin}
	moved := false

	for {
		step := nextStep(cur.Status, d.Status)
		if step == "" {
			return moved, nil
		}

		var (
			next *models.Donation
			err  error
		)
		switch step {
		case models.StatusApproved:
			next, err = s.donations.Approve(ctx, admin, cur.ID)
		case models.StatusRejected:
			next, err = s.donations.Reject(ctx, admin, cur.ID)
		case models.StatusCancelled:
			next, err = s.donations.Cancel(ctx, admin, cur.ID)
		case models.StatusAssigned:
			next, err = s.assign(ctx, actors, cur, d)
		case models.StatusPickedUp:
			next, err = s.asDriver(ctx, actors, d, cur.ID, s.donations.PickUp)
		case models.StatusDelivered:
			next, err = s.asDriver(ctx, actors, d, cur.ID, s.donations.Deliver)
		}
		if err != nil {
			return moved, fmt.Errorf("%s -> %s: %w", cur.Status, step, err)
		}
		cur = next
		moved = true
	}
}

func (s *Seeder) assign(ctx context.Context, actors map[string]service.Actor, cur *models.Donation, d Donation) (*models.Donation, error) {
	if cur.ReceiverID == "" {
		receiver, err := s.actor(ctx, actors, d.Receiver, models.RoleReceiver)
		if err != nil {
			return cur, err
		}
		claimed, err := s.donations.Claim(ctx, receiver, cur.ID)
		if err != nil {
			return cur, err
		}
		cur = claimed
	}
	return s.asDriver(ctx, actors, d, cur.ID, func(ctx context.Context, driver service.Actor, id string) (*models.Donation, error) {
		return s.donations.Assign(ctx, driver, id, "")
	})
}

func (s *Seeder) asDriver(
	ctx context.Context,
	actors map[string]service.Actor,
	d Donation,
	id string,
	op func(context.Context, service.Actor, string) (*models.Donation, error),
) (*models.Donation, error) {
	driver, err := s.actor(ctx, actors, d.Driver, models.RoleDriver)
	if err != nil {
		return nil, err
	}
	return op(ctx, driver, id)
}

func (s *Seeder) actor(ctx context.Context, actors map[string]service.Actor, email string, role models.Role) (service.Actor, error) {
	if email == "" {
		return service.Actor{}, fmt.Errorf("%s email required", role)
	}
	a, ok := actors[email]
	if !ok {
		u, err := s.repo.GetUserByEmail(ctx, email)
		if err != nil {
			return service.Actor{}, fmt.Errorf("%s %s: %w", role, email, err)
		}
		a = service.Actor{ID: u.ID, Role: u.Role}
		actors[email] = a
	}
	if a.Role != role {
		return service.Actor{}, fmt.Errorf("%s is a %s, not a %s", email, a.Role, role)
	}
	return a, nil
}
