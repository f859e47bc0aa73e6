package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"foodloop/internal/foodloop/models"
	"foodloop/internal/foodloop/repository"
)

type testEnv struct {
	db        *sql.DB
	repo      *repository.Repository
	sessions  *SessionManager
	accounts  *AccountService
	donations *DonationService
	maps      *MapService
	storage   *FileStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	db, err := repository.OpenSQLite(filepath.Join(dir, "db", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.New(db)
	require.NoError(t, repo.Init(context.Background()))

	logger := zaptest.NewLogger(t)
	sessions := NewSessionManager("test-secret", time.Hour)
	accounts := NewAccountService(repo, sessions, logger, WithBcryptCost(bcrypt.MinCost))
	storage := NewFileStorage(filepath.Join(dir, "uploads"))

	return &testEnv{
		db:        db,
		repo:      repo,
		sessions:  sessions,
		accounts:  accounts,
		donations: NewDonationService(repo, storage, logger),
		maps:      NewMapService(repo),
		storage:   storage,
	}
}

func (e *testEnv) user(t *testing.T, role models.Role, email string, lat, lng float64) Actor {
	t.Helper()
	u, err := e.accounts.CreateAccount(context.Background(), RegisterInput{
		Name:     string(role) + " one",
		Email:    email,
		Password: "password123",
		Role:     role,
		Lat:      lat,
		Lng:      lng,
	})
	require.NoError(t, err)
	return Actor{ID: u.ID, Role: u.Role}
}

func (e *testEnv) donation(t *testing.T, donor Actor, title string) *models.Donation {
	t.Helper()
	d, err := e.donations.Create(context.Background(), donor, CreateDonationInput{
		Title:    title,
		Quantity: 12,
		Unit:     "meals",
		Lat:      40.4168,
		Lng:      -3.7038,
	})
	require.NoError(t, err)
	return d
}
