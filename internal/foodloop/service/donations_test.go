package service

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodloop/internal/foodloop/models"
	"foodloop/internal/foodloop/repository"
)

func TestDonation_FullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	donor := env.user(t, models.RoleDonor, "donor@example.com", 0, 0)
	receiver := env.user(t, models.RoleReceiver, "ngo@example.com", 0, 0)
	driver := env.user(t, models.RoleDriver, "driver@example.com", 0, 0)
	admin := env.user(t, models.RoleAdmin, "admin@example.com", 0, 0)

	d := env.donation(t, donor, "Bread")
	assert.Equal(t, models.StatusPending, d.Status)

	// Receivers do not see pending donations.
	_, err := env.donations.Get(ctx, receiver, d.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.donations.Approve(ctx, donor, d.ID)
	require.ErrorIs(t, err, ErrForbidden)

	d, err = env.donations.Approve(ctx, admin, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, d.Status)

	_, err = env.donations.Assign(ctx, driver, d.ID, "")
	require.ErrorIs(t, err, ErrValidation, "driver cannot take an unclaimed donation")

	d, err = env.donations.Claim(ctx, receiver, d.ID)
	require.NoError(t, err)
	assert.Equal(t, receiver.ID, d.ReceiverID)

	d, err = env.donations.Assign(ctx, driver, d.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, d.Status)
	assert.Equal(t, driver.ID, d.DriverID)

	other := env.user(t, models.RoleDriver, "other@example.com", 0, 0)
	_, err = env.donations.PickUp(ctx, other, d.ID)
	require.ErrorIs(t, err, ErrForbidden)

	d, err = env.donations.PickUp(ctx, driver, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPickedUp, d.Status)

	d, err = env.donations.Deliver(ctx, driver, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, d.Status)

	_, err = env.donations.Cancel(ctx, donor, d.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	stats, err := env.repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, 12, stats.MealsServed)
}

func TestDonation_InvalidTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	donor := env.user(t, models.RoleDonor, "donor@example.com", 0, 0)
	admin := env.user(t, models.RoleAdmin, "admin@example.com", 0, 0)
	d := env.donation(t, donor, "Soup")

	_, err := env.donations.Deliver(ctx, admin, d.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.donations.Reject(ctx, admin, d.ID)
	require.NoError(t, err)

	_, err = env.donations.Approve(ctx, admin, d.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.donations.Approve(ctx, admin, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDonation_ClaimTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	donor := env.user(t, models.RoleDonor, "donor@example.com", 0, 0)
	admin := env.user(t, models.RoleAdmin, "admin@example.com", 0, 0)
	first := env.user(t, models.RoleReceiver, "first@example.com", 0, 0)
	second := env.user(t, models.RoleReceiver, "second@example.com", 0, 0)

	d := env.donation(t, donor, "Rice")
	_, err := env.donations.Approve(ctx, admin, d.ID)
	require.NoError(t, err)

	_, err = env.donations.Claim(ctx, first, d.ID)
	require.NoError(t, err)
	_, err = env.donations.Claim(ctx, second, d.ID)
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestDonation_AdminAssignsDriver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	donor := env.user(t, models.RoleDonor, "donor@example.com", 0, 0)
	admin := env.user(t, models.RoleAdmin, "admin@example.com", 0, 0)
	receiver := env.user(t, models.RoleReceiver, "ngo@example.com", 0, 0)
	driver := env.user(t, models.RoleDriver, "driver@example.com", 0, 0)

	d := env.donation(t, donor, "Fruit")
	_, err := env.donations.Approve(ctx, admin, d.ID)
	require.NoError(t, err)
	_, err = env.donations.Claim(ctx, receiver, d.ID)
	require.NoError(t, err)

	_, err = env.donations.Assign(ctx, admin, d.ID, "")
	require.ErrorIs(t, err, ErrValidation)
	_, err = env.donations.Assign(ctx, admin, d.ID, receiver.ID)
	require.ErrorIs(t, err, ErrValidation)

	d, err = env.donations.Assign(ctx, admin, d.ID, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, driver.ID, d.DriverID)
}

func TestDonation_ListPerRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	donor := env.user(t, models.RoleDonor, "donor@example.com", 0, 0)
	otherDonor := env.user(t, models.RoleDonor, "donor2@example.com", 0, 0)
	admin := env.user(t, models.RoleAdmin, "admin@example.com", 0, 0)
	receiver := env.user(t, models.RoleReceiver, "ngo@example.com", 0, 0)

	pending := env.donation(t, donor, "Pending")
	approved := env.donation(t, otherDonor, "Approved")
	_, err := env.donations.Approve(ctx, admin, approved.ID)
	require.NoError(t, err)

	mine, err := env.donations.List(ctx, donor, "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, pending.ID, mine[0].ID)

	visible, err := env.donations.List(ctx, receiver, "")
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, approved.ID, visible[0].ID)

	all, err := env.donations.List(ctx, admin, models.StatusPending)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, pending.ID, all[0].ID)

	_, err = env.donations.List(ctx, admin, "eaten")
	require.ErrorIs(t, err, ErrValidation)
}

func TestDonation_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.user(t, models.RoleDonor, "donor@example.com", 0, 0)
	driver := env.user(t, models.RoleDriver, "driver@example.com", 0, 0)

	_, err := env.donations.Create(ctx, driver, CreateDonationInput{Title: "x", Quantity: 1})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = env.donations.Create(ctx, donor, CreateDonationInput{Title: " ", Quantity: 1})
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.donations.Create(ctx, donor, CreateDonationInput{Title: "x", Quantity: 0})
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.donations.Create(ctx, donor, CreateDonationInput{Title: "x", Quantity: 1, Lat: 91})
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.donations.Create(ctx, donor, CreateDonationInput{Title: "x", Quantity: 1, ExpiresAt: "tomorrow"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestDonation_Photo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.user(t, models.RoleDonor, "donor@example.com", 0, 0)
	admin := env.user(t, models.RoleAdmin, "admin@example.com", 0, 0)
	d := env.donation(t, donor, "Cake")

	_, err := env.donations.PhotoPath(ctx, donor, d.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = env.donations.SavePhoto(ctx, donor, d.ID, "cake.gif", []byte("GIF89a"))
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.donations.SavePhoto(ctx, admin, d.ID, "cake.png", []byte("png"))
	require.ErrorIs(t, err, ErrForbidden)

	updated, err := env.donations.SavePhoto(ctx, donor, d.ID, "Cake.PNG", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "photo.png", updated.PhotoName)

	path, err := env.donations.PhotoPath(ctx, admin, d.ID)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", ContentType(path))
}
