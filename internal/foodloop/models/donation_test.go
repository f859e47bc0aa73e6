package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	lifecycle := []DonationStatus{StatusPending, StatusApproved, StatusAssigned, StatusPickedUp, StatusDelivered}
	for i := 0; i < len(lifecycle)-1; i++ {
		assert.True(t, CanTransition(lifecycle[i], lifecycle[i+1]), "%s -> %s", lifecycle[i], lifecycle[i+1])
	}

	assert.True(t, CanTransition(StatusPending, StatusRejected))
	assert.True(t, CanTransition(StatusApproved, StatusCancelled))

	assert.False(t, CanTransition(StatusPending, StatusAssigned), "no skipping approval")
	assert.False(t, CanTransition(StatusDelivered, StatusPending))
	assert.False(t, CanTransition(StatusAssigned, StatusCancelled))
	assert.False(t, CanTransition(StatusPickedUp, StatusPickedUp))
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusAssigned.Terminal())
}

func TestValid(t *testing.T) {
	assert.True(t, StatusPickedUp.Valid())
	assert.False(t, DonationStatus("lost").Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("chef").Valid())
}
