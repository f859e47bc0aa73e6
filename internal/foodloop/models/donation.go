package models

// ============================================================
// Donation Model
// ============================================================

type DonationStatus string

const (
	StatusPending   DonationStatus = "pending"
	StatusApproved  DonationStatus = "approved"
	StatusAssigned  DonationStatus = "assigned"
	StatusPickedUp  DonationStatus = "picked_up"
	StatusDelivered DonationStatus = "delivered"
	StatusRejected  DonationStatus = "rejected"
	StatusCancelled DonationStatus = "cancelled"
)

// transitions lists the statuses reachable from each status.
var transitions = map[DonationStatus][]DonationStatus{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusAssigned, StatusCancelled},
	StatusAssigned: {StatusPickedUp},
	StatusPickedUp: {StatusDelivered},
}

func (s DonationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusAssigned, StatusPickedUp,
		StatusDelivered, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// CanTransition сообщает, допустим ли переход from -> to.
func CanTransition(from, to DonationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition exists.
func (s DonationStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

type Donation struct {
	ID            string         `json:"id"`
	DonorID       string         `json:"donor_id"`
	ReceiverID    string         `json:"receiver_id,omitempty"`
	DriverID      string         `json:"driver_id,omitempty"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	Quantity      int            `json:"quantity"`
	Unit          string         `json:"unit"`
	PickupAddress string         `json:"pickup_address"`
	Lat           float64        `json:"lat"`
	Lng           float64        `json:"lng"`
	Status        DonationStatus `json:"status"`
	PhotoName     string         `json:"photo_name,omitempty"`
	ExpiresAt     string         `json:"expires_at,omitempty"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
}

// DonationFilter narrows a donation listing. Empty fields match everything.
type DonationFilter struct {
	Status     DonationStatus
	DonorID    string
	ReceiverID string
	DriverID   string
	// Unassigned restricts to donations without a driver.
	Unassigned bool
}
