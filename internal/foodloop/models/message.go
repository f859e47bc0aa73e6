package models

// ============================================================
// Contact Messages
// ============================================================

type ContactMessage struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Subject   string  `json:"subject"`
	Message   string  `json:"message"`
	Replied   bool    `json:"replied"`
	Replies   []Reply `json:"replies"`
	CreatedAt string  `json:"created_at"`
}

type Reply struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
	AdminID   string `json:"admin_id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

// ============================================================
// Chat
// ============================================================

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ============================================================
// Map & Stats
// ============================================================

type Location struct {
	ID     string         `json:"id"`
	Kind   string         `json:"kind"`
	Label  string         `json:"label"`
	Lat    float64        `json:"lat"`
	Lng    float64        `json:"lng"`
	Status DonationStatus `json:"status,omitempty"`
	Icon   string         `json:"icon"`
	Color  string         `json:"color"`
}

type Route struct {
	DistanceKm float64      `json:"distance_km"`
	Minutes    float64      `json:"minutes"`
	Points     [][2]float64 `json:"points"`
}

type Stats struct {
	Donations   int `json:"donations"`
	Delivered   int `json:"delivered"`
	MealsServed int `json:"meals_served"`
	Donors      int `json:"donors"`
	Receivers   int `json:"receivers"`
	Drivers     int `json:"drivers"`
}
