// Package roles holds the per-role presentation and data-source settings
// shared by the map and dashboard endpoints.
package roles

import (
	"fmt"

	"foodloop/internal/foodloop/models"
)

// Source selects which records feed a role's map.
type Source string

const (
	SourceOwnDonations      Source = "own_donations"
	SourceAvailableDonation Source = "available_donations"
	SourceAssignedRoutes    Source = "assigned_routes"
	SourceEverything        Source = "everything"
)

// IconSet maps a pin kind ("pickup", "dropoff", "home") to an icon name.
type IconSet map[string]string

type Config struct {
	Role        models.Role `json:"role"`
	IconSet     IconSet     `json:"icon_set"`
	LegendLabel string      `json:"legend_label"`
	MarkerColor string      `json:"marker_color"`
	Source      Source      `json:"source"`
	Dashboard   string      `json:"dashboard"`
}

// Icon returns the icon for kind, falling back to the role's default pin.
func (c Config) Icon(kind string) string {
	if icon, ok := c.IconSet[kind]; ok {
		return icon
	}
	return c.IconSet["default"]
}

var configs = map[models.Role]Config{
	models.RoleDonor: {
		Role:        models.RoleDonor,
		IconSet:     IconSet{"default": "donor-pin", "pickup": "donor-pin", "home": "home-pin"},
		LegendLabel: "My donations",
		MarkerColor: "#2e7d32",
		Source:      SourceOwnDonations,
		Dashboard:   "/donor/dashboard",
	},
	models.RoleReceiver: {
		Role:        models.RoleReceiver,
		IconSet:     IconSet{"default": "food-pin", "pickup": "food-pin", "home": "ngo-pin"},
		LegendLabel: "Available food",
		MarkerColor: "#ef6c00",
		Source:      SourceAvailableDonation,
		Dashboard:   "/receiver/dashboard",
	},
	models.RoleDriver: {
		Role:        models.RoleDriver,
		IconSet:     IconSet{"default": "truck-pin", "pickup": "pickup-pin", "dropoff": "dropoff-pin"},
		LegendLabel: "My route",
		MarkerColor: "#1565c0",
		Source:      SourceAssignedRoutes,
		Dashboard:   "/driver/dashboard",
	},
	models.RoleAdmin: {
		Role:        models.RoleAdmin,
		IconSet:     IconSet{"default": "admin-pin", "pickup": "donor-pin", "home": "ngo-pin", "dropoff": "dropoff-pin"},
		LegendLabel: "All activity",
		MarkerColor: "#6a1b9a",
		Source:      SourceEverything,
		Dashboard:   "/admin/dashboard",
	},
}

// For возвращает конфигурацию роли.
func For(role models.Role) (Config, error) {
	cfg, ok := configs[role]
	if !ok {
		return Config{}, fmt.Errorf("unknown role %q", role)
	}
	return cfg, nil
}

// All returns the configurations in a stable order.
func All() []Config {
	order := []models.Role{models.RoleDonor, models.RoleReceiver, models.RoleDriver, models.RoleAdmin}
	out := make([]Config, 0, len(order))
	for _, r := range order {
		out = append(out, configs[r])
	}
	return out
}
