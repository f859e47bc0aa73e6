package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"foodloop/internal/foodloop/models"
	"foodloop/internal/foodloop/repository"
	"foodloop/internal/foodloop/roles"
)

const (
	earthRadiusKm = 6371.0
	// averageSpeedKmh is an urban delivery speed used for ETA estimates.
	averageSpeedKmh = 25.0
	routeSegments   = 16
)

type Point struct {
	Lat float64
	Lng float64
}

// ParsePoint разбирает "lat,lng".
func ParsePoint(s string) (Point, error) {
	latS, lngS, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, invalid("point %q must be lat,lng", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	if err != nil {
		return Point{}, invalid("bad latitude %q", latS)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngS), 64)
	if err != nil {
		return Point{}, invalid("bad longitude %q", lngS)
	}
	if err := validateCoords(lat, lng); err != nil {
		return Point{}, err
	}
	return Point{Lat: lat, Lng: lng}, nil
}

func validateCoords(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return invalid("coordinates out of range (%g, %g)", lat, lng)
	}
	return nil
}

// Haversine returns the great-circle distance in kilometers.
func Haversine(a, b Point) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(b.Lat - a.Lat)
	dLng := rad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// PlanRoute строит прямой маршрут с промежуточными точками и оценкой времени.
func PlanRoute(from, to Point) models.Route {
	km := Haversine(from, to)
	dLng := wrapLng(to.Lng - from.Lng)
	points := make([][2]float64, 0, routeSegments+1)
	for i := 0; i <= routeSegments; i++ {
		f := float64(i) / routeSegments
		points = append(points, [2]float64{
			from.Lat + (to.Lat-from.Lat)*f,
			wrapLng(from.Lng + dLng*f),
		})
	}
	return models.Route{
		DistanceKm: math.Round(km*100) / 100,
		Minutes:    math.Round(km/averageSpeedKmh*60*10) / 10,
		Points:     points,
	}
}

// wrapLng приводит долготу к [-180, 180], маршрут через антимеридиан
// идёт коротким путём.
func wrapLng(lng float64) float64 {
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}

// ============================================================
// Map Service
// ============================================================

type MapService struct {
	repo *repository.Repository
}

func NewMapService(repo *repository.Repository) *MapService {
	return &MapService{repo: repo}
}

// Locations возвращает пины карты для роли. Админ может запросить вид
// другой роли: тогда пины не привязаны к конкретному пользователю
// (все активные пожертвования доноров, все одобренные, все маршруты
// водителей). Остальные видят только свою роль.
func (s *MapService) Locations(ctx context.Context, actor Actor, role models.Role) ([]models.Location, error) {
	if role == "" {
		role = actor.Role
	}
	if role != actor.Role && !actor.Is(models.RoleAdmin) {
		return nil, ErrForbidden
	}
	cfg, err := roles.For(role)
	if err != nil {
		return nil, invalid("%v", err)
	}
	// owner пуст для обзорного вида админа.
	owner := actor.ID
	if role != actor.Role {
		owner = ""
	}

	pins := []models.Location{}
	addDonation := func(d models.Donation, kind string) {
		pins = append(pins, models.Location{
			ID: d.ID, Kind: kind, Label: d.Title, Lat: d.Lat, Lng: d.Lng, Status: d.Status,
			Icon: cfg.Icon(kind), Color: cfg.MarkerColor,
		})
	}
	addUser := func(u *models.User, kind string) {
		pins = append(pins, models.Location{
			ID: u.ID, Kind: kind, Label: u.Name, Lat: u.Lat, Lng: u.Lng,
			Icon: cfg.Icon(kind), Color: cfg.MarkerColor,
		})
	}

	switch cfg.Source {
	case roles.SourceOwnDonations:
		items, err := s.repo.ListDonations(ctx, models.DonationFilter{DonorID: owner})
		if err != nil {
			return nil, err
		}
		for _, d := range items {
			if !d.Status.Terminal() {
				addDonation(d, "pickup")
			}
		}
	case roles.SourceAvailableDonation:
		items, err := s.repo.ListDonations(ctx, models.DonationFilter{Status: models.StatusApproved})
		if err != nil {
			return nil, err
		}
		for _, d := range items {
			if owner == "" || d.ReceiverID == "" || d.ReceiverID == owner {
				addDonation(d, "pickup")
			}
		}
	case roles.SourceAssignedRoutes:
		items, err := s.repo.ListDonations(ctx, models.DonationFilter{DriverID: owner})
		if err != nil {
			return nil, err
		}
		for _, d := range items {
			if d.Status.Terminal() || d.DriverID == "" {
				continue
			}
			if d.Status == models.StatusAssigned {
				addDonation(d, "pickup")
			}
			if d.ReceiverID == "" {
				continue
			}
			receiver, err := s.repo.GetUserByID(ctx, d.ReceiverID)
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			pins = append(pins, models.Location{
				ID: d.ID, Kind: "dropoff", Label: receiver.Name, Lat: receiver.Lat, Lng: receiver.Lng,
				Status: d.Status, Icon: cfg.Icon("dropoff"), Color: cfg.MarkerColor,
			})
		}
	case roles.SourceEverything:
		items, err := s.repo.ListDonations(ctx, models.DonationFilter{})
		if err != nil {
			return nil, err
		}
		for _, d := range items {
			if !d.Status.Terminal() {
				addDonation(d, "pickup")
			}
		}
		receivers, err := s.repo.ListUsers(ctx, models.RoleReceiver)
		if err != nil {
			return nil, err
		}
		for i := range receivers {
			addUser(&receivers[i], "home")
		}
		return pins, nil
	}

	if owner != "" {
		me, err := s.repo.GetUserByID(ctx, actor.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			return nil, err
		case me.Lat != 0 || me.Lng != 0:
			addUser(me, "home")
		}
	}
	return pins, nil
}
