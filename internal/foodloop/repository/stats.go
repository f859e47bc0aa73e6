package repository

import (
	"context"
	"fmt"

	"foodloop/internal/foodloop/models"
)

// Stats считает публичную статистику. Порции = сумма quantity доставленных.
func (r *Repository) Stats(ctx context.Context) (*models.Stats, error) {
	var s models.Stats
	err := r.db.QueryRowContext(ctx, `
        SELECT
            COUNT(*),
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = ? THEN quantity ELSE 0 END), 0)
        FROM donations
    `, string(models.StatusDelivered), string(models.StatusDelivered)).Scan(&s.Donations, &s.Delivered, &s.MealsServed)
	if err != nil {
		return nil, fmt.Errorf("donation stats: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
        SELECT
            COALESCE(SUM(CASE WHEN role = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN role = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN role = ? THEN 1 ELSE 0 END), 0)
        FROM users
    `, string(models.RoleDonor), string(models.RoleReceiver), string(models.RoleDriver)).Scan(&s.Donors, &s.Receivers, &s.Drivers)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	return &s, nil
}
