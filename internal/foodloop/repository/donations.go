package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"foodloop/internal/foodloop/models"
)

const donationColumns = `id, donor_id, receiver_id, driver_id, title, description, category, quantity, unit,
        pickup_address, lat, lng, status, photo_name, expires_at, created_at, updated_at`

func scanDonation(row interface{ Scan(...any) error }) (*models.Donation, error) {
	var d models.Donation
	err := row.Scan(&d.ID, &d.DonorID, &d.ReceiverID, &d.DriverID, &d.Title, &d.Description, &d.Category,
		&d.Quantity, &d.Unit, &d.PickupAddress, &d.Lat, &d.Lng, &d.Status, &d.PhotoName, &d.ExpiresAt,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *Repository) CreateDonation(ctx context.Context, d *models.Donation) error {
	now := r.timestamp()
	if d.CreatedAt == "" {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if d.Status == "" {
		d.Status = models.StatusPending
	}

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO donations (`+donationColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, d.ID, d.DonorID, d.ReceiverID, d.DriverID, d.Title, d.Description, d.Category, d.Quantity, d.Unit,
		d.PickupAddress, d.Lat, d.Lng, string(d.Status), d.PhotoName, d.ExpiresAt, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

func (r *Repository) GetDonation(ctx context.Context, id string) (*models.Donation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = ?`, id)
	return scanDonation(row)
}

// ListDonations возвращает пожертвования по фильтру, новые первыми.
func (r *Repository) ListDonations(ctx context.Context, f models.DonationFilter) ([]models.Donation, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.DonorID != "" {
		where = append(where, "donor_id = ?")
		args = append(args, f.DonorID)
	}
	if f.ReceiverID != "" {
		where = append(where, "receiver_id = ?")
		args = append(args, f.ReceiverID)
	}
	if f.DriverID != "" {
		where = append(where, "driver_id = ?")
		args = append(args, f.DriverID)
	}
	if f.Unassigned {
		where = append(where, "driver_id = ''")
	}

	query := `SELECT ` + donationColumns + ` FROM donations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query donations: %w", err)
	}
	defer rows.Close()

	var out []models.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// StatusChange описывает переход статуса. Nil-поля не меняются.
type StatusChange struct {
	From       models.DonationStatus
	To         models.DonationStatus
	ReceiverID *string
	DriverID   *string
}

// ChangeStatus переводит пожертвование из ch.From в ch.To. Если статус уже
// изменился параллельно, возвращается ErrConflict.
func (r *Repository) ChangeStatus(ctx context.Context, id string, ch StatusChange) (*models.Donation, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE donations
        SET status = ?,
            receiver_id = COALESCE(?, receiver_id),
            driver_id = COALESCE(?, driver_id),
            updated_at = ?
        WHERE id = ? AND status = ?
    `, string(ch.To), ch.ReceiverID, ch.DriverID, r.timestamp(), id, string(ch.From))
	if err != nil {
		return nil, fmt.Errorf("update donation status: %w", err)
	}
	if err := r.expectOneRow(ctx, res, id); err != nil {
		return nil, err
	}
	return r.GetDonation(ctx, id)
}

// SetReceiver закрепляет одобренное пожертвование за получателем.
func (r *Repository) SetReceiver(ctx context.Context, id, receiverID string) (*models.Donation, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE donations
        SET receiver_id = ?, updated_at = ?
        WHERE id = ? AND status = ? AND receiver_id = ''
    `, receiverID, r.timestamp(), id, string(models.StatusApproved))
	if err != nil {
		return nil, fmt.Errorf("claim donation: %w", err)
	}
	if err := r.expectOneRow(ctx, res, id); err != nil {
		return nil, err
	}
	return r.GetDonation(ctx, id)
}

func (r *Repository) SetPhoto(ctx context.Context, id, name string) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE donations SET photo_name = ?, updated_at = ? WHERE id = ?
    `, name, r.timestamp(), id)
	if err != nil {
		return fmt.Errorf("set photo: %w", err)
	}
	return r.expectOneRow(ctx, res, id)
}

// expectOneRow отличает отсутствующую запись от проигранной гонки.
func (r *Repository) expectOneRow(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := r.GetDonation(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("donation %s: %w", id, ErrConflict)
}
