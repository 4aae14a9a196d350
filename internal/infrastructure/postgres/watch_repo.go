package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const watchColumns = `
	id, owner_id, campground_id, arrival_date, departure_date, guests,
	site_type, max_price::text, site_ids, check_interval_minutes, is_active,
	notify_only, last_checked_at, next_check_at, last_result, last_error,
	found_count, last_found_sites, created_at, updated_at`

type WatchRepository struct {
	pool *pgxpool.Pool
}

func NewWatchRepository(pool *pgxpool.Pool) *WatchRepository {
	return &WatchRepository{pool: pool}
}

func (r *WatchRepository) Create(ctx context.Context, ownerID string, w *domain.Watch) (*domain.Watch, error) {
	siteIDs := w.SiteIDs
	if siteIDs == nil {
		siteIDs = []string{}
	}

	query := `
		INSERT INTO watches (
			owner_id, campground_id, arrival_date, departure_date, guests,
			site_type, max_price, site_ids, check_interval_minutes, is_active, notify_only
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11)
		RETURNING ` + watchColumns

	row := r.pool.QueryRow(ctx, query,
		ownerID, w.CampgroundID, w.ArrivalDate, w.DepartureDate, w.Guests,
		w.SiteType, decimalText(w.MaxPrice), siteIDs, w.CheckIntervalMinutes,
		w.IsActive, w.NotifyOnly,
	)
	return scanWatch(row)
}

func (r *WatchRepository) FindByID(ctx context.Context, id string) (*domain.Watch, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+watchColumns+` FROM watches WHERE id = $1`, id)
	return scanWatch(row)
}

func (r *WatchRepository) FindActive(ctx context.Context) ([]*domain.Watch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+watchColumns+`
		FROM watches
		WHERE is_active
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, persistenceErr("find active watches", err)
	}
	return collectWatches(rows)
}

func (r *WatchRepository) FindDueForCheck(ctx context.Context, now time.Time) ([]*domain.Watch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+watchColumns+`
		FROM watches
		WHERE is_active
		  AND (next_check_at IS NULL OR next_check_at <= $1)
		ORDER BY next_check_at ASC NULLS FIRST`, now)
	if err != nil {
		return nil, persistenceErr("find due watches", err)
	}
	return collectWatches(rows)
}

func (r *WatchRepository) Update(ctx context.Context, id string, u domain.WatchUpdate) (*domain.Watch, error) {
	args := []any{id}
	set := []string{"updated_at = NOW()"}

	if u.CheckIntervalMinutes != nil {
		args = append(args, *u.CheckIntervalMinutes)
		set = append(set, fmt.Sprintf("check_interval_minutes = $%d", len(args)))
	}
	if u.IsActive != nil {
		args = append(args, *u.IsActive)
		set = append(set, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if u.NotifyOnly != nil {
		args = append(args, *u.NotifyOnly)
		set = append(set, fmt.Sprintf("notify_only = $%d", len(args)))
	}
	if u.SiteType != nil {
		args = append(args, *u.SiteType)
		set = append(set, fmt.Sprintf("site_type = NULLIF($%d, '')", len(args)))
	}
	if u.MaxPrice != nil {
		args = append(args, u.MaxPrice.String())
		set = append(set, fmt.Sprintf("max_price = $%d::numeric", len(args)))
	}
	if u.SiteIDs != nil {
		args = append(args, u.SiteIDs)
		set = append(set, fmt.Sprintf("site_ids = $%d", len(args)))
	}

	query := fmt.Sprintf(`UPDATE watches SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(set, ", "), watchColumns)

	return scanWatch(r.pool.QueryRow(ctx, query, args...))
}

func (r *WatchRepository) RecordCheck(ctx context.Context, id string, c domain.WatchCheck) (*domain.Watch, error) {
	query := `
		UPDATE watches
		SET    last_checked_at  = $2,
		       next_check_at    = $3,
		       last_result      = $4,
		       last_error       = $5,
		       found_count      = found_count + CASE WHEN $4 = 'found' THEN 1 ELSE 0 END,
		       last_found_sites = CASE WHEN $4 = 'error' THEN last_found_sites ELSE $6 END,
		       is_active        = is_active AND NOT $7,
		       updated_at       = NOW()
		WHERE id = $1
		RETURNING ` + watchColumns

	row := r.pool.QueryRow(ctx, query,
		id, c.CheckedAt, c.NextCheckAt, string(c.Result), c.Error, c.Sites, c.Deactivate,
	)
	return scanWatch(row)
}

func (r *WatchRepository) Deactivate(ctx context.Context, id string) error {
	return r.setActive(ctx, id, false)
}

func (r *WatchRepository) Activate(ctx context.Context, id string) error {
	return r.setActive(ctx, id, true)
}

func (r *WatchRepository) setActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE watches SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return persistenceErr("set watch active", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWatchNotFound
	}
	return nil
}

func (r *WatchRepository) DeactivateArrivalBefore(ctx context.Context, day time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE watches
		SET    is_active = false, updated_at = NOW()
		WHERE  is_active AND arrival_date < $1::date
		RETURNING id`, day.Format(time.DateOnly))
	if err != nil {
		return nil, persistenceErr("deactivate past watches", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, persistenceErr("scan watch id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate past watches", err)
	}
	return ids, nil
}

func collectWatches(rows pgx.Rows) ([]*domain.Watch, error) {
	defer rows.Close()

	var watches []*domain.Watch
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, err
		}
		watches = append(watches, w)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("iterate watches", err)
	}
	return watches, nil
}

func scanWatch(row rowScanner) (*domain.Watch, error) {
	var (
		w        domain.Watch
		maxPrice *string
	)
	err := row.Scan(
		&w.ID, &w.OwnerID, &w.CampgroundID, &w.ArrivalDate, &w.DepartureDate, &w.Guests,
		&w.SiteType, &maxPrice, &w.SiteIDs, &w.CheckIntervalMinutes, &w.IsActive,
		&w.NotifyOnly, &w.LastCheckedAt, &w.NextCheckAt, &w.LastResult, &w.LastError,
		&w.FoundCount, &w.LastFoundSites, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWatchNotFound
		}
		return nil, persistenceErr("scan watch", err)
	}
	if maxPrice != nil {
		d, err := decimal.NewFromString(*maxPrice)
		if err != nil {
			return nil, persistenceErr("parse max price", err)
		}
		w.MaxPrice = &d
	}
	return &w, nil
}

func decimalText(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
