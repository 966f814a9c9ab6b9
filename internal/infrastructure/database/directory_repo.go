package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
	"collectorkit/internal/ports/output"
)

var _ output.DirectoryRepository = (*DirectoryRepository)(nil)

const customerColumns = `
SELECT c.id, c.name, c.created_at,
	COUNT(d.id),
	COALESCE(SUM(CASE WHEN d.active THEN 1 ELSE 0 END), 0)
FROM customers c
LEFT JOIN devices d ON d.customer_id = c.id`

const siteColumns = `SELECT id, customer_id, name, created_at FROM sites`

const deviceColumns = `SELECT id, customer_id, site_id, name, serial, active, created_at FROM devices`

// DirectoryRepository is the SQL implementation of output.DirectoryRepository.
// It runs on PostgreSQL and SQLite.
type DirectoryRepository struct {
	db *DB
}

func NewDirectoryRepository(db *DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.db.Dialect.rebind(q), args...)
}

func (r *DirectoryRepository) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, r.db.Dialect.rebind(q), args...)
}

func (r *DirectoryRepository) ListCustomers(ctx context.Context, page entities.Page) ([]entities.Customer, error) {
	rows, err := r.query(ctx, customerColumns+`
GROUP BY c.id, c.name, c.created_at
ORDER BY c.id
LIMIT ? OFFSET ?`, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return collect(rows, scanCustomer, "list customers")
}

func (r *DirectoryRepository) FindCustomer(ctx context.Context, id int64) (*entities.Customer, error) {
	row := r.queryRow(ctx, customerColumns+`
WHERE c.id = ?
GROUP BY c.id, c.name, c.created_at`, id)
	return findOne(row, scanCustomer, "find customer")
}

func (r *DirectoryRepository) ListSites(ctx context.Context, scope entities.Scope, page entities.Page) ([]entities.Site, error) {
	where, args := scopeFilter(scope, "customer_id", "id")
	rows, err := r.query(ctx, siteColumns+where+`
ORDER BY id
LIMIT ? OFFSET ?`, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return collect(rows, scanSite, "list sites")
}

func (r *DirectoryRepository) FindSite(ctx context.Context, id int64) (*entities.Site, error) {
	row := r.queryRow(ctx, siteColumns+` WHERE id = ?`, id)
	return findOne(row, scanSite, "find site")
}

func (r *DirectoryRepository) ListDevices(ctx context.Context, scope entities.Scope, page entities.Page) ([]entities.Device, error) {
	where, args := scopeFilter(scope, "customer_id", "site_id")
	rows, err := r.query(ctx, deviceColumns+where+`
ORDER BY id
LIMIT ? OFFSET ?`, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return collect(rows, scanDevice, "list devices")
}

func (r *DirectoryRepository) FindDevice(ctx context.Context, id int64) (*entities.Device, error) {
	row := r.queryRow(ctx, deviceColumns+` WHERE id = ?`, id)
	return findOne(row, scanDevice, "find device")
}

func (r *DirectoryRepository) CreateCustomer(ctx context.Context, customer *entities.Customer) error {
	if customer == nil {
		return domain.Wrap("create customer", domain.ErrValidationFailed, errors.New("nil customer"))
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = nowUTC()
	}
	err := r.queryRow(ctx, `
INSERT INTO customers (name, created_at) VALUES (?, ?)
RETURNING id`, customer.Name, customer.CreatedAt).Scan(&customer.ID)
	if err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

func (r *DirectoryRepository) CreateSite(ctx context.Context, site *entities.Site) error {
	if site == nil {
		return domain.Wrap("create site", domain.ErrValidationFailed, errors.New("nil site"))
	}
	if site.CreatedAt.IsZero() {
		site.CreatedAt = nowUTC()
	}
	err := r.queryRow(ctx, `
INSERT INTO sites (customer_id, name, created_at) VALUES (?, ?, ?)
RETURNING id`, site.CustomerID, site.Name, site.CreatedAt).Scan(&site.ID)
	if err != nil {
		return fmt.Errorf("create site: %w", err)
	}
	return nil
}

func (r *DirectoryRepository) CreateDevice(ctx context.Context, device *entities.Device) error {
	if device == nil {
		return domain.Wrap("create device", domain.ErrValidationFailed, errors.New("nil device"))
	}
	if device.CreatedAt.IsZero() {
		device.CreatedAt = nowUTC()
	}
	err := r.queryRow(ctx, `
INSERT INTO devices (customer_id, site_id, name, serial, active, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`,
		device.CustomerID,
		nullableID(device.SiteID),
		device.Name,
		device.Serial,
		device.Active,
		device.CreatedAt,
	).Scan(&device.ID)
	if err != nil {
		return fmt.Errorf("create device: %w", err)
	}
	return nil
}

func (r *DirectoryRepository) SetDeviceActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, r.db.Dialect.rebind(`UPDATE devices SET active = ? WHERE id = ?`), active, id)
	if err != nil {
		return fmt.Errorf("set device active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set device active: %w", err)
	}
	if n == 0 {
		return domain.Wrap(fmt.Sprintf("set device %d active", id), domain.ErrNotFound, nil)
	}
	return nil
}

// scopeFilter builds the WHERE clause for the non-zero fields of scope.
func scopeFilter(scope entities.Scope, customerCol, siteCol string) (string, []any) {
	var conds []string
	var args []any
	if scope.CustomerID != 0 {
		conds = append(conds, customerCol+" = ?")
		args = append(args, scope.CustomerID)
	}
	if scope.SiteID != 0 {
		conds = append(conds, siteCol+" = ?")
		args = append(args, scope.SiteID)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func collect[T any](rows *sql.Rows, scan func(scanner) (T, error), op string) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func findOne[T any](row *sql.Row, scan func(scanner) (T, error), op string) (*T, error) {
	v, err := scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &v, nil
}
