package database

import (
	"database/sql"
	"fmt"
	"time"

	"collectorkit/internal/domain/entities"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row scanner) (entities.Customer, error) {
	var c entities.Customer
	var created sqlTime
	var active, total sql.NullInt64
	if err := row.Scan(&c.ID, &c.Name, &created, &total, &active); err != nil {
		return c, err
	}
	c.CreatedAt = created.Time
	c.DeviceCount = int(total.Int64)
	c.ActiveDevices = int(active.Int64)
	c.InactiveDevices = c.DeviceCount - c.ActiveDevices
	return c, nil
}

func scanSite(row scanner) (entities.Site, error) {
	var s entities.Site
	var created sqlTime
	if err := row.Scan(&s.ID, &s.CustomerID, &s.Name, &created); err != nil {
		return s, err
	}
	s.CreatedAt = created.Time
	return s, nil
}

func scanDevice(row scanner) (entities.Device, error) {
	var d entities.Device
	var siteID sql.NullInt64
	var created sqlTime
	if err := row.Scan(&d.ID, &d.CustomerID, &siteID, &d.Name, &d.Serial, &d.Active, &created); err != nil {
		return d, err
	}
	d.SiteID = siteID.Int64
	d.CreatedAt = created.Time
	return d, nil
}

// nullableID maps the zero id onto SQL NULL.
func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// sqlTime scans timestamps that SQLite may hand back as text.
type sqlTime struct {
	time.Time
}

var sqliteLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func (t *sqlTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	case int64:
		t.Time = time.Unix(v, 0).UTC()
		return nil
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
}

func (t *sqlTime) parse(s string) error {
	for _, layout := range sqliteLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("scan timestamp: cannot parse %q", s)
}
