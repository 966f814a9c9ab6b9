package entities

import "time"

// Customer is the root of the directory hierarchy. Device counters are
// aggregated by the repository at read time.
type Customer struct {
	ID              int64
	Name            string
	DeviceCount     int
	ActiveDevices   int
	InactiveDevices int
	CreatedAt       time.Time
}

// Site belongs to exactly one customer.
type Site struct {
	ID         int64
	CustomerID int64
	Name       string
	CreatedAt  time.Time
}

// Device belongs to one site, and through it to one customer.
type Device struct {
	ID         int64
	CustomerID int64
	SiteID     int64
	Name       string
	Serial     string
	Active     bool
	CreatedAt  time.Time
}

// Scope narrows directory listings. A zero field means unscoped. Scope is a
// value: WithCustomer and WithSite return copies, so a scope can be shared
// between goroutines and chained without side effects.
type Scope struct {
	CustomerID int64
	SiteID     int64
}

// WithCustomer returns a copy of s scoped to customerID.
func (s Scope) WithCustomer(customerID int64) Scope {
	s.CustomerID = customerID
	return s
}

// WithSite returns a copy of s scoped to siteID.
func (s Scope) WithSite(siteID int64) Scope {
	s.SiteID = siteID
	return s
}

// Page is a limit/offset window over an ordered listing.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps p to [1, max] using def when no limit was requested.
func (p Page) Normalize(def, max int) Page {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if max > 0 && p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
