// Package memory holds in-process adapters used by tests and local runs.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
	"collectorkit/internal/ports/output"
)

var _ output.DirectoryRepository = (*DirectoryRepository)(nil)

// DirectoryRepository keeps the directory in maps guarded by a RWMutex.
type DirectoryRepository struct {
	mu        sync.RWMutex
	nextID    int64
	customers map[int64]entities.Customer
	sites     map[int64]entities.Site
	devices   map[int64]entities.Device
}

func NewDirectoryRepository() *DirectoryRepository {
	return &DirectoryRepository{
		customers: make(map[int64]entities.Customer),
		sites:     make(map[int64]entities.Site),
		devices:   make(map[int64]entities.Device),
	}
}

func (r *DirectoryRepository) ListCustomers(_ context.Context, page entities.Page) ([]entities.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entities.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, r.withCounts(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, page), nil
}

func (r *DirectoryRepository) FindCustomer(_ context.Context, id int64) (*entities.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, nil
	}
	c = r.withCounts(c)
	return &c, nil
}

func (r *DirectoryRepository) ListSites(_ context.Context, scope entities.Scope, page entities.Page) ([]entities.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entities.Site, 0)
	for _, s := range r.sites {
		if scope.CustomerID != 0 && s.CustomerID != scope.CustomerID {
			continue
		}
		if scope.SiteID != 0 && s.ID != scope.SiteID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, page), nil
}

func (r *DirectoryRepository) FindSite(_ context.Context, id int64) (*entities.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sites[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *DirectoryRepository) ListDevices(_ context.Context, scope entities.Scope, page entities.Page) ([]entities.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entities.Device, 0)
	for _, d := range r.devices {
		if scope.CustomerID != 0 && d.CustomerID != scope.CustomerID {
			continue
		}
		if scope.SiteID != 0 && d.SiteID != scope.SiteID {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, page), nil
}

func (r *DirectoryRepository) FindDevice(_ context.Context, id int64) (*entities.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *DirectoryRepository) CreateCustomer(_ context.Context, customer *entities.Customer) error {
	if customer == nil {
		return domain.Wrap("create customer", domain.ErrValidationFailed, errors.New("nil customer"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	customer.ID = r.nextID
	stamp(&customer.CreatedAt)
	c := *customer
	c.DeviceCount, c.ActiveDevices, c.InactiveDevices = 0, 0, 0
	r.customers[c.ID] = c
	return nil
}

func (r *DirectoryRepository) CreateSite(_ context.Context, site *entities.Site) error {
	if site == nil {
		return domain.Wrap("create site", domain.ErrValidationFailed, errors.New("nil site"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[site.CustomerID]; !ok {
		return domain.Wrap(fmt.Sprintf("create site: customer %d", site.CustomerID), domain.ErrNotFound, nil)
	}
	r.nextID++
	site.ID = r.nextID
	stamp(&site.CreatedAt)
	r.sites[site.ID] = *site
	return nil
}

func (r *DirectoryRepository) CreateDevice(_ context.Context, device *entities.Device) error {
	if device == nil {
		return domain.Wrap("create device", domain.ErrValidationFailed, errors.New("nil device"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[device.CustomerID]; !ok {
		return domain.Wrap(fmt.Sprintf("create device: customer %d", device.CustomerID), domain.ErrNotFound, nil)
	}
	if device.SiteID != 0 {
		if _, ok := r.sites[device.SiteID]; !ok {
			return domain.Wrap(fmt.Sprintf("create device: site %d", device.SiteID), domain.ErrNotFound, nil)
		}
	}
	r.nextID++
	device.ID = r.nextID
	stamp(&device.CreatedAt)
	r.devices[device.ID] = *device
	return nil
}

func (r *DirectoryRepository) SetDeviceActive(_ context.Context, id int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return domain.Wrap(fmt.Sprintf("set device %d active", id), domain.ErrNotFound, nil)
	}
	d.Active = active
	r.devices[id] = d
	return nil
}

// withCounts fills the device aggregates of c. Callers hold r.mu.
func (r *DirectoryRepository) withCounts(c entities.Customer) entities.Customer {
	c.DeviceCount, c.ActiveDevices, c.InactiveDevices = 0, 0, 0
	for _, d := range r.devices {
		if d.CustomerID != c.ID {
			continue
		}
		c.DeviceCount++
		if d.Active {
			c.ActiveDevices++
		} else {
			c.InactiveDevices++
		}
	}
	return c
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

func paginate[T any](items []T, page entities.Page) []T {
	if page.Offset >= len(items) {
		return []T{}
	}
	items = items[page.Offset:]
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}
