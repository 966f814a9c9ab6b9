package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
	"collectorkit/internal/ports/input"
	"collectorkit/internal/ports/output"
)

var _ input.DirectoryUseCase = (*DirectoryService)(nil)

type DirectoryService struct {
	repo            output.DirectoryRepository
	defaultPageSize int
	maxPageSize     int
}

func NewDirectoryService(repo output.DirectoryRepository, defaultPageSize, maxPageSize int) *DirectoryService {
	return &DirectoryService{
		repo:            repo,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

func (s *DirectoryService) page(p entities.Page) entities.Page {
	return p.Normalize(s.defaultPageSize, s.maxPageSize)
}

func (s *DirectoryService) Customers(ctx context.Context, page entities.Page) ([]entities.Customer, error) {
	return s.repo.ListCustomers(ctx, s.page(page))
}

// Customer returns nil, nil when id is unknown.
func (s *DirectoryService) Customer(ctx context.Context, id int64) (*entities.Customer, error) {
	return s.repo.FindCustomer(ctx, id)
}

func (s *DirectoryService) Sites(ctx context.Context, scope entities.Scope, page entities.Page) ([]entities.Site, error) {
	return s.repo.ListSites(ctx, scope, s.page(page))
}

func (s *DirectoryService) Site(ctx context.Context, id int64) (*entities.Site, error) {
	return s.repo.FindSite(ctx, id)
}

func (s *DirectoryService) Devices(ctx context.Context, scope entities.Scope, page entities.Page) ([]entities.Device, error) {
	return s.repo.ListDevices(ctx, scope, s.page(page))
}

func (s *DirectoryService) Device(ctx context.Context, id int64) (*entities.Device, error) {
	return s.repo.FindDevice(ctx, id)
}

func (s *DirectoryService) CreateCustomer(ctx context.Context, name string) (*entities.Customer, error) {
	name, err := requireName("create customer", name)
	if err != nil {
		return nil, err
	}
	c := &entities.Customer{Name: name}
	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *DirectoryService) CreateSite(ctx context.Context, customerID int64, name string) (*entities.Site, error) {
	name, err := requireName("create site", name)
	if err != nil {
		return nil, err
	}
	customer, err := s.repo.FindCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("create site: %w", err)
	}
	if customer == nil {
		return nil, domain.Wrap(fmt.Sprintf("create site: customer %d", customerID), domain.ErrNotFound, nil)
	}
	site := &entities.Site{CustomerID: customerID, Name: name}
	if err := s.repo.CreateSite(ctx, site); err != nil {
		return nil, err
	}
	return site, nil
}

// CreateDevice registers an active device on siteID, owned by the site's
// customer.
func (s *DirectoryService) CreateDevice(ctx context.Context, siteID int64, name, serial string) (*entities.Device, error) {
	name, err := requireName("create device", name)
	if err != nil {
		return nil, err
	}
	site, err := s.repo.FindSite(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("create device: %w", err)
	}
	if site == nil {
		return nil, domain.Wrap(fmt.Sprintf("create device: site %d", siteID), domain.ErrNotFound, nil)
	}
	device := &entities.Device{
		CustomerID: site.CustomerID,
		SiteID:     site.ID,
		Name:       name,
		Serial:     strings.TrimSpace(serial),
		Active:     true,
	}
	if err := s.repo.CreateDevice(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *DirectoryService) SetDeviceActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetDeviceActive(ctx, id, active)
}

// Scoped returns a read view bound to scope.
func (s *DirectoryService) Scoped(scope entities.Scope) ScopedDirectory {
	return ScopedDirectory{svc: s, scope: scope}
}

// ScopedDirectory is an immutable scope plus the service it reads from.
// WithCustomer and WithSite return new values and never touch the receiver.
type ScopedDirectory struct {
	svc   *DirectoryService
	scope entities.Scope
}

func (d ScopedDirectory) WithCustomer(customerID int64) ScopedDirectory {
	d.scope = d.scope.WithCustomer(customerID)
	return d
}

func (d ScopedDirectory) WithSite(siteID int64) ScopedDirectory {
	d.scope = d.scope.WithSite(siteID)
	return d
}

func (d ScopedDirectory) Scope() entities.Scope { return d.scope }

func (d ScopedDirectory) Sites(ctx context.Context, page entities.Page) ([]entities.Site, error) {
	return d.svc.Sites(ctx, entities.Scope{CustomerID: d.scope.CustomerID}, page)
}

func (d ScopedDirectory) Devices(ctx context.Context, page entities.Page) ([]entities.Device, error) {
	return d.svc.Devices(ctx, d.scope, page)
}

func requireName(op, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.Wrap(op, domain.ErrValidationFailed, errors.New("name is required"))
	}
	return name, nil
}
