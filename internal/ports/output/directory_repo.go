package output

import (
	"context"

	"collectorkit/internal/domain/entities"
)

// DirectoryRepository stores the customer -> site -> device hierarchy.
// Find* methods return nil, nil when no row matches.
type DirectoryRepository interface {
	ListCustomers(ctx context.Context, page entities.Page) ([]entities.Customer, error)
	FindCustomer(ctx context.Context, id int64) (*entities.Customer, error)
	ListSites(ctx context.Context, scope entities.Scope, page entities.Page) ([]entities.Site, error)
	FindSite(ctx context.Context, id int64) (*entities.Site, error)
	ListDevices(ctx context.Context, scope entities.Scope, page entities.Page) ([]entities.Device, error)
	FindDevice(ctx context.Context, id int64) (*entities.Device, error)

	CreateCustomer(ctx context.Context, customer *entities.Customer) error
	CreateSite(ctx context.Context, site *entities.Site) error
	CreateDevice(ctx context.Context, device *entities.Device) error
	SetDeviceActive(ctx context.Context, id int64, active bool) error
}
