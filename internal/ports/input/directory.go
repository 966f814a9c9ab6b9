package input

import (
	"context"

	"collectorkit/internal/domain/entities"
)

type DirectoryUseCase interface {
	Customers(ctx context.Context, page entities.Page) ([]entities.Customer, error)
	Customer(ctx context.Context, id int64) (*entities.Customer, error)
	Sites(ctx context.Context, scope entities.Scope, page entities.Page) ([]entities.Site, error)
	Site(ctx context.Context, id int64) (*entities.Site, error)
	Devices(ctx context.Context, scope entities.Scope, page entities.Page) ([]entities.Device, error)
	Device(ctx context.Context, id int64) (*entities.Device, error)
	CreateCustomer(ctx context.Context, name string) (*entities.Customer, error)
	CreateSite(ctx context.Context, customerID int64, name string) (*entities.Site, error)
	CreateDevice(ctx context.Context, siteID int64, name, serial string) (*entities.Device, error)
	SetDeviceActive(ctx context.Context, id int64, active bool) error
}
