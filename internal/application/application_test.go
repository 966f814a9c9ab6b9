package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
	"collectorkit/internal/infrastructure/memory"
)

// keyTranslator renders "key k1=v1 k2=v2" so tests can assert on keys.
type keyTranslator struct{}

func (keyTranslator) T(_ string, key string, data map[string]any) string {
	if len(data) == 0 {
		return key
	}
	parts := make([]string, 0, len(data))
	for k, v := range data {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(parts)
	return key + " " + strings.Join(parts, " ")
}

type fakeNotifier struct {
	sent []entities.Notification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n entities.Notification) error {
	f.sent = append(f.sent, n)
	return f.err
}

type fixture struct {
	svc     *DirectoryService
	acme    *entities.Customer
	globex  *entities.Customer
	plant   *entities.Site
	active  *entities.Device
	dormant *entities.Device
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	svc := NewDirectoryService(memory.NewDirectoryRepository(), 2, 3)

	acme, err := svc.CreateCustomer(ctx, " Acme ")
	require.NoError(t, err)
	globex, err := svc.CreateCustomer(ctx, "Globex")
	require.NoError(t, err)
	plant, err := svc.CreateSite(ctx, acme.ID, "Plant")
	require.NoError(t, err)
	active, err := svc.CreateDevice(ctx, plant.ID, "meter-1", " SN1 ")
	require.NoError(t, err)
	dormant, err := svc.CreateDevice(ctx, plant.ID, "meter-2", "SN2")
	require.NoError(t, err)
	require.NoError(t, svc.SetDeviceActive(ctx, dormant.ID, false))
	dormant.Active = false

	return fixture{svc: svc, acme: acme, globex: globex, plant: plant, active: active, dormant: dormant}
}

func TestDirectoryServiceCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, "Acme", f.acme.Name)
	assert.Equal(t, "SN1", f.active.Serial)
	assert.Equal(t, f.acme.ID, f.active.CustomerID, "devices inherit the site's customer")
	assert.True(t, f.active.Active)

	_, err := f.svc.CreateCustomer(ctx, "   ")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	_, err = f.svc.CreateSite(ctx, 404, "Nowhere")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.CreateDevice(ctx, 404, "ghost", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.CreateDevice(ctx, f.plant.ID, "  ", "")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}

func TestCreateDeviceTakesCustomerFromSite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	depot, err := f.svc.CreateSite(ctx, f.globex.ID, "Depot")
	require.NoError(t, err)
	device, err := f.svc.CreateDevice(ctx, depot.ID, "meter-3", "")
	require.NoError(t, err)
	assert.Equal(t, f.globex.ID, device.CustomerID)
	assert.Equal(t, depot.ID, device.SiteID)

	devices, err := f.svc.Scoped(entities.Scope{}.WithCustomer(f.acme.ID)).Devices(ctx, entities.Page{})
	require.NoError(t, err)
	for _, d := range devices {
		assert.NotEqual(t, device.ID, d.ID)
	}
}

func TestDirectoryServicePagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := range 3 {
		_, err := f.svc.CreateCustomer(ctx, fmt.Sprintf("extra-%d", i))
		require.NoError(t, err)
	}

	got, err := f.svc.Customers(ctx, entities.Page{})
	require.NoError(t, err)
	assert.Len(t, got, 2, "default page size")

	got, err = f.svc.Customers(ctx, entities.Page{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, got, 3, "clamped to max page size")
}

func TestDirectoryServiceMissingIsAbsentNotError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Customer(ctx, 999)
	assert.NoError(t, err)
	assert.Nil(t, c)

	s, err := f.svc.Site(ctx, 999)
	assert.NoError(t, err)
	assert.Nil(t, s)

	d, err := f.svc.Device(ctx, 999)
	assert.NoError(t, err)
	assert.Nil(t, d)
}

func TestScopedDirectoryIsImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := f.svc.Scoped(entities.Scope{})
	acme := base.WithCustomer(f.acme.ID)
	plant := acme.WithSite(f.plant.ID)
	globex := base.WithCustomer(f.globex.ID)

	assert.Equal(t, entities.Scope{}, base.Scope())
	assert.Equal(t, entities.Scope{CustomerID: f.acme.ID}, acme.Scope())
	assert.Equal(t, entities.Scope{CustomerID: f.acme.ID, SiteID: f.plant.ID}, plant.Scope())

	sites, err := plant.Sites(ctx, entities.Page{})
	require.NoError(t, err)
	assert.Len(t, sites, 1)

	devices, err := plant.Devices(ctx, entities.Page{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, devices, 2)

	devices, err = globex.Devices(ctx, entities.Page{})
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func session(customerID int64, expires time.Time, perms ...string) *entities.Session {
	return &entities.Session{
		Token:       "tok",
		User:        entities.User{ID: 7, Name: "ada"},
		CustomerID:  customerID,
		Permissions: perms,
		ExpiresAt:   expires,
	}
}

func TestDataCollectorValidator(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	clock := WithValidatorClock(func() time.Time { return now })

	// CreateDevice on the service always needs a site, so the siteless
	// device goes straight to a separate repository.
	repo := memory.NewDirectoryRepository()
	owner := &entities.Customer{Name: "Owner"}
	require.NoError(t, repo.CreateCustomer(context.Background(), owner))
	orphan := &entities.Device{CustomerID: owner.ID, Name: "spare", Active: true}
	require.NoError(t, repo.CreateDevice(context.Background(), orphan))

	tests := []struct {
		name     string
		session  *entities.Session
		deviceID int64
		preset   string
		useOwner bool
		ok       bool
		status   entities.ValidationStatus
		errors   []string
		warnings []string
	}{
		{
			name:    "session only",
			session: session(f.acme.ID, later),
			ok:      true,
			status:  entities.StatusOK,
		},
		{
			name:   "missing session",
			status: entities.StatusError,
			errors: []string{"validation_session_missing"},
		},
		{
			name:    "expired session",
			session: session(f.acme.ID, now),
			status:  entities.StatusError,
			errors:  []string{"validation_session_expired"},
		},
		{
			name:    "preset error comes first",
			session: session(f.acme.ID, later),
			preset:  "upload rejected",
			status:  entities.StatusError,
			errors:  []string{"validation_preset Message=upload rejected"},
		},
		{
			name:     "active device",
			session:  session(f.acme.ID, later),
			deviceID: f.active.ID,
			ok:       true,
			status:   entities.StatusOK,
		},
		{
			name:     "inactive device warns",
			session:  session(f.acme.ID, later),
			deviceID: f.dormant.ID,
			ok:       true,
			status:   entities.StatusWarning,
			warnings: []string{fmt.Sprintf("validation_device_inactive DeviceID=%d Name=meter-2", f.dormant.ID)},
		},
		{
			name:     "unknown device",
			session:  session(f.acme.ID, later),
			deviceID: 999,
			status:   entities.StatusError,
			errors:   []string{"validation_device_not_found DeviceID=999"},
		},
		{
			name:     "device of another customer",
			session:  session(f.globex.ID, later),
			deviceID: f.active.ID,
			status:   entities.StatusError,
			errors:   []string{fmt.Sprintf("validation_device_forbidden DeviceID=%d", f.active.ID)},
		},
		{
			name:     "device of another customer with devices:all",
			session:  session(f.globex.ID, later, PermissionAllDevices),
			deviceID: f.active.ID,
			ok:       true,
			status:   entities.StatusOK,
		},
		{
			name:     "device without site",
			session:  session(owner.ID, later),
			deviceID: orphan.ID,
			useOwner: true,
			ok:       true,
			status:   entities.StatusWarning,
			warnings: []string{fmt.Sprintf("validation_site_missing DeviceID=%d Name=spare", orphan.ID)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := f.svc.repo
			if tt.useOwner {
				source = repo
			}
			v := NewDataCollectorValidator(source, keyTranslator{}, tt.session, tt.deviceID, tt.preset, clock)

			ok, err := v.Validate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.status, v.Status())
			assert.Equal(t, tt.errors, nilIfEmpty(v.Errors()))
			assert.Equal(t, tt.warnings, nilIfEmpty(v.Warnings()))
			if tt.ok {
				assert.NoError(t, v.Err())
			} else {
				assert.ErrorIs(t, v.Err(), domain.ErrValidationFailed)
			}
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestDataCollectorValidatorIsIdempotent(t *testing.T) {
	f := newFixture(t)
	v := NewDataCollectorValidator(f.svc.repo, keyTranslator{}, nil, f.dormant.ID, "boom")

	for range 3 {
		ok, err := v.Validate(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Len(t, v.Errors(), 2)
	assert.Empty(t, v.Warnings())

	err := v.Err()
	assert.Contains(t, err.Error(), "validation_preset")
	assert.Contains(t, err.Error(), "validation_session_missing")

	owner := NewDataCollectorValidator(f.svc.repo, keyTranslator{}, session(f.acme.ID, time.Time{}), f.dormant.ID, "")
	for range 3 {
		ok, err := owner.Validate(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Len(t, owner.Warnings(), 1)

	data := owner.Data()
	assert.Equal(t, *f.dormant, data["device"])
	assert.Equal(t, *f.plant, data["site"])
	customer, ok := data["customer"].(entities.Customer)
	require.True(t, ok)
	assert.Equal(t, f.acme.ID, customer.ID)

	data["device"] = "mutated"
	assert.NotEqual(t, "mutated", owner.Data()["device"], "Data returns a copy")
}

func TestDataCollectorValidatorWithoutSessionHidesDirectory(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := WithValidatorClock(func() time.Time { return now })

	for name, s := range map[string]*entities.Session{
		"missing": nil,
		"expired": session(f.globex.ID, now.Add(-time.Minute), PermissionAllDevices),
	} {
		t.Run(name, func(t *testing.T) {
			v := NewDataCollectorValidator(f.svc.repo, keyTranslator{}, s, f.active.ID, "", clock)

			ok, err := v.Validate(context.Background())
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Len(t, v.Errors(), 1)
			assert.Empty(t, v.Warnings())
			assert.Empty(t, v.Data())
		})
	}
}

type failingRepo struct {
	*memory.DirectoryRepository
}

func (failingRepo) FindDevice(context.Context, int64) (*entities.Device, error) {
	return nil, domain.Wrap("find device", domain.ErrTransient, errors.New("connection reset"))
}

func TestDataCollectorValidatorInfrastructureError(t *testing.T) {
	repo := failingRepo{memory.NewDirectoryRepository()}
	v := NewDataCollectorValidator(repo, keyTranslator{}, session(1, time.Time{}), 5, "")

	ok, err := v.Validate(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, entities.StatusError, v.Status())
}

func TestSendEmailNotification(t *testing.T) {
	n := &fakeNotifier{}
	svc := NewNotificationService(n, keyTranslator{}, "fr")
	ctx := context.Background()

	require.NoError(t, svc.SendEmailNotification(ctx, " ops@example.com ", "", "disk full"))
	require.Len(t, n.sent, 1)
	assert.Equal(t, entities.Notification{To: "ops@example.com", Subject: "notify_subject_default", Body: "disk full"}, n.sent[0])

	err := svc.SendEmailNotification(ctx, "not-an-email", "s", "b")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Len(t, n.sent, 1)

	n.err = domain.Wrap("smtp", domain.ErrTransient, nil)
	assert.ErrorIs(t, svc.SendEmailNotification(ctx, "ops@example.com", "s", "b"), domain.ErrTransient)
}
