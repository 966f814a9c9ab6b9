package application

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"go.uber.org/multierr"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
	"collectorkit/internal/observability/metrics"
	"collectorkit/internal/ports/output"
)

// PermissionAllDevices lets a session validate devices of any customer.
const PermissionAllDevices = "devices:all"

// DataCollectorValidator checks that a session may collect data for a device.
// Every Validate call rebuilds the result from scratch, so the accessors
// always describe the latest call only.
type DataCollectorValidator struct {
	directory   output.DirectoryRepository
	translator  output.T
	session     *entities.Session
	deviceID    int64
	presetError string
	now         func() time.Time

	mu       sync.Mutex
	errors   []string
	warnings []string
	data     map[string]any
	status   entities.ValidationStatus
}

// ValidatorOption configures a DataCollectorValidator.
type ValidatorOption func(*DataCollectorValidator)

// WithValidatorClock overrides the clock used for session expiry.
func WithValidatorClock(now func() time.Time) ValidatorOption {
	return func(v *DataCollectorValidator) {
		if now != nil {
			v.now = now
		}
	}
}

// NewDataCollectorValidator binds a validator to session and an optional
// device (0 for none). A non-empty presetError is reported as an error by
// every Validate call.
func NewDataCollectorValidator(
	directory output.DirectoryRepository,
	translator output.T,
	session *entities.Session,
	deviceID int64,
	presetError string,
	opts ...ValidatorOption,
) *DataCollectorValidator {
	v := &DataCollectorValidator{
		directory:   directory,
		translator:  translator,
		session:     session,
		deviceID:    deviceID,
		presetError: presetError,
		now:         time.Now,
		data:        map[string]any{},
		status:      entities.StatusOK,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs every rule and reports whether no error was found. The
// returned error is only set when the directory could not be read.
func (v *DataCollectorValidator) Validate(ctx context.Context) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.errors = v.errors[:0]
	v.warnings = v.warnings[:0]
	v.data = map[string]any{}

	if v.presetError != "" {
		v.fail("validation_preset", map[string]any{"Message": v.presetError})
	}

	authenticated := false
	switch {
	case v.session == nil:
		v.fail("validation_session_missing", nil)
	case v.session.Expired(v.now()):
		v.fail("validation_session_expired", nil)
	default:
		authenticated = true
		v.data["user"] = v.session.User
	}

	// Directory records are never looked up for an unauthenticated caller.
	if authenticated && v.deviceID != 0 {
		if err := v.checkDevice(ctx); err != nil {
			v.status = entities.StatusError
			metrics.Validation(string(v.status))
			return false, err
		}
	}

	switch {
	case len(v.errors) > 0:
		v.status = entities.StatusError
	case len(v.warnings) > 0:
		v.status = entities.StatusWarning
	default:
		v.status = entities.StatusOK
	}
	metrics.Validation(string(v.status))
	return len(v.errors) == 0, nil
}

func (v *DataCollectorValidator) checkDevice(ctx context.Context) error {
	device, err := v.directory.FindDevice(ctx, v.deviceID)
	if err != nil {
		return fmt.Errorf("validate device %d: %w", v.deviceID, err)
	}
	if device == nil {
		v.fail("validation_device_not_found", map[string]any{"DeviceID": v.deviceID})
		return nil
	}
	if device.CustomerID != v.session.CustomerID && !v.session.Can(PermissionAllDevices) {
		v.fail("validation_device_forbidden", map[string]any{"DeviceID": v.deviceID})
		return nil
	}

	v.data["device"] = *device
	params := map[string]any{"DeviceID": device.ID, "Name": device.Name}
	if !device.Active {
		v.warn("validation_device_inactive", params)
	}

	if device.SiteID == 0 {
		v.warn("validation_site_missing", params)
	} else {
		site, err := v.directory.FindSite(ctx, device.SiteID)
		if err != nil {
			return fmt.Errorf("validate device %d: %w", v.deviceID, err)
		}
		if site == nil {
			v.warn("validation_site_missing", params)
		} else {
			v.data["site"] = *site
		}
	}

	customer, err := v.directory.FindCustomer(ctx, device.CustomerID)
	if err != nil {
		return fmt.Errorf("validate device %d: %w", v.deviceID, err)
	}
	if customer != nil {
		v.data["customer"] = *customer
	}
	return nil
}

func (v *DataCollectorValidator) locale() string {
	if v.session == nil {
		return ""
	}
	return v.session.Language
}

func (v *DataCollectorValidator) fail(key string, params map[string]any) {
	v.errors = append(v.errors, v.translator.T(v.locale(), key, params))
}

func (v *DataCollectorValidator) warn(key string, params map[string]any) {
	v.warnings = append(v.warnings, v.translator.T(v.locale(), key, params))
}

// Errors returns the errors of the last Validate call, in order.
func (v *DataCollectorValidator) Errors() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.errors...)
}

// Warnings returns the warnings of the last Validate call, in order.
func (v *DataCollectorValidator) Warnings() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.warnings...)
}

// Data returns the records resolved by the last Validate call under the keys
// "user", "device", "site" and "customer".
func (v *DataCollectorValidator) Data() map[string]any {
	v.mu.Lock()
	defer v.mu.Unlock()
	return maps.Clone(v.data)
}

func (v *DataCollectorValidator) Status() entities.ValidationStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// Err returns nil when the last Validate found no error, and otherwise an
// error matching domain.ErrValidationFailed that carries every message.
func (v *DataCollectorValidator) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.errors) == 0 {
		return nil
	}
	var combined error
	for _, msg := range v.errors {
		combined = multierr.Append(combined, errors.New(msg))
	}
	return domain.Wrap("data collector", domain.ErrValidationFailed, combined)
}
