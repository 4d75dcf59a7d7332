// Package registry tracks one liveness record per physical device. The
// single write path is Touch, driven by accepted telemetry; everything else
// is read-only or flips the auto_update flag.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/muhammadubaid182004/Weather-Station/internal/db"
	"github.com/muhammadubaid182004/Weather-Station/internal/fault"
)

// DefaultOnlineTimeout is how long after its last accepted telemetry a
// device still counts as online.
const DefaultOnlineTimeout = 180 * time.Second

type Repository interface {
	TouchDevice(ctx context.Context, deviceID, ip, firmwareVersion string, now time.Time) (db.Device, error)
	GetDevice(ctx context.Context, deviceID string) (db.Device, error)
	ListDevices(ctx context.Context) ([]db.Device, error)
	SetAutoUpdate(ctx context.Context, deviceID string, enabled bool) (db.Device, error)
}

type Config struct {
	DB            Repository
	OnlineTimeout time.Duration
	// Now is overridable in tests.
	Now func() time.Time
}

type Service struct {
	repo          Repository
	onlineTimeout time.Duration
	now           func() time.Time
}

// DeviceStatus is a registry row plus the derived online flag. Online is
// never stored; it is recomputed from last_seen on every read.
type DeviceStatus struct {
	db.Device
	Online bool
}

func New(cfg Config) *Service {
	s := &Service{
		repo:          cfg.DB,
		onlineTimeout: cfg.OnlineTimeout,
		now:           cfg.Now,
	}
	if s.onlineTimeout <= 0 {
		s.onlineTimeout = DefaultOnlineTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Touch upserts the liveness record: first sighting registers the device,
// later sightings move last_seen, last_ip, and current_firmware only.
func (s *Service) Touch(ctx context.Context, deviceID, ip, firmwareVersion string) (db.Device, error) {
	const fn = "Registry:Touch"
	if deviceID == "" {
		return db.Device{}, fault.Validation("missing_field", "Missing required field: device_id")
	}
	dev, err := s.repo.TouchDevice(ctx, deviceID, ip, firmwareVersion, s.now().UTC())
	if err != nil {
		return dev, fmt.Errorf("%s:%w", fn, err)
	}
	return dev, nil
}

func (s *Service) Get(ctx context.Context, deviceID string) (DeviceStatus, error) {
	const fn = "Registry:Get"
	dev, err := s.repo.GetDevice(ctx, deviceID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return DeviceStatus{}, fault.NotFound("device_not_found", "Device not found")
		}
		return DeviceStatus{}, fmt.Errorf("%s:%w", fn, err)
	}
	return s.status(dev), nil
}

func (s *Service) List(ctx context.Context) ([]DeviceStatus, error) {
	const fn = "Registry:List"
	devices, err := s.repo.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", fn, err)
	}
	statuses := make([]DeviceStatus, 0, len(devices))
	for _, dev := range devices {
		statuses = append(statuses, s.status(dev))
	}
	return statuses, nil
}

func (s *Service) SetAutoUpdate(ctx context.Context, deviceID string, enabled bool) (DeviceStatus, error) {
	const fn = "Registry:SetAutoUpdate"
	dev, err := s.repo.SetAutoUpdate(ctx, deviceID, enabled)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return DeviceStatus{}, fault.NotFound("device_not_found", "Device not found")
		}
		return DeviceStatus{}, fmt.Errorf("%s:%w", fn, err)
	}
	return s.status(dev), nil
}

// Online reports whether a device whose last accepted telemetry arrived at
// lastSeen counts as online at now. The comparison is inclusive at the
// timeout boundary and uses the absolute difference, so a device clock
// slightly ahead of the server still reads as online.
func Online(lastSeen, now time.Time, timeout time.Duration) bool {
	d := now.Sub(lastSeen)
	if d < 0 {
		d = -d
	}
	return d <= timeout
}

func (s *Service) status(dev db.Device) DeviceStatus {
	return DeviceStatus{
		Device: dev,
		Online: Online(dev.LastSeen, s.now(), s.onlineTimeout),
	}
}
