// Package update implements the OTA negotiation protocol. Each check is
// independent and request-scoped; the service only reports availability and
// never pushes binaries.
package update

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/muhammadubaid182004/Weather-Station/internal/db"
	"github.com/muhammadubaid182004/Weather-Station/internal/fault"
	"github.com/muhammadubaid182004/Weather-Station/internal/version"
)

type Catalog interface {
	LatestStable(ctx context.Context) (*db.Release, error)
}

type Config struct {
	Catalog Catalog
}

type Service struct {
	catalog Catalog
}

func New(cfg Config) *Service {
	return &Service{catalog: cfg.Catalog}
}

// Decision is the outcome of one update check. Release is non-nil only when
// an update is available.
type Decision struct {
	UpdateAvailable bool
	CurrentVersion  string
	LatestVersion   string
	Release         *db.Release
}

// Check compares the device's reported version against the newest stable
// release. An update is available iff the stable channel is ahead; devices
// with auto_update disabled still get a truthful answer, acting on it is
// their call.
func (s *Service) Check(ctx context.Context, deviceID, currentVersion string) (Decision, error) {
	const fn = "Update:Check"

	if deviceID == "" {
		return Decision{}, fault.Validation("missing_field", "Missing device_id or current_version")
	}
	if currentVersion == "" {
		return Decision{}, fault.Validation("missing_field", "Missing device_id or current_version")
	}

	latest, err := s.catalog.LatestStable(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("%s:%w", fn, err)
	}
	if latest == nil {
		return Decision{CurrentVersion: currentVersion}, nil
	}

	cmp, err := version.Compare(latest.Version, currentVersion)
	if err != nil {
		if errors.Is(err, version.ErrMalformed) {
			return Decision{}, fault.Validation("invalid_version", "current_version must be dotted numeric, e.g. 1.2.0")
		}
		return Decision{}, fmt.Errorf("%s:%w", fn, err)
	}

	decision := Decision{
		UpdateAvailable: cmp == version.Greater,
		CurrentVersion:  currentVersion,
		LatestVersion:   latest.Version,
	}
	if decision.UpdateAvailable {
		decision.Release = latest
		slog.InfoContext(ctx, "Update available",
			"device_id", deviceID,
			"current_version", currentVersion,
			"new_version", latest.Version,
		)
	}
	return decision, nil
}
