// Package firmware is the catalog of OTA releases: metadata rows in
// Postgres, binaries on disk under a deterministic name per version.
// Uploads stage the binary in a temp file and claim the version row before
// the final rename, so two concurrent uploads of the same version resolve
// to exactly one winner and the loser never clobbers the winner's binary.
package firmware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/muhammadubaid182004/Weather-Station/internal/cache"
	"github.com/muhammadubaid182004/Weather-Station/internal/checksum"
	"github.com/muhammadubaid182004/Weather-Station/internal/db"
	"github.com/muhammadubaid182004/Weather-Station/internal/fault"
	"github.com/muhammadubaid182004/Weather-Station/internal/version"
)

// DefaultMaxUploadBytes bounds a single firmware binary.
const DefaultMaxUploadBytes = 16 * 1024 * 1024

// stableTTL bounds how stale the memoized stable-channel answer may get.
// Uploads invalidate it immediately; the TTL only covers out-of-band
// database edits.
const stableTTL = 30 * time.Second

type Repository interface {
	InsertRelease(ctx context.Context, rel db.Release) (db.Release, error)
	DeleteRelease(ctx context.Context, version string) error
	GetRelease(ctx context.Context, version string) (db.Release, error)
	ListReleases(ctx context.Context) ([]db.Release, error)
	StableReleases(ctx context.Context) ([]db.Release, error)
}

type Config struct {
	DB  Repository
	Dir string
	// MaxUploadBytes defaults to 16 MiB.
	MaxUploadBytes int64
	// Now is overridable in tests.
	Now func() time.Time
}

type Catalog struct {
	repo     Repository
	dir      string
	maxBytes int64
	now      func() time.Time
	stable   *cache.Memo[*db.Release]
}

func New(cfg Config) (*Catalog, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("firmware:New: %w", err)
	}
	c := &Catalog{
		repo:     cfg.DB,
		dir:      cfg.Dir,
		maxBytes: cfg.MaxUploadBytes,
		now:      cfg.Now,
	}
	if c.maxBytes <= 0 {
		c.maxBytes = DefaultMaxUploadBytes
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.stable = cache.New[*db.Release](stableTTL, c.now)
	return c, nil
}

// BinaryFilename derives the on-disk name for a release version.
func BinaryFilename(ver string) string {
	return fmt.Sprintf("firmware_v%s.bin", ver)
}

// Upload stores a new release. Re-uploading an existing version is a
// conflict, never an overwrite. On any failure after bytes hit disk the
// staged file is removed, so a retry of the same version starts clean.
func (c *Catalog) Upload(ctx context.Context, ver, description string, isStable bool, r io.Reader) (db.Release, error) {
	if ver == "" {
		return db.Release{}, fault.Validation("missing_field", "Version is required")
	}
	if !version.IsValid(ver) {
		return db.Release{}, fault.Validation("invalid_version", "Version must be dotted numeric, e.g. 1.2.0")
	}

	tmp, err := os.CreateTemp(c.dir, "upload-*.tmp")
	if err != nil {
		return db.Release{}, fault.Storage("storage_failure", "could not stage firmware binary", err)
	}
	tmpPath := tmp.Name()
	discard := func() {
		tmp.Close()
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.ErrorContext(ctx, "Failed to remove staged firmware binary", "path", tmpPath, "error", rmErr)
		}
	}

	written, err := io.Copy(tmp, io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		discard()
		return db.Release{}, fault.Storage("storage_failure", "could not write firmware binary", err)
	}
	if written > c.maxBytes {
		discard()
		return db.Release{}, fault.Validation("file_too_large", "Firmware binary exceeds %d bytes", c.maxBytes)
	}
	if err := tmp.Close(); err != nil {
		discard()
		return db.Release{}, fault.Storage("storage_failure", "could not write firmware binary", err)
	}

	sum, err := checksum.File(tmpPath)
	if err != nil {
		discard()
		return db.Release{}, fault.Integrity("hash_failure", "firmware binary unreadable while hashing", err)
	}

	rel, err := c.repo.InsertRelease(ctx, db.Release{
		Version:     ver,
		Filename:    BinaryFilename(ver),
		Description: description,
		ReleaseDate: c.now().UTC(),
		IsStable:    isStable,
		Checksum:    sum,
	})
	if err != nil {
		discard()
		if errors.Is(err, db.ErrDuplicateVersion) {
			return db.Release{}, fault.Conflict("duplicate_version", "Version already exists")
		}
		return db.Release{}, fault.Storage("storage_failure", "could not persist firmware metadata", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(c.dir, rel.Filename)); err != nil {
		// Roll back the claimed version row; the release must not advertise
		// a binary that never landed.
		if delErr := c.repo.DeleteRelease(ctx, ver); delErr != nil {
			slog.ErrorContext(ctx, "Failed to roll back firmware metadata", "version", ver, "error", delErr)
		}
		discard()
		return db.Release{}, fault.Storage("storage_failure", "could not place firmware binary", err)
	}

	c.stable.Invalidate()
	slog.InfoContext(ctx, "Firmware uploaded", "version", rel.Version, "stable", rel.IsStable, "checksum", rel.Checksum)
	return rel, nil
}

// LatestStable returns the stable release with the newest release_date, or
// nil when the stable channel is empty. Identical release dates are broken
// by version order so the answer stays deterministic. The answer is
// memoized; uploads invalidate it.
func (c *Catalog) LatestStable(ctx context.Context) (*db.Release, error) {
	const fn = "Firmware:LatestStable"
	if rel, ok := c.stable.Get(); ok {
		return rel, nil
	}
	releases, err := c.repo.StableReleases(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", fn, err)
	}
	if len(releases) == 0 {
		c.stable.Set(nil)
		return nil, nil
	}

	best := releases[0]
	for _, rel := range releases[1:] {
		if !rel.ReleaseDate.Equal(best.ReleaseDate) {
			break
		}
		cmp, err := version.Compare(rel.Version, best.Version)
		if err != nil {
			slog.WarnContext(ctx, "Skipping release with malformed version in tie-break", "version", rel.Version)
			continue
		}
		if cmp == version.Greater {
			best = rel
		}
	}
	c.stable.Set(&best)
	return &best, nil
}

func (c *Catalog) Get(ctx context.Context, ver string) (db.Release, error) {
	const fn = "Firmware:Get"
	rel, err := c.repo.GetRelease(ctx, ver)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return rel, fault.NotFound("version_not_found", "Firmware version not found")
		}
		return rel, fmt.Errorf("%s:%w", fn, err)
	}
	return rel, nil
}

func (c *Catalog) List(ctx context.Context) ([]db.Release, error) {
	const fn = "Firmware:List"
	releases, err := c.repo.ListReleases(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", fn, err)
	}
	return releases, nil
}

// OpenBinary opens the stored binary for a release. A catalog entry whose
// backing file is missing is an integrity failure, distinct from an unknown
// version.
func (c *Catalog) OpenBinary(ctx context.Context, ver string) (io.ReadCloser, db.Release, error) {
	rel, err := c.Get(ctx, ver)
	if err != nil {
		return nil, rel, err
	}
	f, err := os.Open(filepath.Join(c.dir, rel.Filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rel, fault.Integrity("missing_binary", "firmware metadata references a missing file", err)
		}
		return nil, rel, fault.Storage("storage_failure", "could not open firmware binary", err)
	}
	return f, rel, nil
}
