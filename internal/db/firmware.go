package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgconn"
)

var (
	ErrDuplicateVersion = errors.New("firmware version already exists")
	ErrDeleteFailed     = errors.New("delete operation failed")
)

const releaseColumns = `id, version, filename, description, release_date, is_stable, min_hardware_version, checksum`

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// InsertRelease persists firmware metadata. The unique constraint on
// version makes concurrent uploads of the same version resolve to exactly
// one winner; the loser gets ErrDuplicateVersion.
func (db *DB) InsertRelease(ctx context.Context, rel Release) (Release, error) {
	const fn = "DB:InsertRelease"
	err := pgxscan.Get(ctx, db.pool, &rel, `
		INSERT INTO firmware_releases (
			version,
			filename,
			description,
			release_date,
			is_stable,
			min_hardware_version,
			checksum
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+releaseColumns,
		rel.Version, rel.Filename, rel.Description, rel.ReleaseDate, rel.IsStable, rel.MinHardwareVersion, rel.Checksum)
	if err != nil {
		if isUniqueViolation(err) {
			return rel, fmt.Errorf("%s:%w", fn, ErrDuplicateVersion)
		}
		return rel, fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, err)
	}
	return rel, nil
}

// DeleteRelease removes a metadata row. Only used to roll back an upload
// whose binary could not be placed on storage.
func (db *DB) DeleteRelease(ctx context.Context, version string) error {
	const fn = "DB:DeleteRelease"
	_, err := db.pool.Exec(ctx, `DELETE FROM firmware_releases WHERE version = $1`, version)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrDeleteFailed, err)
	}
	return nil
}

func (db *DB) GetRelease(ctx context.Context, version string) (Release, error) {
	const fn = "DB:GetRelease"
	var rel Release
	err := pgxscan.Get(ctx, db.pool, &rel, `
		SELECT `+releaseColumns+`
		FROM firmware_releases
		WHERE version = $1
	`, version)
	if err != nil {
		if pgxscan.NotFound(err) {
			return rel, fmt.Errorf("%s:%w", fn, ErrNotFound)
		}
		return rel, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	return rel, nil
}

func (db *DB) ListReleases(ctx context.Context) ([]Release, error) {
	const fn = "DB:ListReleases"
	var releases []Release
	err := pgxscan.Select(ctx, db.pool, &releases, `
		SELECT `+releaseColumns+`
		FROM firmware_releases
		ORDER BY release_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	if releases == nil {
		releases = []Release{}
	}
	return releases, nil
}

// StableReleases returns stable-channel releases newest release_date first.
// Tie-breaking among identical release dates is the catalog's job, via the
// version comparator.
func (db *DB) StableReleases(ctx context.Context) ([]Release, error) {
	const fn = "DB:StableReleases"
	var releases []Release
	err := pgxscan.Select(ctx, db.pool, &releases, `
		SELECT `+releaseColumns+`
		FROM firmware_releases
		WHERE is_stable = TRUE
		ORDER BY release_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	if releases == nil {
		releases = []Release{}
	}
	return releases, nil
}
