package extensions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/platinummonkey/hubcap/pkg/apperr"
	"github.com/platinummonkey/hubcap/pkg/config"
)

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL and configures the pool
func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing connection, used in tests
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// DB exposes the underlying pool for health checks
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

const extensionColumns = `id, uuid, slug, name, author, description, icon_hash,
	status, disabled, deleted, last_updated, author_ids, created_at, updated_at`

func scanExtension(row interface{ Scan(...interface{}) error }) (*Extension, error) {
	var ext Extension
	var lastUpdated sql.NullTime
	err := row.Scan(
		&ext.ID, &ext.UUID, &ext.Slug, &ext.Name, &ext.Author, &ext.Description,
		&ext.IconHash, &ext.Status, &ext.Disabled, &ext.Deleted, &lastUpdated,
		pq.Array(&ext.AuthorIDs), &ext.CreatedAt, &ext.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastUpdated.Valid {
		ext.LastUpdated = &lastUpdated.Time
	}
	return &ext, nil
}

const versionColumns = `id, extension_id, version, status, size, manifest,
	deleted, created_at, updated_at`

func scanVersion(row interface{ Scan(...interface{}) error }) (*Version, error) {
	var v Version
	var manifest []byte
	err := row.Scan(
		&v.ID, &v.ExtensionID, &v.Version, &v.Status, &v.Size, &manifest,
		&v.Deleted, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.Manifest = manifest
	return &v, nil
}

// CreateExtension inserts an extension together with its first version. The
// attach callback runs before commit so the pending version and its unsigned
// artifact land together.
func (s *PostgresStore) CreateExtension(ctx context.Context, ext *Extension, first *Version, attach AttachArtifact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Dependency(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO extensions (uuid, slug, name, author, description, icon_hash, status, author_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query,
		ext.UUID, ext.Slug, ext.Name, ext.Author, ext.Description, ext.IconHash,
		StatusPending, pq.Array(ext.AuthorIDs),
	).Scan(&ext.ID, &ext.CreatedAt, &ext.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("extension name or slug already exists")
		}
		return apperr.Dependency(err, "failed to create extension")
	}
	ext.Status = StatusPending

	query = `
		INSERT INTO versions (extension_id, version, status, size, manifest)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	first.ExtensionID = ext.ID
	first.Status = StatusPending
	err = tx.QueryRowContext(ctx, query,
		first.ExtensionID, first.Version, first.Status, first.Size, []byte(first.Manifest),
	).Scan(&first.ID, &first.CreatedAt, &first.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("version %q already exists", first.Version)
		}
		return apperr.Dependency(err, "failed to create version")
	}

	if attach != nil {
		size, err := attach(ctx, first.ID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE versions SET size = $2 WHERE id = $1`, first.ID, size); err != nil {
			return apperr.Dependency(err, "failed to record version size")
		}
		first.Size = size
	}

	if err := tx.Commit(); err != nil {
		return apperr.Dependency(err, "failed to commit transaction")
	}
	return nil
}

// GetExtension loads an extension by id, including soft-deleted rows
func (s *PostgresStore) GetExtension(ctx context.Context, id int64) (*Extension, error) {
	query := `SELECT ` + extensionColumns + ` FROM extensions WHERE id = $1`
	ext, err := scanExtension(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("extension not found")
	}
	if err != nil {
		return nil, apperr.Dependency(err, "failed to get extension")
	}
	return ext, nil
}

// GetExtensionBySlug loads an extension by slug, including soft-deleted rows
func (s *PostgresStore) GetExtensionBySlug(ctx context.Context, slug string) (*Extension, error) {
	query := `SELECT ` + extensionColumns + ` FROM extensions WHERE lower(slug) = lower($1)`
	ext, err := scanExtension(s.db.QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("extension not found")
	}
	if err != nil {
		return nil, apperr.Dependency(err, "failed to get extension")
	}
	return ext, nil
}

// UpdateExtension applies a metadata patch
func (s *PostgresStore) UpdateExtension(ctx context.Context, id int64, patch ExtensionPatch) (*Extension, error) {
	query := `
		UPDATE extensions
		SET slug = COALESCE($2, slug),
		    disabled = COALESCE($3, disabled),
		    updated_at = now()
		WHERE id = $1 AND NOT deleted
		RETURNING ` + extensionColumns
	ext, err := scanExtension(s.db.QueryRowContext(ctx, query, id, patch.Slug, patch.Disabled))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("extension not found")
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("slug already exists")
		}
		return nil, apperr.Dependency(err, "failed to update extension")
	}
	return ext, nil
}

// DeleteExtension soft-deletes an extension
func (s *PostgresStore) DeleteExtension(ctx context.Context, id int64) (*Extension, error) {
	query := `
		UPDATE extensions
		SET deleted = TRUE, updated_at = now()
		WHERE id = $1 AND NOT deleted
		RETURNING ` + extensionColumns
	ext, err := scanExtension(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("extension not found")
	}
	if err != nil {
		return nil, apperr.Dependency(err, "failed to delete extension")
	}
	return ext, nil
}

// SetExtensionStatus applies an administrative status override
func (s *PostgresStore) SetExtensionStatus(ctx context.Context, id int64, status Status) (*Extension, error) {
	query := `
		UPDATE extensions
		SET status = $2, updated_at = now()
		WHERE id = $1 AND NOT deleted
		RETURNING ` + extensionColumns
	ext, err := scanExtension(s.db.QueryRowContext(ctx, query, id, status))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("extension not found")
	}
	if err != nil {
		return nil, apperr.Dependency(err, "failed to set extension status")
	}
	return ext, nil
}

// lockExtension takes the extension row lock inside tx. Lifecycle mutations
// lock the extension before touching its versions so projection reads a
// stable version set.
func lockExtension(ctx context.Context, tx *sql.Tx, id int64) (*Extension, error) {
	query := `SELECT ` + extensionColumns + ` FROM extensions WHERE id = $1 FOR UPDATE`
	ext, err := scanExtension(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("extension not found")
	}
	if err != nil {
		return nil, apperr.Dependency(err, "failed to lock extension")
	}
	if ext.Deleted {
		return nil, apperr.NotFound("extension not found")
	}
	return ext, nil
}

// lockVersion takes the version row lock inside tx and re-reads its state
func lockVersion(ctx context.Context, tx *sql.Tx, id int64) (*Version, error) {
	query := `SELECT ` + versionColumns + ` FROM versions WHERE id = $1 FOR UPDATE`
	v, err := scanVersion(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("version not found")
	}
	if err != nil {
		return nil, apperr.Dependency(err, "failed to lock version")
	}
	if v.Deleted {
		return nil, apperr.NotFound("version not found")
	}
	return v, nil
}

// projectInTx recomputes the extension's status from its versions inside the
// mutation's transaction. An administrative block freezes projection.
func projectInTx(ctx context.Context, tx *sql.Tx, ext *Extension, setLastUpdated bool) (*Extension, error) {
	versions, err := listVersionsTx(ctx, tx, ext.ID)
	if err != nil {
		return nil, err
	}

	status := ext.Status
	if status != StatusBlocked {
		status = DeriveStatus(versions)
	}

	query := `
		UPDATE extensions
		SET status = $2,
		    last_updated = CASE WHEN $3 AND last_updated IS NULL THEN now() ELSE last_updated END,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + extensionColumns
	updated, err := scanExtension(tx.QueryRowContext(ctx, query, ext.ID, status, setLastUpdated))
	if err != nil {
		return nil, apperr.Dependency(err, "failed to project extension status")
	}
	return updated, nil
}

func listVersionsTx(ctx context.Context, tx *sql.Tx, extensionID int64) ([]*Version, error) {
	query := `SELECT ` + versionColumns + ` FROM versions WHERE extension_id = $1 ORDER BY id DESC`
	rows, err := tx.QueryContext(ctx, query, extensionID)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to list versions")
	}
	defer rows.Close()

	var versions []*Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, apperr.Dependency(err, "failed to scan version")
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency(err, "failed to list versions")
	}
	return versions, nil
}

// AddVersion inserts a pending version and reprojects
func (s *PostgresStore) AddVersion(ctx context.Context, v *Version, attach AttachArtifact) (*MutationResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	ext, err := lockExtension(ctx, tx, v.ExtensionID)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO versions (extension_id, version, status, size, manifest)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	v.Status = StatusPending
	err = tx.QueryRowContext(ctx, query,
		v.ExtensionID, v.Version, v.Status, v.Size, []byte(v.Manifest),
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("version %q already exists", v.Version)
		}
		return nil, apperr.Dependency(err, "failed to create version")
	}

	if attach != nil {
		size, err := attach(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE versions SET size = $2 WHERE id = $1`, v.ID, size); err != nil {
			return nil, apperr.Dependency(err, "failed to record version size")
		}
		v.Size = size
	}

	updated, err := projectInTx(ctx, tx, ext, false)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Dependency(err, "failed to commit transaction")
	}
	return &MutationResult{Version: v, Extension: updated}, nil
}

// GetVersion loads a version by id, including soft-deleted rows
func (s *PostgresStore) GetVersion(ctx context.Context, id int64) (*Version, error) {
	query := `SELECT ` + versionColumns + ` FROM versions WHERE id = $1`
	v, err := scanVersion(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("version not found")
	}
	if err != nil {
		return nil, apperr.Dependency(err, "failed to get version")
	}
	return v, nil
}

// ListVersions returns all versions of an extension, newest first
func (s *PostgresStore) ListVersions(ctx context.Context, extensionID int64) ([]*Version, error) {
	query := `SELECT ` + versionColumns + ` FROM versions WHERE extension_id = $1 ORDER BY id DESC`
	rows, err := s.db.QueryContext(ctx, query, extensionID)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to list versions")
	}
	defer rows.Close()

	var versions []*Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, apperr.Dependency(err, "failed to scan version")
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency(err, "failed to list versions")
	}
	return versions, nil
}

// PublishVersion transitions a version to public
func (s *PostgresStore) PublishVersion(ctx context.Context, versionID, size int64) (*MutationResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	v, err := lockVersion(ctx, tx, versionID)
	if err != nil {
		return nil, err
	}
	ext, err := lockExtension(ctx, tx, v.ExtensionID)
	if err != nil {
		return nil, err
	}

	if v.Status == StatusPublic {
		if err := tx.Commit(); err != nil {
			return nil, apperr.Dependency(err, "failed to commit transaction")
		}
		return &MutationResult{Version: v, Extension: ext, NoOp: true}, nil
	}
	if !CanTransition(v.Status, StatusPublic) {
		return nil, apperr.Conflict("cannot publish a %s version", v.Status)
	}

	query := `
		UPDATE versions SET status = $2, size = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + versionColumns
	v, err = scanVersion(tx.QueryRowContext(ctx, query, versionID, StatusPublic, size))
	if err != nil {
		return nil, apperr.Dependency(err, "failed to publish version")
	}

	updated, err := projectInTx(ctx, tx, ext, true)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Dependency(err, "failed to commit transaction")
	}
	return &MutationResult{Version: v, Extension: updated}, nil
}

// RejectVersion transitions a version to rejected. removeArtifact runs inside
// the transaction after the precondition re-check so the artifact only
// disappears when the rejection actually applies.
func (s *PostgresStore) RejectVersion(ctx context.Context, versionID int64, removeArtifact func(context.Context) (int64, error)) (*MutationResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	v, err := lockVersion(ctx, tx, versionID)
	if err != nil {
		return nil, err
	}
	ext, err := lockExtension(ctx, tx, v.ExtensionID)
	if err != nil {
		return nil, err
	}

	if v.Status == StatusRejected {
		if err := tx.Commit(); err != nil {
			return nil, apperr.Dependency(err, "failed to commit transaction")
		}
		return &MutationResult{Version: v, Extension: ext, NoOp: true}, nil
	}
	if !CanTransition(v.Status, StatusRejected) {
		return nil, apperr.Conflict("cannot reject a %s version", v.Status)
	}

	removed, err := removeArtifact(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE versions SET status = $2, size = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + versionColumns
	v, err = scanVersion(tx.QueryRowContext(ctx, query, versionID, StatusRejected, removed))
	if err != nil {
		return nil, apperr.Dependency(err, "failed to reject version")
	}

	updated, err := projectInTx(ctx, tx, ext, false)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Dependency(err, "failed to commit transaction")
	}
	return &MutationResult{Version: v, Extension: updated}, nil
}

// DeleteVersion soft-deletes a version and reprojects
func (s *PostgresStore) DeleteVersion(ctx context.Context, versionID int64) (*MutationResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	v, err := lockVersion(ctx, tx, versionID)
	if err != nil {
		return nil, err
	}
	ext, err := lockExtension(ctx, tx, v.ExtensionID)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE versions SET deleted = TRUE, updated_at = now()
		WHERE id = $1
		RETURNING ` + versionColumns
	v, err = scanVersion(tx.QueryRowContext(ctx, query, versionID))
	if err != nil {
		return nil, apperr.Dependency(err, "failed to delete version")
	}

	updated, err := projectInTx(ctx, tx, ext, false)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Dependency(err, "failed to commit transaction")
	}
	return &MutationResult{Version: v, Extension: updated}, nil
}

// ListReviewQueue returns pending versions awaiting review, oldest first
func (s *PostgresStore) ListReviewQueue(ctx context.Context, includeDeleted bool) ([]*QueueEntry, error) {
	query := `
		SELECT e.id, e.uuid, e.slug, e.name, e.author, e.description, e.icon_hash,
		       e.status, e.disabled, e.deleted, e.last_updated, e.author_ids, e.created_at, e.updated_at,
		       v.id, v.extension_id, v.version, v.status, v.size, v.manifest,
		       v.deleted, v.created_at, v.updated_at
		FROM versions v
		JOIN extensions e ON e.id = v.extension_id
		WHERE v.status = $1 AND ($2 OR (NOT v.deleted AND NOT e.deleted))
		ORDER BY v.id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, StatusPending, includeDeleted)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to list review queue")
	}
	defer rows.Close()

	var entries []*QueueEntry
	for rows.Next() {
		var ext Extension
		var v Version
		var lastUpdated sql.NullTime
		var manifest []byte
		err := rows.Scan(
			&ext.ID, &ext.UUID, &ext.Slug, &ext.Name, &ext.Author, &ext.Description,
			&ext.IconHash, &ext.Status, &ext.Disabled, &ext.Deleted, &lastUpdated,
			pq.Array(&ext.AuthorIDs), &ext.CreatedAt, &ext.UpdatedAt,
			&v.ID, &v.ExtensionID, &v.Version, &v.Status, &v.Size, &manifest,
			&v.Deleted, &v.CreatedAt, &v.UpdatedAt,
		)
		if err != nil {
			return nil, apperr.Dependency(err, "failed to scan review queue entry")
		}
		if lastUpdated.Valid {
			ext.LastUpdated = &lastUpdated.Time
		}
		v.Manifest = manifest
		entries = append(entries, &QueueEntry{Extension: &ext, Version: &v})
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency(err, "failed to list review queue")
	}
	return entries, nil
}

// CreateUpload records a validated upload
func (s *PostgresStore) CreateUpload(ctx context.Context, u *Upload) error {
	query := `
		INSERT INTO uploads (id, owner_id, filename, hash, blob_path, valid, manifest)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		u.ID, u.OwnerID, u.Filename, u.Hash, u.BlobPath, u.Valid, []byte(u.Manifest),
	).Scan(&u.CreatedAt)
	if err != nil {
		return apperr.Dependency(err, "failed to create upload")
	}
	return nil
}

// GetUpload loads an upload by id
func (s *PostgresStore) GetUpload(ctx context.Context, id string) (*Upload, error) {
	query := `
		SELECT id, owner_id, filename, hash, blob_path, valid, manifest, created_at
		FROM uploads WHERE id = $1
	`
	var u Upload
	var manifest []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.OwnerID, &u.Filename, &u.Hash, &u.BlobPath, &u.Valid, &manifest, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("upload not found")
	}
	if err != nil {
		return nil, apperr.Dependency(err, "failed to get upload")
	}
	u.Manifest = manifest
	return &u, nil
}

// ListSweepableBlobs returns blob references of soft-deleted versions whose
// artifacts have not been purged yet
func (s *PostgresStore) ListSweepableBlobs(ctx context.Context, limit int) ([]BlobRef, error) {
	query := `
		SELECT v.id, e.uuid
		FROM versions v
		JOIN extensions e ON e.id = v.extension_id
		WHERE v.deleted AND NOT v.blobs_swept
		ORDER BY v.id ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to list sweepable blobs")
	}
	defer rows.Close()

	var refs []BlobRef
	for rows.Next() {
		var ref BlobRef
		if err := rows.Scan(&ref.VersionID, &ref.ExtensionUUID); err != nil {
			return nil, apperr.Dependency(err, "failed to scan blob reference")
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency(err, "failed to list sweepable blobs")
	}
	return refs, nil
}

// MarkBlobsSwept records that a version's artifacts were purged
func (s *PostgresStore) MarkBlobsSwept(ctx context.Context, versionID int64) error {
	query := `UPDATE versions SET blobs_swept = TRUE, updated_at = now() WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, versionID); err != nil {
		return apperr.Dependency(err, "failed to mark blobs swept")
	}
	return nil
}
