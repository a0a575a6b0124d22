package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/library-store/pkg/libstore"
)

// Schema creates the tables used by the repository. It is safe to run
// repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS library (
	org          TEXT NOT NULL,
	slug         TEXT NOT NULL,
	display_name TEXT NOT NULL,
	created_by   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	deleted_at   TIMESTAMPTZ,
	deleted_by   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (org, slug)
);

CREATE TABLE IF NOT EXISTS library_block (
	seq                  BIGSERIAL,
	org                  TEXT NOT NULL,
	slug                 TEXT NOT NULL,
	block_type           TEXT NOT NULL,
	block_id             TEXT NOT NULL,
	display_name         TEXT NOT NULL DEFAULT '',
	storage_backend_name TEXT NOT NULL DEFAULT '',
	data_key             TEXT NOT NULL DEFAULT '',
	mime_type            TEXT NOT NULL DEFAULT '',
	size                 BIGINT NOT NULL DEFAULT 0,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL,
	deleted_at           TIMESTAMPTZ,
	deleted_by           TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (org, slug, block_type, block_id),
	FOREIGN KEY (org, slug) REFERENCES library (org, slug)
);

CREATE INDEX IF NOT EXISTS idx_library_block_live ON library_block (org, slug, seq) WHERE deleted_at IS NULL;
`

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements libstore.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) libstore.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) libstore.Repository {
	return &Repository{db: pool}
}

// EnsureSchema creates the repository tables when missing.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.TableName, "block") {
				return libstore.ErrBlockExists
			}
			return libstore.ErrLibraryExists
		case "23503": // foreign_key_violation
			return libstore.ErrLibraryNotFound
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Library operations

func (r *Repository) CreateLibrary(ctx context.Context, library *libstore.Library) error {
	query := `
		INSERT INTO library (
			org, slug, display_name, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		library.Key.Org, library.Key.Library, library.DisplayName,
		library.CreatedBy, library.CreatedAt, library.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create library", err)
	}
	return nil
}

const libraryColumns = `org, slug, display_name, created_by, created_at, updated_at, deleted_at, deleted_by`

func scanLibrary(row pgx.Row) (*libstore.Library, error) {
	var library libstore.Library
	err := row.Scan(
		&library.Key.Org, &library.Key.Library, &library.DisplayName, &library.CreatedBy,
		&library.CreatedAt, &library.UpdatedAt, &library.DeletedAt, &library.DeletedBy)
	if err != nil {
		return nil, err
	}
	return &library, nil
}

func (r *Repository) GetLibrary(ctx context.Context, key libstore.LibraryKey) (*libstore.Library, error) {
	query := `SELECT ` + libraryColumns + ` FROM library WHERE org = $1 AND slug = $2`

	library, err := scanLibrary(r.db.QueryRow(ctx, query, key.Org, key.Library))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, libstore.ErrLibraryNotFound
		}
		return nil, r.handlePostgresError("get library", err)
	}
	return library, nil
}

func libraryWhere(org *string, includeDeleted bool) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if !includeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if org != nil {
		args = append(args, *org)
		conds = append(conds, fmt.Sprintf("org = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *Repository) ListLibraries(ctx context.Context, filters libstore.LibraryListFilters) ([]*libstore.Library, error) {
	where, args := libraryWhere(filters.Org, filters.IncludeDeleted)
	query := `SELECT ` + libraryColumns + ` FROM library` + where + ` ORDER BY created_at, org, slug`

	if filters.Limit != nil && *filters.Limit >= 0 {
		args = append(args, *filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset != nil && *filters.Offset > 0 {
		args = append(args, *filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list libraries", err)
	}
	defer rows.Close()

	result := []*libstore.Library{}
	for rows.Next() {
		library, err := scanLibrary(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan library", err)
		}
		result = append(result, library)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list libraries", err)
	}
	return result, nil
}

func (r *Repository) CountLibraries(ctx context.Context, filters libstore.LibraryCountFilters) (int64, error) {
	where, args := libraryWhere(filters.Org, filters.IncludeDeleted)

	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM library`+where, args...).Scan(&count); err != nil {
		return 0, r.handlePostgresError("count libraries", err)
	}
	return count, nil
}

func (r *Repository) DeleteLibrary(ctx context.Context, key libstore.LibraryKey, actor string) error {
	// Soft delete; an existing marker is left untouched
	query := `
		UPDATE library SET deleted_at = $3, deleted_by = $4, updated_at = $3
		WHERE org = $1 AND slug = $2 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query, key.Org, key.Library, time.Now().UTC(), actor)
	if err != nil {
		return r.handlePostgresError("delete library", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetLibrary(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Block operations

func (r *Repository) CreateBlock(ctx context.Context, block *libstore.Block) error {
	// Insert only into a live library
	query := `
		INSERT INTO library_block (
			org, slug, block_type, block_id, display_name, storage_backend_name,
			data_key, mime_type, size, created_at, updated_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		FROM library WHERE org = $1 AND slug = $2 AND deleted_at IS NULL`

	lib := block.Key.Library
	tag, err := r.db.Exec(ctx, query,
		lib.Org, lib.Library, block.Key.BlockType, block.Key.BlockID,
		block.DisplayName, block.StorageBackendName, block.DataKey,
		block.MimeType, block.Size, block.CreatedAt, block.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create block", err)
	}
	if tag.RowsAffected() == 0 {
		library, err := r.GetLibrary(ctx, lib)
		if err != nil {
			return err
		}
		if library.IsDeleted() {
			return libstore.ErrLibraryDeleted
		}
		return fmt.Errorf("block %s was not inserted", block.Key)
	}
	return nil
}

const blockColumns = `org, slug, block_type, block_id, display_name, storage_backend_name,
	data_key, mime_type, size, created_at, updated_at, deleted_at, deleted_by`

func scanBlock(row pgx.Row) (*libstore.Block, error) {
	var block libstore.Block
	err := row.Scan(
		&block.Key.Library.Org, &block.Key.Library.Library, &block.Key.BlockType, &block.Key.BlockID,
		&block.DisplayName, &block.StorageBackendName, &block.DataKey, &block.MimeType, &block.Size,
		&block.CreatedAt, &block.UpdatedAt, &block.DeletedAt, &block.DeletedBy)
	if err != nil {
		return nil, err
	}
	return &block, nil
}

func (r *Repository) GetBlock(ctx context.Context, key libstore.UsageKey) (*libstore.Block, error) {
	query := `SELECT ` + blockColumns + ` FROM library_block
		WHERE org = $1 AND slug = $2 AND block_type = $3 AND block_id = $4`

	block, err := scanBlock(r.db.QueryRow(ctx, query, key.Library.Org, key.Library.Library, key.BlockType, key.BlockID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, libstore.ErrBlockNotFound
		}
		return nil, r.handlePostgresError("get block", err)
	}
	return block, nil
}

func (r *Repository) ListBlocks(ctx context.Context, key libstore.LibraryKey) ([]*libstore.Block, error) {
	if _, err := r.GetLibrary(ctx, key); err != nil {
		return nil, err
	}

	query := `SELECT ` + blockColumns + ` FROM library_block
		WHERE org = $1 AND slug = $2 AND deleted_at IS NULL
		ORDER BY seq`

	rows, err := r.db.Query(ctx, query, key.Org, key.Library)
	if err != nil {
		return nil, r.handlePostgresError("list blocks", err)
	}
	defer rows.Close()

	result := []*libstore.Block{}
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan block", err)
		}
		result = append(result, block)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list blocks", err)
	}
	return result, nil
}

func (r *Repository) DeleteBlock(ctx context.Context, key libstore.UsageKey, actor string) error {
	query := `
		UPDATE library_block SET deleted_at = $5, deleted_by = $6, updated_at = $5
		WHERE org = $1 AND slug = $2 AND block_type = $3 AND block_id = $4 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query,
		key.Library.Org, key.Library.Library, key.BlockType, key.BlockID, time.Now().UTC(), actor)
	if err != nil {
		return r.handlePostgresError("delete block", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetBlock(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
