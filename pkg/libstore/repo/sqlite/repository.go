package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tendant/library-store/pkg/libstore"
	_ "modernc.org/sqlite"
)

// timestamps are stored as fixed-width UTC text so they sort lexically
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Repository implements libstore.Repository using SQLite
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (creating if needed) the SQLite database at path.
// The schema is created if it doesn't exist.
func New(path string) (*Repository, error) {
	logger := slog.Default().With("component", "sqlite")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps pragmas applied and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	r := &Repository{db: db, logger: logger}
	if err := r.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite repository initialized", "path", path)
	return r, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS library (
			org          TEXT NOT NULL,
			slug         TEXT NOT NULL,
			display_name TEXT NOT NULL,
			created_by   TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL,
			deleted_at   TEXT,
			deleted_by   TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (org, slug)
		);

		CREATE TABLE IF NOT EXISTS library_block (
			seq                  INTEGER PRIMARY KEY AUTOINCREMENT,
			org                  TEXT NOT NULL,
			slug                 TEXT NOT NULL,
			block_type           TEXT NOT NULL,
			block_id             TEXT NOT NULL,
			display_name         TEXT NOT NULL DEFAULT '',
			storage_backend_name TEXT NOT NULL DEFAULT '',
			data_key             TEXT NOT NULL DEFAULT '',
			mime_type            TEXT NOT NULL DEFAULT '',
			size                 INTEGER NOT NULL DEFAULT 0,
			created_at           TEXT NOT NULL,
			updated_at           TEXT NOT NULL,
			deleted_at           TEXT,
			deleted_by           TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (org, slug) REFERENCES library(org, slug)
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_library_block_key
			ON library_block(org, slug, block_type, block_id);

		CREATE INDEX IF NOT EXISTS idx_library_block_library
			ON library_block(org, slug, seq);
	`
	_, err := r.db.Exec(schema)
	return err
}

func isUniqueViolation(err error) bool {
	// SQLite returns "UNIQUE constraint failed" in the error message
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Library operations

func (r *Repository) CreateLibrary(ctx context.Context, library *libstore.Library) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO library (org, slug, display_name, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		library.Key.Org, library.Key.Library, library.DisplayName, library.CreatedBy,
		formatTime(library.CreatedAt), formatTime(library.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return libstore.ErrLibraryExists
		}
		return fmt.Errorf("inserting library: %w", err)
	}
	return nil
}

const libraryColumns = `org, slug, display_name, created_by, created_at, updated_at, deleted_at, deleted_by`

type scanner interface {
	Scan(dest ...any) error
}

func scanLibrary(row scanner) (*libstore.Library, error) {
	var (
		library              libstore.Library
		createdAt, updatedAt string
		deletedAt            sql.NullString
	)
	if err := row.Scan(&library.Key.Org, &library.Key.Library, &library.DisplayName, &library.CreatedBy,
		&createdAt, &updatedAt, &deletedAt, &library.DeletedBy); err != nil {
		return nil, err
	}

	var err error
	if library.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if library.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if library.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return nil, fmt.Errorf("parsing deleted_at: %w", err)
	}
	return &library, nil
}

func (r *Repository) GetLibrary(ctx context.Context, key libstore.LibraryKey) (*libstore.Library, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+libraryColumns+` FROM library WHERE org = ? AND slug = ?`, key.Org, key.Library)

	library, err := scanLibrary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, libstore.ErrLibraryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying library: %w", err)
	}
	return library, nil
}

func libraryWhere(org *string, includeDeleted bool) (string, []any) {
	var conds []string
	var args []any
	if !includeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if org != nil {
		conds = append(conds, "org = ?")
		args = append(args, *org)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *Repository) ListLibraries(ctx context.Context, filters libstore.LibraryListFilters) ([]*libstore.Library, error) {
	where, args := libraryWhere(filters.Org, filters.IncludeDeleted)
	query := `SELECT ` + libraryColumns + ` FROM library` + where + ` ORDER BY created_at, org, slug`

	// SQLite requires LIMIT when OFFSET is present; -1 means no limit
	limit := -1
	if filters.Limit != nil && *filters.Limit >= 0 {
		limit = *filters.Limit
	}
	offset := 0
	if filters.Offset != nil && *filters.Offset > 0 {
		offset = *filters.Offset
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying libraries: %w", err)
	}
	defer rows.Close()

	result := []*libstore.Library{}
	for rows.Next() {
		library, err := scanLibrary(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning library: %w", err)
		}
		result = append(result, library)
	}
	return result, rows.Err()
}

func (r *Repository) CountLibraries(ctx context.Context, filters libstore.LibraryCountFilters) (int64, error) {
	where, args := libraryWhere(filters.Org, filters.IncludeDeleted)

	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM library`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting libraries: %w", err)
	}
	return count, nil
}

func (r *Repository) DeleteLibrary(ctx context.Context, key libstore.LibraryKey, actor string) error {
	now := formatTime(time.Now())
	res, err := r.db.ExecContext(ctx, `
		UPDATE library SET deleted_at = ?, deleted_by = ?, updated_at = ?
		WHERE org = ? AND slug = ? AND deleted_at IS NULL`,
		now, actor, now, key.Org, key.Library)
	if err != nil {
		return fmt.Errorf("deleting library: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetLibrary(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Block operations

func (r *Repository) CreateBlock(ctx context.Context, block *libstore.Block) error {
	lib := block.Key.Library
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO library_block (
			org, slug, block_type, block_id, display_name, storage_backend_name,
			data_key, mime_type, size, created_at, updated_at
		)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		FROM library WHERE org = ? AND slug = ? AND deleted_at IS NULL`,
		lib.Org, lib.Library, block.Key.BlockType, block.Key.BlockID, block.DisplayName,
		block.StorageBackendName, block.DataKey, block.MimeType, block.Size,
		formatTime(block.CreatedAt), formatTime(block.UpdatedAt),
		lib.Org, lib.Library)
	if err != nil {
		if isUniqueViolation(err) {
			return libstore.ErrBlockExists
		}
		if isForeignKeyViolation(err) {
			return libstore.ErrLibraryNotFound
		}
		return fmt.Errorf("inserting block: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
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

func scanBlock(row scanner) (*libstore.Block, error) {
	var (
		block                libstore.Block
		createdAt, updatedAt string
		deletedAt            sql.NullString
	)
	if err := row.Scan(&block.Key.Library.Org, &block.Key.Library.Library, &block.Key.BlockType, &block.Key.BlockID,
		&block.DisplayName, &block.StorageBackendName, &block.DataKey, &block.MimeType, &block.Size,
		&createdAt, &updatedAt, &deletedAt, &block.DeletedBy); err != nil {
		return nil, err
	}

	var err error
	if block.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if block.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if block.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return nil, fmt.Errorf("parsing deleted_at: %w", err)
	}
	return &block, nil
}

func (r *Repository) GetBlock(ctx context.Context, key libstore.UsageKey) (*libstore.Block, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+blockColumns+` FROM library_block
		WHERE org = ? AND slug = ? AND block_type = ? AND block_id = ?`,
		key.Library.Org, key.Library.Library, key.BlockType, key.BlockID)

	block, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, libstore.ErrBlockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying block: %w", err)
	}
	return block, nil
}

func (r *Repository) ListBlocks(ctx context.Context, key libstore.LibraryKey) ([]*libstore.Block, error) {
	if _, err := r.GetLibrary(ctx, key); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+blockColumns+` FROM library_block
		WHERE org = ? AND slug = ? AND deleted_at IS NULL
		ORDER BY seq`, key.Org, key.Library)
	if err != nil {
		return nil, fmt.Errorf("querying blocks: %w", err)
	}
	defer rows.Close()

	result := []*libstore.Block{}
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning block: %w", err)
		}
		result = append(result, block)
	}
	return result, rows.Err()
}

func (r *Repository) DeleteBlock(ctx context.Context, key libstore.UsageKey, actor string) error {
	now := formatTime(time.Now())
	res, err := r.db.ExecContext(ctx, `
		UPDATE library_block SET deleted_at = ?, deleted_by = ?, updated_at = ?
		WHERE org = ? AND slug = ? AND block_type = ? AND block_id = ? AND deleted_at IS NULL`,
		now, actor, now, key.Library.Org, key.Library.Library, key.BlockType, key.BlockID)
	if err != nil {
		return fmt.Errorf("deleting block: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetBlock(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
