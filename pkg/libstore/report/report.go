// Package report writes library deletion results as CSV.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/tendant/library-store/pkg/libstore"
)

// Row statuses
const (
	StatusDeleted        = "deleted"
	StatusAlreadyDeleted = "already_deleted"
	StatusWouldDelete    = "would_delete"
	StatusNotDeleted     = "not_deleted"
)

// Row kinds
const (
	KindLibrary = "library"
	KindBlock   = "block"
)

// Row is one line of a deletion report.
type Row struct {
	LibraryKey string `csv:"library_key"`
	BlockKey   string `csv:"block_key"`
	Kind       string `csv:"kind"`
	Status     string `csv:"status"`
	Actor      string `csv:"actor"`
	DeletedAt  string `csv:"deleted_at"`
}

// Rows flattens a deletion result into one row per enumerated block followed
// by one row for the library itself.
func Rows(result *libstore.DeletionResult) []Row {
	if result == nil {
		return nil
	}

	libKey := result.LibraryKey.String()
	deletedAt := ""
	if !result.DryRun && !result.CompletedAt.IsZero() {
		deletedAt = result.CompletedAt.UTC().Format(time.RFC3339)
	}

	deleted := make(map[libstore.UsageKey]bool, len(result.DeletedBlocks))
	for _, key := range result.DeletedBlocks {
		deleted[key] = true
	}

	rows := make([]Row, 0, len(result.Blocks)+1)
	for _, key := range result.Blocks {
		row := Row{LibraryKey: libKey, BlockKey: key.String(), Kind: KindBlock, Actor: result.Actor}
		switch {
		case result.DryRun:
			row.Status = StatusWouldDelete
		case deleted[key]:
			row.Status = StatusDeleted
			row.DeletedAt = deletedAt
		default:
			row.Status = StatusNotDeleted
		}
		rows = append(rows, row)
	}

	row := Row{LibraryKey: libKey, Kind: KindLibrary, Actor: result.Actor}
	switch {
	case result.AlreadyDeleted:
		row.Status = StatusAlreadyDeleted
	case result.DryRun:
		row.Status = StatusWouldDelete
	case result.LibraryDeleted:
		row.Status = StatusDeleted
		row.DeletedAt = deletedAt
	default:
		row.Status = StatusNotDeleted
	}
	return append(rows, row)
}

// Write writes rows as CSV with a header line.
func Write(w io.Writer, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteFile writes rows to a new <uuid>.csv file in dir and returns its path.
func WriteFile(dir string, rows []Row) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, uuid.New().String()+".csv")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	if err := writeAndClose(file, rows); err != nil {
		return "", err
	}
	return path, nil
}

// writeAndClose writes rows to wc and closes it. A close failure is an
// error since buffered rows may not have reached the file.
func writeAndClose(wc io.WriteCloser, rows []Row) error {
	if err := Write(wc, rows); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	return nil
}
