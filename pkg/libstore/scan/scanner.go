package scan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/library-store/pkg/libstore"
)

// Scanner lists libraries and processes them with the provided processor.
type Scanner struct {
	svc    libstore.Service
	logger *slog.Logger
}

// New creates a new Scanner instance. A nil logger uses slog.Default().
func New(svc libstore.Service, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{svc: svc, logger: logger.With("component", "scan")}
}

// ScanOptions configures the scan operation.
type ScanOptions struct {
	// Org restricts the scan to one organization (optional)
	Org string

	// IncludeDeleted also hands deleted libraries to the processor
	IncludeDeleted bool

	// Processor defines the processing logic (required unless DryRun is true)
	Processor LibraryProcessor

	// BatchSize controls how many libraries to list at once (default: 100)
	BatchSize int

	// DryRun if true, doesn't process libraries, just reports what would be processed
	DryRun bool

	// OnProgress is called after each library is handled (optional)
	OnProgress func(processed, total int64)
}

// ScanResult contains statistics about the scan operation.
type ScanResult struct {
	// TotalFound is the number of libraries matching the options
	TotalFound int64

	// TotalProcessed is the number of libraries successfully processed
	TotalProcessed int64

	// TotalFailed is the number of libraries that failed processing
	TotalFailed int64

	// FailedKeys contains the keys of libraries that failed processing
	FailedKeys []string

	// Errors maps a failed key to its error
	Errors map[string]error
}

// Scan lists every library matching the options, then processes each one.
// The full key set is taken before the first library is processed, so a
// processor that deletes libraries cannot shift the listing under the scan.
// A failing library is recorded and scanning continues.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	result := &ScanResult{Errors: make(map[string]error)}

	if !opts.DryRun && opts.Processor == nil {
		return result, fmt.Errorf("processor is required when DryRun is false")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}

	libraries, err := s.snapshot(ctx, opts)
	if err != nil {
		return result, err
	}
	result.TotalFound = int64(len(libraries))
	s.logger.InfoContext(ctx, "Scan started", "found", result.TotalFound, "org", opts.Org, "dry_run", opts.DryRun)

	for _, library := range libraries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		key := library.Key.String()
		if opts.DryRun {
			s.logger.InfoContext(ctx, "Would process library", "library", key, "deleted", library.IsDeleted())
			result.TotalProcessed++
		} else if err := opts.Processor.Process(ctx, library); err != nil {
			result.TotalFailed++
			result.FailedKeys = append(result.FailedKeys, key)
			result.Errors[key] = err
			s.logger.ErrorContext(ctx, "Failed to process library", "library", key, "err", err)
		} else {
			result.TotalProcessed++
		}

		if opts.OnProgress != nil {
			opts.OnProgress(result.TotalProcessed+result.TotalFailed, result.TotalFound)
		}
	}

	s.logger.InfoContext(ctx, "Scan finished", "processed", result.TotalProcessed, "failed", result.TotalFailed)
	return result, nil
}

func (s *Scanner) snapshot(ctx context.Context, opts ScanOptions) ([]*libstore.Library, error) {
	var libraries []*libstore.Library
	offset := 0
	for {
		page, err := s.svc.ListLibraries(ctx, libstore.ListLibrariesRequest{
			Org:            opts.Org,
			IncludeDeleted: opts.IncludeDeleted,
			Limit:          opts.BatchSize,
			Offset:         offset,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list libraries: %w", err)
		}
		libraries = append(libraries, page...)
		if len(page) < opts.BatchSize {
			return libraries, nil
		}
		offset += opts.BatchSize
	}
}

// ForEach is a convenience method that processes each library with a callback function.
//
// Example:
//
//	scanner.ForEach(ctx, "OpenedX", func(ctx context.Context, library *libstore.Library) error {
//	    fmt.Println(library.Key)
//	    return nil
//	})
func (s *Scanner) ForEach(ctx context.Context, org string, fn func(context.Context, *libstore.Library) error) (*ScanResult, error) {
	return s.Scan(ctx, ScanOptions{
		Org:       org,
		Processor: &funcProcessor{fn: fn},
	})
}

// funcProcessor adapts a function to the LibraryProcessor interface.
type funcProcessor struct {
	fn func(context.Context, *libstore.Library) error
}

func (p *funcProcessor) Process(ctx context.Context, library *libstore.Library) error {
	return p.fn(ctx, library)
}
