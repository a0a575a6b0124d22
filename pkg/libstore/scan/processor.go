package scan

import (
	"context"
	"sync"

	"github.com/tendant/library-store/pkg/libstore"
)

// LibraryProcessor processes individual libraries.
// Return error to mark the library as failed (scan continues with the next one).
type LibraryProcessor interface {
	Process(ctx context.Context, library *libstore.Library) error
}

// DeleteProcessor deletes each library it is given and keeps the results.
type DeleteProcessor struct {
	Service libstore.Service
	Actor   string
	DryRun  bool

	mu      sync.Mutex
	results []*libstore.DeletionResult
}

// NewDeleteProcessor creates a processor deleting libraries on behalf of actor.
func NewDeleteProcessor(svc libstore.Service, actor string, dryRun bool) *DeleteProcessor {
	return &DeleteProcessor{Service: svc, Actor: actor, DryRun: dryRun}
}

func (p *DeleteProcessor) Process(ctx context.Context, library *libstore.Library) error {
	result, err := p.Service.DeleteLibrary(ctx, libstore.DeleteLibraryRequest{
		Key:    library.Key.String(),
		Actor:  p.Actor,
		DryRun: p.DryRun,
	})
	if result != nil {
		p.mu.Lock()
		p.results = append(p.results, result)
		p.mu.Unlock()
	}
	return err
}

// Results returns the deletion results collected so far, partial ones included.
func (p *DeleteProcessor) Results() []*libstore.DeletionResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*libstore.DeletionResult(nil), p.results...)
}
