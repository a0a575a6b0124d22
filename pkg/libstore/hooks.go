package libstore

import (
	"context"
)

// Hook system allows extending deletion behavior without modifying core code.
// Before hooks may veto an operation by returning an error; after hook errors
// are reported through OnError and never undo a completed deletion.

// Hooks defines all available lifecycle hooks
type Hooks struct {
	BeforeLibraryDelete []BeforeLibraryDeleteHook
	AfterLibraryDelete  []AfterLibraryDeleteHook
	BeforeBlockDelete   []BeforeBlockDeleteHook
	AfterBlockDelete    []AfterBlockDeleteHook

	OnError []ErrorHook
}

// HookContext carries information through the hook chain
type HookContext struct {
	Context   context.Context
	Metadata  map[string]interface{} // Custom metadata passed between hooks
	StopChain bool                   // Set to true to stop processing remaining hooks
}

// NewHookContext creates a new hook context
func NewHookContext(ctx context.Context) *HookContext {
	return &HookContext{
		Context:  ctx,
		Metadata: make(map[string]interface{}),
	}
}

// BeforeLibraryDeleteHook is called once the library's blocks are enumerated
// and before anything is deleted.
type BeforeLibraryDeleteHook func(hctx *HookContext, library *Library, blocks []*Block) error

// AfterLibraryDeleteHook is called after the library record is deleted
type AfterLibraryDeleteHook func(hctx *HookContext, result *DeletionResult) error

// BeforeBlockDeleteHook is called before deleting a block
type BeforeBlockDeleteHook func(hctx *HookContext, block *Block) error

// AfterBlockDeleteHook is called after a block is deleted
type AfterBlockDeleteHook func(hctx *HookContext, key UsageKey) error

// ErrorHook is called when an error occurs
type ErrorHook func(hctx *HookContext, operation string, err error)

func (h *Hooks) executeBeforeLibraryDelete(ctx context.Context, library *Library, blocks []*Block) error {
	if h == nil || len(h.BeforeLibraryDelete) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.BeforeLibraryDelete {
		if err := hook(hctx, library, blocks); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeAfterLibraryDelete(ctx context.Context, result *DeletionResult) error {
	if h == nil || len(h.AfterLibraryDelete) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterLibraryDelete {
		if err := hook(hctx, result); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeBeforeBlockDelete(ctx context.Context, block *Block) error {
	if h == nil || len(h.BeforeBlockDelete) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.BeforeBlockDelete {
		if err := hook(hctx, block); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeAfterBlockDelete(ctx context.Context, key UsageKey) error {
	if h == nil || len(h.AfterBlockDelete) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterBlockDelete {
		if err := hook(hctx, key); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeOnError(ctx context.Context, operation string, err error) {
	if h == nil || len(h.OnError) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnError {
		hook(hctx, operation, err)
		if hctx.StopChain {
			break
		}
	}
}
