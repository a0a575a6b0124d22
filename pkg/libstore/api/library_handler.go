package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/library-store/pkg/libstore"
)

// ActorHeader names the caller recorded on deletions
const ActorHeader = "X-Actor"

// LibraryResponse is the response body for a library
type LibraryResponse struct {
	Key         string     `json:"key"`
	DisplayName string     `json:"display_name"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	DeletedBy   string     `json:"deleted_by,omitempty"`
}

// BlockResponse is the response body for a block
type BlockResponse struct {
	Key                string     `json:"key"`
	LibraryKey         string     `json:"library_key"`
	BlockType          string     `json:"block_type"`
	DisplayName        string     `json:"display_name,omitempty"`
	StorageBackendName string     `json:"storage_backend_name,omitempty"`
	MimeType           string     `json:"mime_type,omitempty"`
	Size               int64      `json:"size"`
	CreatedAt          time.Time  `json:"created_at"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
	DeletedBy          string     `json:"deleted_by,omitempty"`
}

// DeletionResponse is the response body for a library deletion
type DeletionResponse struct {
	LibraryKey     string    `json:"library_key"`
	Actor          string    `json:"actor"`
	DryRun         bool      `json:"dry_run"`
	AlreadyDeleted bool      `json:"already_deleted"`
	LibraryDeleted bool      `json:"library_deleted"`
	Blocks         []string  `json:"blocks"`
	DeletedBlocks  []string  `json:"deleted_blocks"`
	CompletedAt    time.Time `json:"completed_at"`
}

// ListLibrariesResponse is the response body for listing libraries
type ListLibrariesResponse struct {
	Libraries []LibraryResponse `json:"libraries"`
	Total     int64             `json:"total"`
}

// ErrorResponse is the body of every error reply. Result carries the
// progress of a deletion that stopped part way.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Result *DeletionResponse `json:"result,omitempty"`
}

// CreateLibraryRequest is the request body for creating a library
type CreateLibraryRequest struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
}

// CreateBlockRequest is the request body for creating a block. Data is the
// optional payload as text.
type CreateBlockRequest struct {
	BlockType          string  `json:"block_type"`
	BlockID            string  `json:"block_id"`
	DisplayName        string  `json:"display_name"`
	Data               *string `json:"data,omitempty"`
	MimeType           string  `json:"mime_type"`
	StorageBackendName string  `json:"storage_backend_name"`
}

const maxLibrariesPerPage = 500

// LibraryHandler handles HTTP requests for libraries and their blocks
type LibraryHandler struct {
	service libstore.Service
	logger  *slog.Logger
}

// NewLibraryHandler creates a new library handler. A nil logger uses slog.Default().
func NewLibraryHandler(service libstore.Service, logger *slog.Logger) *LibraryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LibraryHandler{service: service, logger: logger.With("component", "api")}
}

// Routes returns the routes for libraries
func (h *LibraryHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListLibraries)
	r.Post("/", h.CreateLibrary)

	r.Get("/blocks/{usageKey}", h.GetBlock)
	r.Get("/blocks/{usageKey}/data", h.DownloadBlockData)
	r.Delete("/blocks/{usageKey}", h.DeleteBlock)

	r.Get("/{key}", h.GetLibrary)
	r.Delete("/{key}", h.DeleteLibrary)
	r.Get("/{key}/blocks", h.GetLibraryBlocks)
	r.Post("/{key}/blocks", h.CreateBlock)

	return r
}

// ListLibraries lists libraries, optionally filtered by org
func (h *LibraryHandler) ListLibraries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeDeleted, _ := strconv.ParseBool(q.Get("include_deleted"))

	limit, err := intParam(q, "limit", 100)
	if err != nil || limit <= 0 || limit > maxLibrariesPerPage {
		h.writeError(w, r, http.StatusBadRequest, errors.New("invalid limit"))
		return
	}
	offset, err := intParam(q, "offset", 0)
	if err != nil || offset < 0 {
		h.writeError(w, r, http.StatusBadRequest, errors.New("invalid offset"))
		return
	}

	org := q.Get("org")
	libraries, err := h.service.ListLibraries(r.Context(), libstore.ListLibrariesRequest{
		Org:            org,
		IncludeDeleted: includeDeleted,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	filters := libstore.LibraryCountFilters{IncludeDeleted: includeDeleted}
	if org != "" {
		filters.Org = &org
	}
	total, err := h.service.CountLibraries(r.Context(), filters)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := ListLibrariesResponse{Libraries: make([]LibraryResponse, 0, len(libraries)), Total: total}
	for _, library := range libraries {
		resp.Libraries = append(resp.Libraries, toLibraryResponse(library))
	}
	render.JSON(w, r, resp)
}

// CreateLibrary creates a new library
func (h *LibraryHandler) CreateLibrary(w http.ResponseWriter, r *http.Request) {
	var req CreateLibraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	library, err := h.service.CreateLibrary(r.Context(), libstore.CreateLibraryRequest{
		Key:         req.Key,
		DisplayName: req.DisplayName,
		CreatedBy:   actor(r),
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toLibraryResponse(library))
}

// GetLibrary returns one library, deleted or not
func (h *LibraryHandler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	library, err := h.service.GetLibrary(r.Context(), pathParam(r, "key"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, r, toLibraryResponse(library))
}

// GetLibraryBlocks returns the library blocks view
func (h *LibraryHandler) GetLibraryBlocks(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetLibraryBlocks(r.Context(), pathParam(r, "key"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// DeleteLibrary deletes a library and all of its blocks
func (h *LibraryHandler) DeleteLibrary(w http.ResponseWriter, r *http.Request) {
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))

	result, err := h.service.DeleteLibrary(r.Context(), libstore.DeleteLibraryRequest{
		Key:    pathParam(r, "key"),
		Actor:  actor(r),
		DryRun: dryRun,
	})
	if err != nil && result != nil {
		status := StatusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "Library deletion incomplete", "key", result.LibraryKey.String(), "deleted_blocks", len(result.DeletedBlocks), "err", err)
		}
		partial := toDeletionResponse(result)
		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{Error: err.Error(), Result: &partial})
		return
	}
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, r, toDeletionResponse(result))
}

// CreateBlock creates a block in a library
func (h *LibraryHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	var req CreateBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	var data io.Reader
	if req.Data != nil {
		data = strings.NewReader(*req.Data)
	}

	block, err := h.service.CreateBlock(r.Context(), libstore.CreateBlockRequest{
		LibraryKey:         pathParam(r, "key"),
		BlockType:          req.BlockType,
		BlockID:            req.BlockID,
		DisplayName:        req.DisplayName,
		Data:               data,
		MimeType:           req.MimeType,
		StorageBackendName: req.StorageBackendName,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toBlockResponse(block))
}

// GetBlock returns one block
func (h *LibraryHandler) GetBlock(w http.ResponseWriter, r *http.Request) {
	block, err := h.service.GetBlock(r.Context(), pathParam(r, "usageKey"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	render.JSON(w, r, toBlockResponse(block))
}

// DownloadBlockData streams the block payload
func (h *LibraryHandler) DownloadBlockData(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "usageKey")
	block, err := h.service.GetBlock(r.Context(), key)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	reader, err := h.service.DownloadBlockData(r.Context(), key)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	defer reader.Close()

	if block.MimeType != "" {
		w.Header().Set("Content-Type", block.MimeType)
	}
	if block.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(block.Size, 10))
	}
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to stream block data", "block", key, "err", err)
	}
}

// DeleteBlock deletes a single block
func (h *LibraryHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteBlock(r.Context(), libstore.DeleteBlockRequest{
		Key:   pathParam(r, "usageKey"),
		Actor: actor(r),
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StatusFor maps a service error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, libstore.ErrInvalidKey), errors.Is(err, libstore.ErrNotLibraryKey):
		return http.StatusBadRequest
	case errors.Is(err, libstore.ErrLibraryNotFound), errors.Is(err, libstore.ErrBlockNotFound), errors.Is(err, libstore.ErrBlobNotFound):
		return http.StatusNotFound
	case errors.Is(err, libstore.ErrLibraryExists), errors.Is(err, libstore.ErrBlockExists), errors.Is(err, libstore.ErrLibraryDeleted):
		return http.StatusConflict
	case errors.Is(err, libstore.ErrStorageBackendNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *LibraryHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	h.writeError(w, r, status, err)
}

func (h *LibraryHandler) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: err.Error()})
}

func actor(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(ActorHeader))
}

func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func toLibraryResponse(l *libstore.Library) LibraryResponse {
	return LibraryResponse{
		Key:         l.Key.String(),
		DisplayName: l.DisplayName,
		CreatedBy:   l.CreatedBy,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
		DeletedAt:   l.DeletedAt,
		DeletedBy:   l.DeletedBy,
	}
}

func toBlockResponse(b *libstore.Block) BlockResponse {
	return BlockResponse{
		Key:                b.Key.String(),
		LibraryKey:         b.Key.Library.String(),
		BlockType:          b.Key.BlockType,
		DisplayName:        b.DisplayName,
		StorageBackendName: b.StorageBackendName,
		MimeType:           b.MimeType,
		Size:               b.Size,
		CreatedAt:          b.CreatedAt,
		DeletedAt:          b.DeletedAt,
		DeletedBy:          b.DeletedBy,
	}
}

func toDeletionResponse(res *libstore.DeletionResult) DeletionResponse {
	resp := DeletionResponse{
		LibraryKey:     res.LibraryKey.String(),
		Actor:          res.Actor,
		DryRun:         res.DryRun,
		AlreadyDeleted: res.AlreadyDeleted,
		LibraryDeleted: res.LibraryDeleted,
		Blocks:         make([]string, 0, len(res.Blocks)),
		DeletedBlocks:  make([]string, 0, len(res.DeletedBlocks)),
		CompletedAt:    res.CompletedAt,
	}
	for _, key := range res.Blocks {
		resp.Blocks = append(resp.Blocks, key.String())
	}
	for _, key := range res.DeletedBlocks {
		resp.DeletedBlocks = append(resp.DeletedBlocks, key.String())
	}
	return resp
}
