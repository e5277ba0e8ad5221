package uploader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dropbucket/uploader/internal/preview"
	"github.com/dropbucket/uploader/internal/response"
)

// SessionCookie names the cookie that ties a browser to its widget.
const SessionCookie = "dropbucket_session"

// formField is the multipart field carrying selected files.
const formField = "files"

// Handler holds HTTP handlers for the widget endpoints.
type Handler struct {
	widgets   *Registry
	maxMemory int64

	batches sync.WaitGroup
}

// NewHandler creates a new uploader Handler.
func NewHandler(widgets *Registry, maxMemory int64) *Handler {
	return &Handler{widgets: widgets, maxMemory: maxMemory}
}

// AddRoutes registers the widget endpoints on r.
func (h *Handler) AddRoutes(r chi.Router) {
	r.Get("/files", h.ListFiles)
	r.Post("/files", h.AddFiles)
	r.Delete("/files/{id}", h.RemoveFile)
	r.Post("/uploads", h.StartUpload)
	r.Get("/session", h.GetSession)
	r.Get("/previews/{id}", h.GetPreview)
}

// Wait blocks until every batch started through the handler has finished.
func (h *Handler) Wait() {
	h.batches.Wait()
}

type filesData struct {
	Files []PendingFile `json:"files"`
}

type removeData struct {
	Removed bool `json:"removed" example:"true"`
}

// ListFiles godoc
//
//	@Summary		List pending files
//	@Description	Returns the files selected in this browser session that have not been uploaded yet.
//	@Tags			files
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=filesData}
//	@Router			/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	widget := h.widget(w, r)
	response.OK(w, filesData{Files: widget.Files()})
}

// AddFiles godoc
//
//	@Summary		Add files
//	@Description	Appends dropped or selected files to the pending list and issues a preview URL for each. No type or size restriction is applied.
//	@Tags			files
//	@Accept			mpfd
//	@Produce		json
//	@Param			files	formData	file	true	"One or more files"
//	@Success		201		{object}	response.Envelope{data=filesData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		409		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/files [post]
func (h *Handler) AddFiles(w http.ResponseWriter, r *http.Request) {
	widget := h.widget(w, r)

	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		response.BadRequest(w, "invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[formField]
	if len(headers) == 0 {
		response.BadRequest(w, "no files in request")
		return
	}

	files := make([]File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			slog.ErrorContext(r.Context(), "open multipart file", "name", fh.Filename, "err", err)
			response.InternalError(w)
			return
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			slog.ErrorContext(r.Context(), "read multipart file", "name", fh.Filename, "err", err)
			response.InternalError(w)
			return
		}
		files = append(files, File{Name: fh.Filename, Content: content})
	}

	added, err := widget.Add(files)
	if err != nil {
		if errors.Is(err, ErrUploadInProgress) {
			response.UploadInProgress(w)
			return
		}
		response.InternalError(w)
		return
	}

	response.Created(w, filesData{Files: added})
}

// RemoveFile godoc
//
//	@Summary		Remove a file
//	@Description	Drops one pending file and revokes its preview URL.
//	@Tags			files
//	@Produce		json
//	@Param			id	path		string	true	"Pending file ID"
//	@Success		200	{object}	response.Envelope{data=removeData}
//	@Failure		404	{object}	response.Envelope
//	@Failure		409	{object}	response.Envelope
//	@Router			/files/{id} [delete]
func (h *Handler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	widget := h.widget(w, r)

	removed, err := widget.Remove(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrUploadInProgress) {
			response.UploadInProgress(w)
			return
		}
		response.InternalError(w)
		return
	}
	if !removed {
		response.NotFound(w, "file not found")
		return
	}

	response.OK(w, removeData{Removed: true})
}

// StartUpload godoc
//
//	@Summary		Upload pending files
//	@Description	Starts uploading every pending file to the bucket, one at a time, using the file name as the object key. Poll /session for progress. The batch cannot be cancelled.
//	@Tags			uploads
//	@Produce		json
//	@Success		202	{object}	response.Envelope{data=Session}
//	@Failure		400	{object}	response.Envelope
//	@Failure		409	{object}	response.Envelope
//	@Router			/uploads [post]
func (h *Handler) StartUpload(w http.ResponseWriter, r *http.Request) {
	widget := h.widget(w, r)

	if len(widget.Files()) == 0 {
		response.BadRequest(w, "no files to upload")
		return
	}

	// The batch outlives the request and ignores client disconnects.
	done, err := widget.Start(context.WithoutCancel(r.Context()))
	if err != nil {
		if errors.Is(err, ErrUploadInProgress) {
			response.UploadInProgress(w)
			return
		}
		response.InternalError(w)
		return
	}

	h.batches.Add(1)
	go func() {
		defer h.batches.Done()
		<-done
	}()

	response.Accepted(w, widget.Session())
}

// GetSession godoc
//
//	@Summary		Upload session state
//	@Description	Returns the uploading, progress and success flags of this browser session's widget.
//	@Tags			uploads
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=Session}
//	@Router			/session [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.widget(w, r).Session())
}

// GetPreview godoc
//
//	@Summary		Preview a pending file
//	@Description	Serves the bytes of a pending file while its preview URL is valid.
//	@Tags			files
//	@Produce		octet-stream
//	@Param			id	path	string	true	"Preview ID"
//	@Success		200
//	@Failure		404	{object}	response.Envelope
//	@Router			/previews/{id} [get]
func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	p, err := h.widget(w, r).Previews().Open(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, preview.ErrNotFound) {
			response.NotFound(w, "preview not found")
			return
		}
		response.InternalError(w)
		return
	}

	w.Header().Set("Content-Type", p.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.Content)
}

// widget resolves the caller's widget from the session cookie, issuing a new
// session when the cookie is missing or malformed.
func (h *Handler) widget(w http.ResponseWriter, r *http.Request) *Widget {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return h.widgets.Get(c.Value)
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return h.widgets.Get(id)
}
