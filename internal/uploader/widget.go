// Package uploader implements the upload widget: a list of pending files with
// preview references, and a sequential upload of that list to object storage
// with a shared progress percentage.
package uploader

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropbucket/uploader/internal/preview"
	"github.com/dropbucket/uploader/internal/storage"
)

// ErrUploadInProgress is returned when the pending list is changed, or a new
// batch is started, while a batch is running.
var ErrUploadInProgress = errors.New("upload in progress")

// ClientFactory builds the storage client for one batch. Configuration
// problems surface here and are treated as a failure of every file.
type ClientFactory func(ctx context.Context) (storage.Storage, error)

// File is a user-selected file as received from the page.
type File struct {
	Name    string
	Content []byte
}

// PendingFile is a selected file waiting to be uploaded. Name is both the
// display key and the storage key; uniqueness is not enforced.
type PendingFile struct {
	ID          string `json:"id"          example:"3f0c2a52-8a53-4d8e-9f57-5d9a2f0b1c11"`
	Name        string `json:"name"        example:"holiday.jpg"`
	Size        int64  `json:"size"        example:"482113"`
	ContentType string `json:"contentType" example:"image/jpeg"`
	Preview     string `json:"preview"     example:"/api/v1/previews/9b2d5f7e-0c4e-4a7b-8f0e-2b8f4e6d1a33"`

	content []byte
}

// Session is the widget's upload state. Progress is the percentage of the
// file currently in flight.
type Session struct {
	Uploading bool    `json:"uploading" example:"true"`
	Progress  float64 `json:"progress"  example:"42.5"`
	Success   bool    `json:"success"   example:"false"`
	Current   string  `json:"current,omitempty" example:"holiday.jpg"`
	Pending   int     `json:"pending"   example:"3"`
	Attempted int     `json:"attempted" example:"1"`
	Succeeded int     `json:"succeeded" example:"1"`
	Failed    int     `json:"failed"    example:"0"`
}

// Report summarises a finished batch.
type Report struct {
	Attempted int
	Succeeded int
	Failed    int
}

// Option configures a Widget.
type Option func(*Widget)

// WithClock overrides the time source used for activity tracking.
func WithClock(now func() time.Time) Option {
	return func(w *Widget) { w.now = now }
}

// WithLogger sets the logger used for per-file failures.
func WithLogger(l *slog.Logger) Option {
	return func(w *Widget) { w.log = l }
}

// Widget owns the pending list, its preview references and the upload
// session. It is safe for concurrent use.
type Widget struct {
	newClient ClientFactory
	previews  *preview.Store
	log       *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	files    []*PendingFile
	session  Session
	inFlight int // index into the running batch, -1 when idle
	touched  time.Time
}

// NewWidget creates an empty widget that uploads through clients built by
// newClient.
func NewWidget(newClient ClientFactory, opts ...Option) *Widget {
	w := &Widget{
		newClient: newClient,
		previews:  preview.NewStore(preview.DefaultPrefix),
		log:       slog.Default(),
		now:       time.Now,
		inFlight:  -1,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.touched = w.now()
	return w
}

// Add appends files to the pending list and issues a preview reference for
// each. No type or size restriction is applied.
func (w *Widget) Add(files []File) ([]PendingFile, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session.Uploading {
		return nil, ErrUploadInProgress
	}
	w.touched = w.now()

	added := make([]PendingFile, 0, len(files))
	for _, f := range files {
		ref, contentType := w.previews.Create(f.Name, f.Content)
		pf := &PendingFile{
			ID:          uuid.NewString(),
			Name:        f.Name,
			Size:        int64(len(f.Content)),
			ContentType: contentType,
			Preview:     ref,
			content:     f.Content,
		}
		w.files = append(w.files, pf)
		added = append(added, *pf)
	}
	return added, nil
}

// Remove drops the pending file with the given id and revokes its preview.
// It reports false when no such file is pending.
func (w *Widget) Remove(id string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session.Uploading {
		return false, ErrUploadInProgress
	}
	w.touched = w.now()

	for i, f := range w.files {
		if f.ID == id {
			w.previews.Revoke(f.Preview)
			w.files = append(w.files[:i], w.files[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Files returns a snapshot of the pending list in selection order.
func (w *Widget) Files() []PendingFile {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]PendingFile, len(w.files))
	for i, f := range w.files {
		out[i] = *f
	}
	return out
}

// Session returns a snapshot of the upload state.
func (w *Widget) Session() Session {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.session
	s.Pending = len(w.files)
	return s
}

// Previews exposes the widget's preview references.
func (w *Widget) Previews() *preview.Store {
	return w.previews
}

// touch records activity. The registry calls it on every lookup so a widget
// handed to a request is not expired underneath it.
func (w *Widget) touch() {
	w.mu.Lock()
	w.touched = w.now()
	w.mu.Unlock()
}

// LastActive returns the time of the last lookup of or change made through
// the widget.
func (w *Widget) LastActive() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.touched
}

// UploadAll uploads the pending list and blocks until every file has been
// attempted.
func (w *Widget) UploadAll(ctx context.Context) (Report, error) {
	done, err := w.Start(ctx)
	if err != nil {
		return Report{}, err
	}
	return <-done, nil
}

// Start begins a batch in the background and returns a channel that yields
// the report once every file has been attempted. The batch cannot be
// cancelled; ctx only carries values and the transport's own deadlines.
func (w *Widget) Start(ctx context.Context) (<-chan Report, error) {
	w.mu.Lock()
	if w.session.Uploading {
		w.mu.Unlock()
		return nil, ErrUploadInProgress
	}
	w.session = Session{Uploading: true}
	w.touched = w.now()
	batch := make([]*PendingFile, len(w.files))
	copy(batch, w.files)
	w.mu.Unlock()

	done := make(chan Report, 1)
	go func() {
		done <- w.run(ctx, batch)
		close(done)
	}()
	return done, nil
}

func (w *Widget) run(ctx context.Context, batch []*PendingFile) Report {
	client, clientErr := w.newClient(ctx)
	if clientErr != nil {
		w.log.ErrorContext(ctx, "storage client unavailable", "err", clientErr)
	}

	var report Report
	for i, f := range batch {
		w.mu.Lock()
		w.inFlight = i
		w.session.Current = f.Name
		w.session.Progress = 0
		w.mu.Unlock()

		err := clientErr
		if client != nil {
			err = client.Upload(ctx, f.Name, bytes.NewReader(f.content), f.Size, f.ContentType, w.progressFor(i))
		}

		report.Attempted++
		if err != nil {
			report.Failed++
			w.log.ErrorContext(ctx, "error uploading file", "key", f.Name, "err", err)
		} else {
			report.Succeeded++
			w.log.InfoContext(ctx, "uploaded file", "key", f.Name, "size", f.Size)
		}

		w.mu.Lock()
		w.session.Attempted = report.Attempted
		w.session.Succeeded = report.Succeeded
		w.session.Failed = report.Failed
		if err == nil {
			w.session.Success = true
		}
		w.mu.Unlock()
	}

	w.mu.Lock()
	for _, f := range w.files {
		w.previews.Revoke(f.Preview)
	}
	w.files = nil
	w.inFlight = -1
	w.session.Uploading = false
	w.session.Current = ""
	w.touched = w.now()
	w.mu.Unlock()

	return report
}

// progressFor returns the progress callback for the i-th file of the running
// batch. Events for other files, events without a total and values lower
// than the current one are ignored.
func (w *Widget) progressFor(i int) storage.ProgressFunc {
	return func(loaded, total int64) {
		if loaded <= 0 || total <= 0 {
			return
		}
		pct := float64(loaded) / float64(total) * 100
		if pct > 100 {
			pct = 100
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.inFlight == i && pct > w.session.Progress {
			w.session.Progress = pct
		}
	}
}

// expire drops the pending list and revokes all previews if the widget has
// been idle since before cutoff. A running batch is never expired.
func (w *Widget) expire(cutoff time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session.Uploading || w.touched.After(cutoff) {
		return false
	}
	w.files = nil
	w.previews.RevokeAll()
	return true
}
