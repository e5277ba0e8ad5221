package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/", Index)
	r.Handle("/static/*", Static())
	return r
}

func TestIndex(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `id="dropzone"`)
	assert.Contains(t, rec.Body.String(), `/static/app.js`)
}

func TestStaticAssets(t *testing.T) {
	for _, path := range []string{"/static/app.js", "/static/style.css"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			body, err := io.ReadAll(rec.Body)
			require.NoError(t, err)
			assert.NotEmpty(t, body)
		})
	}
}

func TestStaticMissing(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/missing.js", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
