package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpaHandler(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<app/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))
	h := spaHandler{staticPath: dir, indexPath: "index.html"}

	tests := []struct {
		name string
		path string
		body string
	}{
		{"existing file", "/app.js", "console.log(1)"},
		{"client route", "/posts/42", "<app/>"},
		{"root", "/", "<app/>"},
		{"no escaping the static dir", "/../../etc/passwd", "<app/>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.body, rr.Body.String())
		})
	}
}
