package icons

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestBrowserResolver(t *testing.T) {
	if systemBrowser() == "" {
		t.Skip("no Chrome or Chromium binary installed")
	}

	icon := pngBytes(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/icon.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(icon)
	})
	mux.HandleFunc("/page.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>not an image</body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r, err := NewBrowserResolver()
	require.NoError(t, err)
	defer func() { assert.NoError(t, r.Close()) }()

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"loads image", "/icon.png", nil},
		{"missing", "/missing.png", ErrNotLoaded},
		{"not an image", "/page.png", ErrNotLoaded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			err := r.Resolve(ctx, srv.URL+tt.path)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSystemBrowser_NoneInstalled(t *testing.T) {
	old := browserPaths
	browserPaths = []string{t.TempDir() + "/no-such-browser"}
	defer func() { browserPaths = old }()

	assert.Empty(t, systemBrowser())
}
