package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataProbe_HeadRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Length", "4096")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	info := NewMetadataProbe().FileMetadata(context.Background(), server.URL+"/files/x")

	assert.Equal(t, "report.pdf", info.Filename)
	assert.Equal(t, int64(4096), info.Size)
	assert.Equal(t, "application/pdf", info.ContentType)
	assert.Equal(t, probeHead, info.Method)
}

func TestMetadataProbe_RangeFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		require.Equal(t, "bytes=0-0", r.Header.Get("Range"))
		w.Header().Set("Content-Range", "bytes 0-0/123456")
		w.Header().Set("Content-Type", "application/zip; boundary=x")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte{0})
	}))
	defer server.Close()

	info := NewMetadataProbe().FileMetadata(context.Background(), server.URL+"/archive.zip")

	assert.Equal(t, int64(123456), info.Size, "total size comes from Content-Range")
	assert.Equal(t, "application/zip", info.ContentType)
	assert.Equal(t, probePartial, info.Method)
	assert.Equal(t, "archive.zip", info.Filename)
}

func TestMetadataProbe_RangeIgnoredByServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		// Server ignores the Range header and answers 200 with the full length.
		w.Header().Set("Content-Length", "7")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	info := NewMetadataProbe().FileMetadata(context.Background(), server.URL+"/thing.bin")

	assert.Equal(t, int64(7), info.Size)
	assert.Equal(t, probePartial, info.Method)
}

func TestMetadataProbe_TotalFailureDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	info := NewMetadataProbe().FileMetadata(context.Background(), server.URL+"/files/manual.pdf")

	// Degraded, not an error: filename from the URL path, zero size.
	assert.Equal(t, "manual.pdf", info.Filename)
	assert.Equal(t, int64(0), info.Size)
	assert.Equal(t, "unknown", info.ContentType)
	assert.Equal(t, probeFallback, info.Method)
}

func TestFilenameFromHeaders(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		want        string
	}{
		{"quoted", `attachment; filename="data.csv"`, "data.csv"},
		{"unquoted", `attachment; filename=data.csv`, "data.csv"},
		{"percent-encoded", `attachment; filename*="na%20me.pdf"`, "na me.pdf"},
		{"missing", `inline`, ""},
		{"empty header", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.disposition != "" {
				header.Set("Content-Disposition", tt.disposition)
			}
			assert.Equal(t, tt.want, filenameFromHeaders(header))
		})
	}
}

func TestFilenameFromPath(t *testing.T) {
	tests := []struct {
		url      string
		fallback string
		want     string
	}{
		{"https://example.com/files/paper.pdf", "download", "paper.pdf"},
		{"https://example.com/files/", "download", "download"},
		{"https://example.com", "download", "download"},
		{"https://example.com/my%20file.zip", "download", "my file.zip"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, filenameFromPath(tt.url, tt.fallback))
		})
	}
}

func TestExtensionForContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"application/pdf", ".pdf"},
		{"image/png", ".png"},
		{"application/zip", ".zip"},
		{"unknown", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, extensionForContentType(tt.contentType))
		})
	}
}

func TestHeaderContentType(t *testing.T) {
	header := http.Header{}
	header.Set("Content-Type", "text/html; charset=utf-8")
	assert.Equal(t, "text/html", headerContentType(header))

	assert.Equal(t, "unknown", headerContentType(http.Header{}))
}

func TestResolveFilename_PriorityOrder(t *testing.T) {
	// Content-Disposition wins over the URL path.
	header := http.Header{}
	header.Set("Content-Disposition", `attachment; filename="from-header.bin"`)
	assert.Equal(t, "from-header.bin", resolveFilename(header, "https://x.test/from-path.bin"))

	// URL path when no disposition.
	assert.Equal(t, "from-path.bin", resolveFilename(http.Header{}, "https://x.test/from-path.bin"))

	// Placeholder plus guessed extension when neither is usable.
	header = http.Header{}
	header.Set("Content-Type", "application/pdf")
	assert.Equal(t, "download.pdf", resolveFilename(header, "https://x.test/"))
}
