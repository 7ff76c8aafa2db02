package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Download probe status/method tags.
const (
	probeHead     = "head_request"
	probePartial  = "partial_get"
	probeFallback = "fallback"
)

var (
	filenameParamRe = regexp.MustCompile(`filename[*]?=["']?([^;"']+)`)
	contentRangeRe  = regexp.MustCompile(`/(\d+)$`)
)

// MetadataProbe resolves size, content type and filename for a URL without
// downloading the payload. It tries a HEAD request, then a one-byte ranged
// GET, then degrades to a best-effort answer derived from the URL path.
// Degradation is not an error: the probe always returns something usable.
type MetadataProbe struct {
	client *http.Client
}

// NewMetadataProbe creates a probe with a bounded-timeout HTTP client.
func NewMetadataProbe() *MetadataProbe {
	return &MetadataProbe{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// FileMetadata probes rawURL and fills a DownloadInfo with the result.
func (p *MetadataProbe) FileMetadata(ctx context.Context, rawURL string) DownloadInfo {
	if info, err := p.headProbe(ctx, rawURL); err == nil {
		return info
	}
	if info, err := p.rangeProbe(ctx, rawURL); err == nil {
		return info
	}

	// Both probes failed: report what the URL alone can tell us.
	return DownloadInfo{
		Filename:    filenameFromPath(rawURL, "download"),
		URL:         rawURL,
		Size:        0,
		ContentType: "unknown",
		Method:      probeFallback,
	}
}

func (p *MetadataProbe) headProbe(ctx context.Context, rawURL string) (DownloadInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return DownloadInfo{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return DownloadInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return DownloadInfo{}, fmt.Errorf("HEAD request returned %s", resp.Status)
	}

	size, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	contentType := headerContentType(resp.Header)
	return DownloadInfo{
		Filename:    resolveFilename(resp.Header, rawURL),
		URL:         rawURL,
		Size:        size,
		ContentType: contentType,
		Method:      probeHead,
	}, nil
}

func (p *MetadataProbe) rangeProbe(ctx context.Context, rawURL string) (DownloadInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return DownloadInfo{}, err
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := p.client.Do(req)
	if err != nil {
		return DownloadInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return DownloadInfo{}, fmt.Errorf("ranged GET returned %s", resp.Status)
	}

	var size int64
	if resp.StatusCode == http.StatusPartialContent {
		// Total size lives after the slash in Content-Range.
		if m := contentRangeRe.FindStringSubmatch(resp.Header.Get("Content-Range")); m != nil {
			size, _ = strconv.ParseInt(m[1], 10, 64)
		}
	} else {
		size, _ = strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	}

	return DownloadInfo{
		Filename:    resolveFilename(resp.Header, rawURL),
		URL:         rawURL,
		Size:        size,
		ContentType: headerContentType(resp.Header),
		Method:      probePartial,
	}, nil
}

// resolveFilename picks a filename in priority order: Content-Disposition,
// last URL path segment, then a placeholder with an extension guessed from
// the content type.
func resolveFilename(header http.Header, rawURL string) string {
	if name := filenameFromHeaders(header); name != "" {
		return name
	}
	if name := filenameFromPath(rawURL, ""); name != "" {
		return name
	}
	name := "download"
	if ext := extensionForContentType(headerContentType(header)); ext != "" && !strings.HasSuffix(name, ext) {
		name += ext
	}
	return name
}

// filenameFromHeaders extracts a filename from the Content-Disposition
// header, if any.
func filenameFromHeaders(header http.Header) string {
	disposition := header.Get("Content-Disposition")
	if disposition == "" {
		return ""
	}
	m := filenameParamRe.FindStringSubmatch(disposition)
	if m == nil {
		return ""
	}
	if decoded, err := url.QueryUnescape(m[1]); err == nil {
		return decoded
	}
	return m[1]
}

// filenameFromPath takes the last segment of the URL path, or fallback when
// the path ends in a slash or cannot be parsed.
func filenameFromPath(rawURL, fallback string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	segments := strings.Split(parsed.Path, "/")
	last := segments[len(segments)-1]
	if last == "" {
		return fallback
	}
	if decoded, err := url.PathUnescape(last); err == nil {
		return decoded
	}
	return last
}

// extensionForContentType guesses a file extension for a MIME type.
func extensionForContentType(contentType string) string {
	if contentType == "" || contentType == "unknown" {
		return ""
	}
	if m := mimetype.Lookup(contentType); m != nil {
		return m.Extension()
	}
	return ""
}

func headerContentType(header http.Header) string {
	ct := header.Get("Content-Type")
	if ct == "" {
		return "unknown"
	}
	if base, _, found := strings.Cut(ct, ";"); found {
		return strings.TrimSpace(base)
	}
	return ct
}
