package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/demon2036/browser-mcp/pkg/logging"
)

// Manager exposes the public browser operations. Every method converts
// engine and network errors into a structured Result at the boundary;
// callers never see raw engine errors.
type Manager struct {
	store       *SessionStore
	probe       *MetadataProbe
	analyzer    AnalyzerOptions
	downloadDir string
	httpClient  *http.Client
	log         *logging.Logger

	// Wait budgets for outcome resolution, overridable in tests.
	navigateWaits raceWaits
	clickWaits    raceWaits
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// MaxSessions bounds the session store capacity
	MaxSessions int

	// DownloadDir is where force_download writes files (default ./downloads)
	DownloadDir string
}

// NewManager creates a manager on top of engine.
func NewManager(engine Engine, opts ManagerOptions) *Manager {
	if opts.DownloadDir == "" {
		opts.DownloadDir = "downloads"
	}
	logger, _ := logging.NewLogger("browser")
	return &Manager{
		store:         NewSessionStore(engine, opts.MaxSessions),
		probe:         NewMetadataProbe(),
		analyzer:      DefaultAnalyzerOptions(),
		downloadDir:   opts.DownloadDir,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		log:           logger,
		navigateWaits: raceWaits{download: navigateDownloadWait, settle: navigateSettleWait},
		clickWaits:    raceWaits{download: clickDownloadWait, settle: clickSettleWait},
	}
}

// Close tears down all sessions and the engine.
func (m *Manager) Close() {
	m.store.CloseAll()
}

// Store returns the underlying session store.
func (m *Manager) Store() *SessionStore {
	return m.store
}

// Navigate loads url in the given session and resolves whether the
// navigation settled as a page load or triggered a file download.
func (m *Manager) Navigate(ctx context.Context, sessionID, url string) Result {
	session, err := m.store.GetOrCreate(sessionID)
	if err != nil {
		return failure(err)
	}
	page := session.Page()

	downloadCh := make(chan DownloadInfo, 1)
	handler := downloadObserver(downloadCh, "navigation")

	likely := isLikelyDownloadURL(url)
	waitUntil := playwright.WaitUntilStateDomcontentloaded
	if likely {
		// Don't wait for content on a URL that probably never renders any.
		waitUntil = playwright.WaitUntilStateCommit
	}

	// Observer attaches before the action and detaches after the race on
	// every path, or a download firing in between is lost.
	page.On("download", handler)
	outcome := resolveAction(ctx, raceInput{
		perform: func() error {
			_, gotoErr := page.Goto(url, playwright.PageGotoOptions{WaitUntil: waitUntil})
			return gotoErr
		},
		download:     downloadCh,
		downloadWait: m.navigateWaits.download,
		settleWait:   m.navigateWaits.settle,
		skipSettle:   likely,
	})
	page.RemoveListener("download", handler)

	switch outcome.kind {
	case outcomeFailed:
		m.log.Errorf("navigate error for session %s: %v", sessionID, outcome.err)
		return failure(outcome.err)

	case outcomeDownload:
		info := m.enrich(ctx, *outcome.download)
		if outcome.viaAbort {
			m.log.Infof("navigation aborted due to download: %s", url)
			return Result{
				Success:      true,
				URL:          url,
				Title:        "Direct Download",
				Links:        []Link{},
				DownloadInfo: &info,
				ActionType:   ActionDirectDownload,
				Description:  "Direct download link - file download started successfully.",
			}
		}

		result := Result{
			Success:      true,
			URL:          page.URL(),
			Title:        pageTitle(page),
			DownloadInfo: &info,
			ActionType:   ActionDownload,
			Description:  "Navigation completed with automatic download detected.",
		}
		if likely {
			// The page never loaded anything worth indexing.
			result.ActionType = ActionDirectDownload
			result.Links = []Link{}
			return result
		}
		return m.attachElements(session, result)

	default: // outcomeSettled
		result := Result{
			Success:     true,
			URL:         page.URL(),
			Title:       pageTitle(page),
			ActionType:  ActionNavigation,
			Description: "Navigation completed successfully.",
		}
		return m.attachElements(session, result)
	}
}

// ClickElement clicks the numbered element in the session's current index
// and resolves whether the click navigated, downloaded, or did nothing.
// The session must already exist: a click without a prior navigate fails.
func (m *Manager) ClickElement(ctx context.Context, sessionID string, number int) Result {
	session, err := m.store.Get(sessionID)
	if err != nil {
		return failure(err)
	}

	xpath, err := session.Index().Locator(number)
	if err != nil {
		// Out of range: fail before touching the page at all.
		return failure(err)
	}

	page := session.Page()
	oldURL := page.URL()
	oldTitle := pageTitle(page)

	downloadCh := make(chan DownloadInfo, 1)
	handler := downloadObserver(downloadCh, "click")

	page.On("download", handler)
	outcome := resolveAction(ctx, raceInput{
		perform: func() error {
			return page.Locator("xpath=" + xpath).First().Click()
		},
		download:     downloadCh,
		downloadWait: m.clickWaits.download,
		settleWait:   m.clickWaits.settle,
	})
	page.RemoveListener("download", handler)

	switch outcome.kind {
	case outcomeFailed:
		m.log.Errorf("click error for session %s element %d: %v", sessionID, number, outcome.err)
		return failure(outcome.err)

	case outcomeDownload:
		info := m.enrich(ctx, *outcome.download)
		result := Result{
			Success:      true,
			URL:          page.URL(),
			Title:        pageTitle(page),
			DownloadInfo: &info,
			ActionType:   ActionDownload,
			Description:  "Download triggered successfully. Page remained unchanged but browser detected file download.",
		}
		if outcome.viaAbort {
			result.ActionType = ActionDirectDownload
			result.Links = []Link{}
			return result
		}
		return m.attachElements(session, result)

	default: // outcomeSettled
		newURL := page.URL()
		newTitle := pageTitle(page)

		result := Result{
			Success: true,
			URL:     newURL,
			Title:   newTitle,
		}
		if newURL != oldURL || newTitle != oldTitle {
			result.ActionType = ActionNavigation
			result.Description = "Click triggered page navigation."
		} else {
			result.ActionType = ActionNoChange
			result.Description = "Click completed but no page change or download detected. Element may be inactive or action failed."
		}
		return m.attachElements(session, result)
	}
}

// ForceDownload fetches url into the downloads directory, trying a direct
// HTTP download first and falling back to browser navigation. The filename
// is auto-detected when not supplied.
func (m *Manager) ForceDownload(ctx context.Context, sessionID, url, filename string) Result {
	if err := os.MkdirAll(m.downloadDir, 0750); err != nil {
		return failure(fmt.Errorf("failed to create download directory: %w", err))
	}

	if result, err := m.directDownload(ctx, url, filename); err == nil {
		return result
	} else {
		m.log.Infof("direct download failed: %v, trying browser method", err)
	}

	return m.browserDownload(ctx, sessionID, url, filename)
}

func (m *Manager) directDownload(ctx context.Context, url, filename string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, err
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("download request returned %s", resp.Status)
	}

	if filename == "" {
		filename = resolveFilename(resp.Header, url)
	}

	// Stream straight to disk; the payload may be arbitrarily large.
	path := filepath.Join(m.downloadDir, filename)
	out, err := os.Create(path)
	if err != nil {
		return Result{}, err
	}
	size, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return Result{}, err
	}

	return Result{
		Success: true,
		URL:     url,
		DownloadInfo: &DownloadInfo{
			Filename:    filename,
			URL:         url,
			Status:      "completed",
			Size:        size,
			ContentType: headerContentType(resp.Header),
			Method:      "direct_http",
			Filepath:    path,
		},
		ActionType: ActionDirectDownload,
	}, nil
}

func (m *Manager) browserDownload(ctx context.Context, sessionID, url, filename string) Result {
	if sessionID == "" {
		sessionID = "download_session"
	}
	session, err := m.store.GetOrCreate(sessionID)
	if err != nil {
		return failure(err)
	}

	if filename == "" {
		filename = filenameFromPath(url, "download")
	}

	resp, err := session.Page().Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
	if err != nil || resp == nil {
		m.log.Errorf("all download methods failed for %s: %v", url, err)
		return failure(fmt.Errorf("all download methods failed"))
	}

	body, err := resp.Body()
	if err != nil {
		return failure(fmt.Errorf("all download methods failed: %w", err))
	}

	path := filepath.Join(m.downloadDir, filename)
	if err := os.WriteFile(path, body, 0600); err != nil {
		return failure(err)
	}

	contentType := "unknown"
	if headers, err := resp.AllHeaders(); err == nil {
		if ct, ok := headers["content-type"]; ok && ct != "" {
			contentType = ct
		}
	}

	return Result{
		Success: true,
		URL:     url,
		DownloadInfo: &DownloadInfo{
			Filename:    filename,
			URL:         url,
			Status:      "completed",
			Size:        int64(len(body)),
			ContentType: contentType,
			Method:      "browser_navigation",
			Filepath:    path,
		},
		ActionType: ActionDirectDownload,
	}
}

// downloadObserver builds the page download handler for one action. The
// channel is buffered so the first signal never blocks the event
// dispatcher; later signals within the same action are dropped.
func downloadObserver(ch chan<- DownloadInfo, trigger string) func(playwright.Download) {
	return func(d playwright.Download) {
		info := DownloadInfo{
			Filename: d.SuggestedFilename(),
			URL:      d.URL(),
			Detected: true,
			Status:   "started",
			Trigger:  trigger,
		}
		select {
		case ch <- info:
		default:
		}
	}
}

// enrich fills in size and content type for an observed download via the
// out-of-band metadata probe. Event-reported fields win where present.
func (m *Manager) enrich(ctx context.Context, info DownloadInfo) DownloadInfo {
	meta := m.probe.FileMetadata(ctx, info.URL)
	info.Size = meta.Size
	info.ContentType = meta.ContentType
	info.Method = meta.Method
	if info.Filename == "" {
		info.Filename = meta.Filename
	}
	m.log.Infof("download detected: %s (%d bytes, %s)", info.Filename, info.Size, info.ContentType)
	return info
}

// attachElements re-runs extraction against the post-action page and
// replaces the session's index. An extraction failure becomes the action's
// own failure: the browser step succeeded but result assembly did not.
func (m *Manager) attachElements(session Session, result Result) Result {
	elements, err := extractElements(session.Page(), m.analyzer)
	if err != nil {
		m.log.Errorf("error extracting elements for session %s: %v", session.ID(), err)
		return failure(err)
	}
	session.Index().Replace(elements)
	result.Links = links(elements)
	return result
}

func pageTitle(page playwright.Page) string {
	title, err := page.Title()
	if err != nil {
		return ""
	}
	return title
}

func failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}
