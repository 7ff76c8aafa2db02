package browser

import "time"

// ActionType classifies the observable outcome of a navigate or click action.
type ActionType string

const (
	// ActionNavigation indicates the action settled as a normal page change.
	ActionNavigation ActionType = "navigation"

	// ActionDownload indicates a click triggered a file download while the
	// page itself stayed put.
	ActionDownload ActionType = "download"

	// ActionDirectDownload indicates navigating to the URL started a file
	// download instead of loading a page.
	ActionDirectDownload ActionType = "direct_download"

	// ActionNoChange indicates the action completed without any observable
	// URL/title change or download.
	ActionNoChange ActionType = "no_change"
)

// Result is the structured outcome returned by every public browser
// operation. Engine and network errors are converted into Success=false
// results at the operation boundary rather than propagated as raw errors.
type Result struct {
	Success      bool          `json:"success"`
	URL          string        `json:"url,omitempty"`
	Title        string        `json:"title,omitempty"`
	Links        []Link        `json:"links,omitempty"`
	DownloadInfo *DownloadInfo `json:"download_info,omitempty"`
	ActionType   ActionType    `json:"action_type,omitempty"`
	Description  string        `json:"description,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Link is a numbered interactive element presented to the caller. The number
// is only valid until the next navigation or click on the same session.
type Link struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// DownloadInfo describes a file download, either observed via a browser
// download event or probed out-of-band. It is created per action and never
// persisted.
type DownloadInfo struct {
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	Detected    bool   `json:"detected,omitempty"`
	Status      string `json:"status"`
	Trigger     string `json:"trigger,omitempty"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Method      string `json:"method,omitempty"`
	Filepath    string `json:"filepath,omitempty"`
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// EngineOptions configures the shared Chromium process.
type EngineOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Args are extra Chromium launch arguments
	Args []string

	// Viewport sets the viewport for every new session context
	Viewport Viewport
}

// Default values for sessions and outcome resolution.
const (
	DefaultMaxSessions    = 16
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080

	// navigateDownloadWait bounds how long a navigation waits for a download
	// signal before treating the page as settled.
	navigateDownloadWait = 2 * time.Second

	// navigateSettleWait is the fallback settle delay after a navigation
	// when no download signal arrived.
	navigateSettleWait = 2 * time.Second

	// clickDownloadWait and clickSettleWait are the click-action equivalents.
	clickDownloadWait = 3 * time.Second
	clickSettleWait   = 3 * time.Second
)

// downloadExtensions is the suffix set that marks a URL as a likely direct
// download. Navigations to these URLs use a lighter wait policy and treat
// aborted loads as expected.
var downloadExtensions = []string{
	".dmg", ".exe", ".zip", ".pdf", ".doc", ".docx",
	".xls", ".xlsx", ".ppt", ".pptx", ".rar", ".7z",
	".tar", ".gz", ".iso", ".msi", ".deb", ".rpm",
}
