package browser

import (
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/demon2036/browser-mcp/pkg/logging"
)

// Engine owns the shared browser process and mints isolated sessions from
// it. It exists as an interface so the session store can be exercised
// without a real Chromium behind it.
type Engine interface {
	// NewSession creates an isolated context+page pair bound to id.
	NewSession(id string) (Session, error)

	// Close tears down the browser process. Safe to call more than once
	// and safe to call if the engine was never started.
	Close() error
}

// PlaywrightEngine is the production Engine. It launches the Playwright
// driver and a single Chromium process lazily, on the first session
// request, and stops both exactly once at shutdown.
type PlaywrightEngine struct {
	mu      sync.Mutex
	opts    EngineOptions
	pw      *playwright.Playwright
	browser playwright.Browser
	stopped bool
	log     *logging.Logger
}

// NewEngine creates an engine with the given launch configuration. The
// browser process is not started until the first session is requested.
func NewEngine(opts EngineOptions) *PlaywrightEngine {
	if opts.Viewport.Width == 0 || opts.Viewport.Height == 0 {
		opts.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if opts.Args == nil {
		opts.Args = []string{"--no-sandbox", "--disable-setuid-sandbox"}
	}
	logger, _ := logging.NewLogger("engine")
	return &PlaywrightEngine{
		opts: opts,
		log:  logger,
	}
}

// start launches the driver and browser. Callers must hold e.mu.
func (e *PlaywrightEngine) start() error {
	if e.browser != nil {
		return nil
	}
	if e.stopped {
		return fmt.Errorf("engine already closed")
	}

	// Keep driver output away from stdout, which carries the MCP stream.
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  e.log.Writer(),
		Stderr:  e.log.Writer(),
	}

	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(e.opts.Headless),
		Args:     e.opts.Args,
	})
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	e.pw = pw
	e.browser = browser
	e.log.Infof("browser engine started (headless=%v)", e.opts.Headless)
	return nil
}

// NewSession creates a fresh browsing context and page for id, starting the
// engine first if needed.
func (e *PlaywrightEngine) NewSession(id string) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.start(); err != nil {
		return nil, err
	}

	context, err := e.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  e.opts.Viewport.Width,
			Height: e.opts.Viewport.Height,
		},
		AcceptDownloads: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &pageSession{
		id:      id,
		context: context,
		page:    page,
		index:   newElementIndex(),
		log:     e.log,
	}, nil
}

// Close stops the browser and the Playwright driver. Errors are returned
// but the engine is considered stopped regardless; a second Close is a
// no-op.
func (e *PlaywrightEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return nil
	}
	e.stopped = true

	var errs []error
	if e.browser != nil {
		if err := e.browser.Close(); err != nil {
			errs = append(errs, err)
		}
		e.browser = nil
	}
	if e.pw != nil {
		if err := e.pw.Stop(); err != nil {
			errs = append(errs, err)
		}
		e.pw = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %v", errs)
	}
	e.log.Infof("browser engine stopped")
	return nil
}
