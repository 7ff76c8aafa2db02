package browser

import (
	"github.com/playwright-community/playwright-go"

	"github.com/demon2036/browser-mcp/pkg/logging"
)

// Session is one isolated browsing context with a single page, owned
// exclusively by the SessionStore until evicted or closed.
//
// A session's page must not be mutated by two operations at once; callers
// are expected to serialize navigate/click calls per session id. The store
// only guards its own bookkeeping, so a slow page load on one session never
// blocks another session's lookup.
type Session interface {
	// ID returns the caller-supplied session identifier.
	ID() string

	// Page returns the session's page.
	Page() playwright.Page

	// Index returns the session's element index. The index is replaced
	// wholesale after every navigation and click.
	Index() *ElementIndex

	// Close releases the page and its context together. Close errors are
	// logged and swallowed: they may legitimately race with engine-level
	// crashes and must never fail an unrelated caller.
	Close()
}

type pageSession struct {
	id      string
	context playwright.BrowserContext
	page    playwright.Page
	index   *ElementIndex
	log     *logging.Logger
}

func (s *pageSession) ID() string { return s.id }

func (s *pageSession) Page() playwright.Page { return s.page }

func (s *pageSession) Index() *ElementIndex { return s.index }

func (s *pageSession) Close() {
	if err := s.page.Close(); err != nil {
		s.log.Warnf("error closing page for session %q: %v", s.id, err)
	}
	if err := s.context.Close(); err != nil {
		s.log.Warnf("error closing context for session %q: %v", s.id, err)
	}
}
