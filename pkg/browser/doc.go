// Package browser manages a bounded pool of long-lived browser sessions and
// resolves the outcome of actions performed inside them.
//
// The package is built around four core pieces:
//
//  1. Engine: the single shared Chromium process, started lazily and
//     stopped exactly once
//  2. SessionStore: a capacity-bounded LRU registry mapping session ids to
//     isolated context+page pairs
//  3. ElementIndex: a per-session numbering of the page's interactive
//     elements, rebuilt after every navigation and click
//  4. The outcome resolver: the race that decides whether an action settled
//     as a page load, triggered a file download, or changed nothing
//
// # Session lifecycle
//
// Sessions are created on first reference to an id and refreshed to
// most-recently-used on every navigate or click. When the store is at
// capacity, admitting a new session first evicts the least-recently-touched
// one and closes its context and page. Losing the process loses all
// sessions; nothing is persisted.
//
// # Outcome resolution
//
// Both navigate and click follow the same protocol: register a download
// observer, perform the action, race the download signal against a bounded
// settle wait, then remove the observer. A download event always beats URL
// heuristics and settle timers. Timeouts are not errors; they resolve to a
// best-effort "the page loaded something" outcome.
//
// # Example usage
//
//	engine := browser.NewEngine(browser.EngineOptions{Headless: true})
//	manager := browser.NewManager(engine, browser.ManagerOptions{MaxSessions: 16})
//	defer manager.Close()
//
//	result := manager.Navigate(ctx, "session-1", "https://example.com")
//	if result.Success && len(result.Links) > 0 {
//	    result = manager.ClickElement(ctx, "session-1", 1)
//	}
package browser
