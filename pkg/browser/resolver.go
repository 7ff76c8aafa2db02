package browser

import (
	"context"
	"strings"
	"time"
)

// The outcome resolver races a download signal against navigation settling
// for a single action. The signal travels over a one-shot buffered channel
// filled by the page's download observer, so the happens-before chain is
// explicit: the observer is registered before the action is issued, the
// action is issued before the race wait, and the observer is removed after
// the wait on every exit path.

// outcomeKind is the terminal state of one action resolution.
type outcomeKind int

const (
	// outcomeSettled: the action completed (or the wait elapsed) without a
	// download signal; the page is assumed to hold whatever it loaded.
	outcomeSettled outcomeKind = iota

	// outcomeDownload: the download signal won the race.
	outcomeDownload

	// outcomeFailed: the action raised an error unrelated to downloads.
	outcomeFailed
)

// actionOutcome is what resolveAction hands back to the caller.
type actionOutcome struct {
	kind outcomeKind

	// download is set when kind == outcomeDownload.
	download *DownloadInfo

	// viaAbort marks a download confirmed after an aborted navigation,
	// i.e. direct-download semantics: nothing further should be done with
	// the page.
	viaAbort bool

	// err is set when kind == outcomeFailed.
	err error
}

// raceWaits is the pair of wait budgets applied to one action kind.
type raceWaits struct {
	download time.Duration
	settle   time.Duration
}

// raceInput bundles one action and its resolution policy.
type raceInput struct {
	// perform issues the action (page.goto or locator click). It must be
	// called after the download observer is attached.
	perform func() error

	// download is the one-shot signal filled by the download observer.
	download <-chan DownloadInfo

	// downloadWait bounds the wait for the download signal.
	downloadWait time.Duration

	// settleWait is the fallback settle delay when no signal arrived in
	// downloadWait. The signal is still honored during this window: event
	// evidence takes precedence over the delay.
	settleWait time.Duration

	// skipSettle drops the fallback delay, used for likely-download URLs
	// that were navigated with a lighter wait policy.
	skipSettle bool
}

// isDownloadTriggerError reports whether a navigation error indicates an
// aborted, download-triggered load rather than a genuine failure. This is
// string matching on engine error text; Chromium does not expose a
// structured classification for it.
func isDownloadTriggerError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "net::ERR_ABORTED") ||
		strings.Contains(msg, "Download is starting")
}

// resolveAction runs the action and resolves its outcome within a bounded
// time budget. Timeouts are not errors: expiry without a signal resolves to
// settled. The caller owns observer registration and removal.
func resolveAction(ctx context.Context, in raceInput) actionOutcome {
	if err := in.perform(); err != nil {
		if !isDownloadTriggerError(err) {
			return actionOutcome{kind: outcomeFailed, err: err}
		}
		// Aborted load: give the download signal a bounded chance to
		// confirm. No signal means the abort was a real failure.
		select {
		case d := <-in.download:
			return actionOutcome{kind: outcomeDownload, download: &d, viaAbort: true}
		case <-time.After(in.downloadWait):
			return actionOutcome{kind: outcomeFailed, err: err}
		case <-ctx.Done():
			return actionOutcome{kind: outcomeFailed, err: ctx.Err()}
		}
	}

	select {
	case d := <-in.download:
		return actionOutcome{kind: outcomeDownload, download: &d}
	case <-time.After(in.downloadWait):
	case <-ctx.Done():
		return actionOutcome{kind: outcomeFailed, err: ctx.Err()}
	}

	if in.skipSettle {
		return actionOutcome{kind: outcomeSettled}
	}

	// Settle window. A late signal still wins over the delay.
	select {
	case d := <-in.download:
		return actionOutcome{kind: outcomeDownload, download: &d}
	case <-time.After(in.settleWait):
		return actionOutcome{kind: outcomeSettled}
	case <-ctx.Done():
		return actionOutcome{kind: outcomeFailed, err: ctx.Err()}
	}
}

// isLikelyDownloadURL reports whether the URL's suffix matches the known
// binary/document extension set.
func isLikelyDownloadURL(url string) bool {
	lower := strings.ToLower(url)
	for _, ext := range downloadExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
