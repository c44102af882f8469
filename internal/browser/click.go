package browser

import (
	"fmt"
	"strings"
	"time"

	"github.com/arieldaniely/AutoPagi/internal/logging"
	"github.com/arieldaniely/AutoPagi/internal/scrapeerror"

	"github.com/playwright-community/playwright-go"
)

// RowClick describes a "find row, click target within it" action against
// the charges table.
type RowClick struct {
	// TableSelector locates the table inside the frame.
	TableSelector string
	// RowText selects the first row whose rendered text contains it.
	RowText string
	// TargetSelector locates the click target within the row; empty or
	// "row" clicks the row itself.
	TargetSelector string
	// FallbackAnchors is the tag/class heuristic for the strategy-3
	// in-page anchor search.
	FallbackAnchors string
	// TimeoutMs bounds each visibility wait.
	TimeoutMs float64
	// ClickTimeoutMs bounds the strategy-1 forceful click.
	ClickTimeoutMs float64
	// SettleMs is the pause before the first click attempt, giving the
	// site's listeners time to attach.
	SettleMs float64
}

// clickTarget is the slice of playwright.Locator the click strategies
// need; tests substitute a fake.
type clickTarget interface {
	Click(options ...playwright.LocatorClickOptions) error
	DispatchEvent(typ string, eventInit interface{}, options ...playwright.LocatorDispatchEventOptions) error
}

// frameEvaluator runs a script in the frame, for the strategy-3 fallback.
type frameEvaluator interface {
	Evaluate(expression string, arg interface{}, options ...playwright.LocatorEvaluateOptions) (interface{}, error)
}

// ClickRowByText locates the first row of the table containing RowText and
// causes a click to register on the target element, escalating through the
// three click strategies. Success is implied by a nil error; the click's
// navigation or network side effects are the caller's to await.
func (s *Session) ClickRowByText(frame playwright.FrameLocator, spec RowClick) error {
	table := frame.Locator(spec.TableSelector)
	if err := s.WaitVisible(table, spec.TimeoutMs, "wait for table", spec.TableSelector); err != nil {
		return err
	}

	s.log.Info("searching for row", logging.F("row_text", spec.RowText))
	row := table.Locator("tr", playwright.LocatorLocatorOptions{HasText: spec.RowText}).First()
	if err := s.WaitVisible(row, spec.TimeoutMs, "wait for row", spec.RowText); err != nil {
		return err
	}

	target := row
	if spec.TargetSelector != "" && spec.TargetSelector != "row" {
		target = row.Locator(spec.TargetSelector).First()
	}
	if err := s.WaitVisible(target, spec.TimeoutMs, "wait for click target", spec.TargetSelector); err != nil {
		return err
	}

	// Give the site's client-side listeners time to attach before the
	// first attempt; clicking earlier registers visually but does nothing.
	s.Settle(spec.SettleMs)
	if err := target.ScrollIntoViewIfNeeded(); err != nil {
		s.log.WithError(err).Warn("scroll into view failed, clicking anyway")
	}

	return escalateClick(target, frame.Locator("body"), spec, s.Settle, s.log)
}

// escalateClick runs the three click strategies in order, stopping at the
// first success. The site's UI framework sometimes registers a visual
// click without dispatching the event its own handlers listen for, hence
// the escalation.
func escalateClick(target clickTarget, frameBody frameEvaluator, spec RowClick, settle func(float64), log logging.Logger) error {
	// Strategy 1: forceful click that bypasses overlay hit-testing.
	err := target.Click(playwright.LocatorClickOptions{
		Force:   playwright.Bool(true),
		Delay:   playwright.Float(50),
		Timeout: playwright.Float(spec.ClickTimeoutMs),
	})
	if err == nil {
		log.Debug("click registered", logging.F(logging.FieldStrategy, "force"))
		return nil
	}
	log.WithError(err).Warn("forceful click failed, dispatching click event",
		logging.F(logging.FieldStrategy, "force"))

	// Strategy 2: dispatch a native click event directly on the element,
	// skipping positional hit-testing entirely.
	dispatchErr := target.DispatchEvent("click", nil)
	if dispatchErr == nil {
		settle(500)
		log.Debug("click registered", logging.F(logging.FieldStrategy, "dispatch"))
		return nil
	}
	log.WithError(dispatchErr).Warn("dispatched click failed, invoking in-page fallback",
		logging.F(logging.FieldStrategy, "dispatch"))

	// Strategy 3: search the frame for an anchor matching the row text and
	// invoke its click handler from page context, the way the site's own
	// scripts do.
	return fallbackAnchorClick(frameBody, spec.RowText, spec.FallbackAnchors, log)
}

// fallbackAnchorClick runs the strategy-3 in-page search.
func fallbackAnchorClick(frameBody frameEvaluator, rowText, anchors string, log logging.Logger) error {
	expression := fmt.Sprintf(
		`text => {
			const anchors = Array.from(document.querySelectorAll(%q));
			const match = anchors.find(a => a.textContent.includes(text));
			if (!match) { return false; }
			match.click();
			return true;
		}`, anchors)

	result, err := frameBody.Evaluate(expression, rowText)
	if err != nil {
		return &scrapeerror.ElementNotFoundError{
			Scope:    "charges frame",
			Selector: anchors,
			Err:      fmt.Errorf("fallback click evaluation failed: %w", err),
		}
	}
	if clicked, ok := result.(bool); !ok || !clicked {
		return &scrapeerror.ElementNotFoundError{
			Scope:    "charges frame",
			Selector: fmt.Sprintf("%s with text %q", anchors, rowText),
		}
	}
	log.Debug("click registered", logging.F(logging.FieldStrategy, "fallback-anchor"))
	return nil
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// ProbeFirst clicks the first selector from candidates that becomes
// visible within perCandidateMs. It returns the selector that was clicked,
// or an ElementNotFoundError naming the whole candidate list.
func (s *Session) ProbeFirst(candidates []string, perCandidateMs float64, scope string) (string, error) {
	for _, selector := range candidates {
		loc := s.page.Locator(selector).First()
		if err := loc.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(perCandidateMs),
		}); err != nil {
			s.log.Debug("candidate not visible", logging.F(logging.FieldSelector, selector))
			continue
		}
		if err := loc.Click(); err != nil {
			s.log.WithError(err).Debug("candidate click failed", logging.F(logging.FieldSelector, selector))
			continue
		}
		s.log.Info("clicked candidate", logging.F(logging.FieldSelector, selector))
		return selector, nil
	}
	return "", &scrapeerror.ElementNotFoundError{
		Scope:    scope,
		Selector: strings.Join(candidates, ", "),
	}
}
