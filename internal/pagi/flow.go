// Package pagi sequences the site session: login, post-login confirmation
// and the frame-scoped transitions to the previous-month transactions
// table. Every wait is bounded and every failure carries a distinct reason,
// so "site unreachable" never looks like "UI shape changed".
package pagi

import (
	"errors"
	"fmt"
	"time"

	"github.com/arieldaniely/AutoPagi/internal/browser"
	"github.com/arieldaniely/AutoPagi/internal/logging"
	"github.com/arieldaniely/AutoPagi/internal/retry"
	"github.com/arieldaniely/AutoPagi/internal/scrapeerror"
	"github.com/arieldaniely/AutoPagi/internal/sitemap"

	"github.com/playwright-community/playwright-go"
)

// State names one step of the session sequence.
type State string

const (
	StateUnauthenticated       State = "unauthenticated"
	StateLoginFormVisible      State = "login_form_visible"
	StateAuthenticated         State = "authenticated"
	StateOnSummaryPage         State = "on_summary_page"
	StateOnTransactionsPage    State = "on_transactions_page"
	StatePreviousMonthSelected State = "previous_month_selected"
	StateFailed                State = "failed"
)

// Distinct failure reasons, matchable with errors.Is through the typed
// errors they are wrapped with.
var (
	ErrLoginTriggerNotFound = errors.New("login trigger not found")
	ErrLoginFormNotFound    = errors.New("login form not found")
	ErrLoginSubmitFailed    = errors.New("login submit failed")
	ErrPostLoginTimeout     = errors.New("post-login navigation timed out")
)

// Config carries the URLs, selectors and bounds of one session flow.
type Config struct {
	EntryURL          string
	SummaryURLPattern string
	TransactionsURL   string
	FrameSelector     string
	TabBarSelector    string
	TableSelector     string
	PreviousMonthTab  string

	NavigationTimeoutMs float64
	ElementTimeoutMs    float64
	// TriggerTimeoutMs bounds each login-trigger candidate probe.
	TriggerTimeoutMs float64
	// FormTimeoutMs bounds each login-form candidate probe.
	FormTimeoutMs float64
	ClickTimeoutMs float64
	// EntrySettleMs pauses after the entry page loads.
	EntrySettleMs float64
	// PageSettleMs pauses after SPA navigation for script initialization.
	PageSettleMs float64

	LoginAttempts int
	LoginPauseMs  float64
}

// Flow drives the session through its states.
type Flow struct {
	session *browser.Session
	profile sitemap.Profile
	cfg     Config
	state   State
	log     logging.Logger
}

// NewFlow creates a flow in the unauthenticated state.
func NewFlow(session *browser.Session, profile sitemap.Profile, cfg Config, log logging.Logger) *Flow {
	return &Flow{
		session: session,
		profile: profile,
		cfg:     cfg,
		state:   StateUnauthenticated,
		log:     log,
	}
}

// State returns the flow's current state.
func (f *Flow) State() State {
	return f.state
}

func (f *Flow) transition(next State) {
	f.log.Info("session state changed",
		logging.F("from", string(f.state)),
		logging.F("to", string(next)))
	f.state = next
}

func (f *Flow) fail(err error) error {
	f.state = StateFailed
	return err
}

// OpenLoginForm navigates to the entry URL and probes the ordered trigger
// candidates until the login container renders.
func (f *Flow) OpenLoginForm() error {
	if err := f.session.Navigate(f.cfg.EntryURL, playwright.WaitUntilStateLoad, f.cfg.NavigationTimeoutMs); err != nil {
		return f.fail(err)
	}
	f.session.Settle(f.cfg.EntrySettleMs)

	if _, err := f.session.ProbeFirst(f.profile.LoginTriggers, f.cfg.TriggerTimeoutMs, "entry page"); err != nil {
		return f.fail(fmt.Errorf("%w: %w", ErrLoginTriggerNotFound, err))
	}

	page := f.session.Page()
	formVisible := false
	for _, selector := range f.profile.LoginForms {
		err := page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(f.cfg.FormTimeoutMs),
		})
		if err == nil {
			f.log.Info("login form visible", logging.F(logging.FieldSelector, selector))
			formVisible = true
			break
		}
		f.log.Debug("login form candidate not visible", logging.F(logging.FieldSelector, selector))
	}
	if !formVisible {
		return f.fail(fmt.Errorf("%w: %w", ErrLoginFormNotFound, &scrapeerror.ElementNotFoundError{
			Scope:    "entry page after trigger click",
			Selector: fmt.Sprintf("%v", f.profile.LoginForms),
		}))
	}

	f.transition(StateLoginFormVisible)
	return nil
}

// Login fills the credentials and submits through the bounded retry loop.
// The submit button enables itself only after the site's validation
// scripts run, so a disabled button is a retry, not a failure.
func (f *Flow) Login(username, password string) error {
	page := f.session.Page()

	if err := page.Locator(f.profile.UsernameField).Fill(username); err != nil {
		return f.fail(fmt.Errorf("filling username: %w", err))
	}
	if err := page.Locator(f.profile.PasswordField).Fill(password); err != nil {
		return f.fail(fmt.Errorf("filling password: %w", err))
	}

	submit := func(attempt int) error {
		button := page.Locator(f.profile.SubmitButton)
		if err := button.WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(f.cfg.ClickTimeoutMs),
		}); err != nil {
			return fmt.Errorf("submit button not visible: %w", err)
		}

		enabled, err := button.IsEnabled()
		if err != nil {
			return fmt.Errorf("checking submit button state: %w", err)
		}
		if !enabled {
			return errors.New("submit button disabled")
		}

		// Hovering forces layout and actionability to stabilize before
		// the click.
		if err := button.Hover(); err != nil {
			return fmt.Errorf("hovering submit button: %w", err)
		}
		return button.Click(playwright.LocatorClickOptions{
			Timeout: playwright.Float(f.cfg.ClickTimeoutMs),
		})
	}

	err := retry.Do(retry.Config{
		Attempts: f.cfg.LoginAttempts,
		Pause:    msToDuration(f.cfg.LoginPauseMs),
	}, f.log, "login submit", submit)
	if err != nil {
		return f.fail(fmt.Errorf("%w: %w", ErrLoginSubmitFailed, err))
	}

	f.transition(StateAuthenticated)
	return nil
}

// WaitForSummary confirms the post-login navigation by URL pattern.
func (f *Flow) WaitForSummary() error {
	err := f.session.Page().WaitForURL(f.cfg.SummaryURLPattern, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(f.cfg.NavigationTimeoutMs),
	})
	if err != nil {
		return f.fail(fmt.Errorf("%w: %w", ErrPostLoginTimeout, &scrapeerror.ActionTimeoutError{
			Action:  "wait for summary page",
			Target:  f.cfg.SummaryURLPattern,
			Timeout: msToDuration(f.cfg.NavigationTimeoutMs),
			Err:     err,
		}))
	}
	f.transition(StateOnSummaryPage)
	return nil
}

// OpenTransactions navigates directly to the transactions page and waits
// for the tab bar inside the legacy iframe. SPA navigation needs only
// domcontentloaded plus a settle pause; waiting for a full load signal
// here times out on slow asset fetches the flow never uses.
func (f *Flow) OpenTransactions() (playwright.FrameLocator, error) {
	if err := f.session.Navigate(f.cfg.TransactionsURL, playwright.WaitUntilStateDomcontentloaded, f.cfg.NavigationTimeoutMs); err != nil {
		return nil, f.fail(err)
	}
	f.session.Settle(f.cfg.PageSettleMs)

	frame := f.session.Frame(f.cfg.FrameSelector)
	if err := f.session.WaitVisible(frame.Locator(f.cfg.TabBarSelector), f.cfg.ElementTimeoutMs,
		"wait for transactions tabs", f.cfg.TabBarSelector); err != nil {
		return nil, f.fail(err)
	}

	f.transition(StateOnTransactionsPage)
	return frame, nil
}

// SelectPreviousMonth invokes the page's own tab-switch function inside
// the iframe and waits for the previous-month table to render. The iframe
// reloads on the switch; the frame locator re-resolves across it.
func (f *Flow) SelectPreviousMonth(frame playwright.FrameLocator) error {
	script := fmt.Sprintf("() => submitTab('%s')", f.cfg.PreviousMonthTab)
	if _, err := frame.Locator("body").Evaluate(script, nil); err != nil {
		return f.fail(fmt.Errorf("invoking tab switch: %w", err))
	}

	if err := f.session.WaitVisible(frame.Locator(f.cfg.TableSelector), f.cfg.ElementTimeoutMs,
		"wait for previous-month table", f.cfg.TableSelector); err != nil {
		return f.fail(err)
	}

	f.transition(StatePreviousMonthSelected)
	return nil
}

// Run drives the whole sequence and returns the transactions frame with
// the previous-month table visible.
func (f *Flow) Run(username, password string) (playwright.FrameLocator, error) {
	if err := f.OpenLoginForm(); err != nil {
		return nil, err
	}
	if err := f.Login(username, password); err != nil {
		return nil, err
	}
	if err := f.WaitForSummary(); err != nil {
		return nil, err
	}
	frame, err := f.OpenTransactions()
	if err != nil {
		return nil, err
	}
	if err := f.SelectPreviousMonth(frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
