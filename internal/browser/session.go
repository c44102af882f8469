// Package browser wraps the Playwright session driving the Pagi site: one
// browser, one context, one page, with release guaranteed on every exit
// path, plus the hybrid click primitive that survives the site's habit of
// swallowing ordinary click events.
package browser

import (
	"errors"
	"fmt"
	"io"

	"github.com/arieldaniely/AutoPagi/internal/logging"
	"github.com/arieldaniely/AutoPagi/internal/scrapeerror"

	"github.com/playwright-community/playwright-go"
)

// Options configures the browser session.
type Options struct {
	Headless bool
	// DefaultTimeoutMs applies to operations without an explicit timeout.
	DefaultTimeoutMs float64
}

// Session owns the Playwright resources for one run.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	log     logging.Logger
}

// Start installs the driver if needed, launches Chromium and opens the
// single page the run drives. Any partial failure releases what was
// already acquired before returning.
func Start(opts Options, log logging.Logger) (*Session, error) {
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if opts.DefaultTimeoutMs > 0 {
		page.SetDefaultTimeout(opts.DefaultTimeoutMs)
	}

	log.Info("browser session started", logging.F("headless", opts.Headless))
	return &Session{pw: pw, browser: browser, context: context, page: page, log: log}, nil
}

// Page exposes the session's single page.
func (s *Session) Page() playwright.Page {
	return s.page
}

// Frame returns a frame-scoped locator root. Frame locators re-resolve
// across iframe reloads, which the transactions iframe does on every tab
// switch.
func (s *Session) Frame(selector string) playwright.FrameLocator {
	return s.page.FrameLocator(selector)
}

// Navigate opens url and waits for the given readiness state.
func (s *Session) Navigate(url string, waitUntil *playwright.WaitUntilState, timeoutMs float64) error {
	opts := playwright.PageGotoOptions{WaitUntil: waitUntil}
	if timeoutMs > 0 {
		opts.Timeout = playwright.Float(timeoutMs)
	}
	if _, err := s.page.Goto(url, opts); err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return &scrapeerror.ActionTimeoutError{
				Action:  "navigation",
				Target:  url,
				Timeout: msToDuration(timeoutMs),
				Err:     err,
			}
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	s.log.Info("navigated", logging.F(logging.FieldURL, url))
	return nil
}

// Settle blocks for the given number of milliseconds. The site attaches
// its own listeners asynchronously after load, so some steps need a fixed
// pause before interaction is reliable.
func (s *Session) Settle(ms float64) {
	if ms > 0 {
		s.page.WaitForTimeout(ms)
	}
}

// WaitVisible waits for loc to become visible, mapping a timeout to the
// typed error naming what was being waited for.
func (s *Session) WaitVisible(loc playwright.Locator, timeoutMs float64, action, target string) error {
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(timeoutMs),
	})
	if err != nil {
		return &scrapeerror.ActionTimeoutError{
			Action:  action,
			Target:  target,
			Timeout: msToDuration(timeoutMs),
			Err:     err,
		}
	}
	return nil
}

// Close releases the page, context, browser and driver. Safe to call after
// a partially failed run; errors are collected rather than masking each
// other.
func (s *Session) Close() error {
	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing session: %v", errs)
	}
	s.log.Info("browser session closed")
	return nil
}
