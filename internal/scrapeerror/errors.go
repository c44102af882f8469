// Package scrapeerror defines the typed errors surfaced by the scraping and
// reconciliation pipeline. Each category carries enough context to tell a
// changed site apart from a dead network or malformed data.
package scrapeerror

import (
	"fmt"
	"time"
)

// ElementNotFoundError reports that an element could not be located after
// all candidate selectors were exhausted.
type ElementNotFoundError struct {
	Scope    string // page, frame or row the search was rooted in
	Selector string
	Err      error
}

func (e *ElementNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("element %q not found in %s: %v", e.Selector, e.Scope, e.Err)
	}
	return fmt.Sprintf("element %q not found in %s", e.Selector, e.Scope)
}

func (e *ElementNotFoundError) Unwrap() error {
	return e.Err
}

// ActionTimeoutError reports a click, wait or navigation that did not
// complete within its bounded timeout.
type ActionTimeoutError struct {
	Action  string // e.g. "wait for table", "login submit", "await response"
	Target  string
	Timeout time.Duration
	Err     error
}

func (e *ActionTimeoutError) Error() string {
	return fmt.Sprintf("%s on %q timed out after %s", e.Action, e.Target, e.Timeout)
}

func (e *ActionTimeoutError) Unwrap() error {
	return e.Err
}

// ResponseStatusError reports an intercepted response with a non-success
// status code.
type ResponseStatusError struct {
	URL    string
	Status int
}

func (e *ResponseStatusError) Error() string {
	return fmt.Sprintf("unexpected response status %d from %s", e.Status, e.URL)
}

// TableNotFoundError reports that the charges table was absent from an
// otherwise successful response body.
type TableNotFoundError struct {
	TableID string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("charges table %q not found in response body", e.TableID)
}

// MissingKeyError reports a header without the authorization-number column.
// Reconciliation cannot proceed without a stable business key.
type MissingKeyError struct {
	Column string
	Source string // "extracted header" or the master file path
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("reconciliation key column %q not found in %s", e.Column, e.Source)
}

// DateParseError reports a row whose first field is not a DD/MM/YYYY date.
// Ordering is all-or-nothing, so one bad row fails the whole merge.
type DateParseError struct {
	Value string
	Key   string // authorization number of the offending row, if known
	Err   error
}

func (e *DateParseError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("row %s: cannot parse date %q: %v", e.Key, e.Value, e.Err)
	}
	return fmt.Sprintf("cannot parse date %q: %v", e.Value, e.Err)
}

func (e *DateParseError) Unwrap() error {
	return e.Err
}

// CollaboratorError reports an external collaborator (the institution-map
// provider) that could not supply usable data.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("collaborator %s unavailable: %v", e.Collaborator, e.Err)
	}
	return fmt.Sprintf("collaborator %s unavailable", e.Collaborator)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
