package scrapeerror

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestElementNotFoundError(t *testing.T) {
	inner := errors.New("timeout 3000ms exceeded")
	err := &ElementNotFoundError{Scope: "login frame", Selector: "#continueBtn", Err: inner}

	assert.Contains(t, err.Error(), "#continueBtn")
	assert.Contains(t, err.Error(), "login frame")
	assert.ErrorIs(t, err, inner)

	bare := &ElementNotFoundError{Scope: "page", Selector: "a.login-trigger"}
	assert.Contains(t, bare.Error(), "a.login-trigger")
	assert.Nil(t, bare.Unwrap())
}

func TestActionTimeoutError(t *testing.T) {
	err := &ActionTimeoutError{
		Action:  "wait for table",
		Target:  "#dataTable077",
		Timeout: 30 * time.Second,
	}
	assert.Contains(t, err.Error(), "#dataTable077")
	assert.Contains(t, err.Error(), "30s")

	wrapped := fmt.Errorf("pipeline failed: %w", err)
	var target *ActionTimeoutError
	assert.ErrorAs(t, wrapped, &target)
	assert.Equal(t, "wait for table", target.Action)
}

func TestResponseStatusError(t *testing.T) {
	err := &ResponseStatusError{URL: "https://example.test/servlet", Status: 502}
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "example.test")
}

func TestMissingKeyError(t *testing.T) {
	err := &MissingKeyError{Column: "מספר הרשאה", Source: "extracted header"}
	assert.Contains(t, err.Error(), "מספר הרשאה")
	assert.Contains(t, err.Error(), "extracted header")
}

func TestDateParseError(t *testing.T) {
	inner := errors.New("cannot parse")
	err := &DateParseError{Value: "31/31/2024", Key: "A100", Err: inner}
	assert.Contains(t, err.Error(), "A100")
	assert.Contains(t, err.Error(), "31/31/2024")
	assert.ErrorIs(t, err, inner)
}

func TestCollaboratorError(t *testing.T) {
	inner := errors.New("googleapi: 403")
	err := &CollaboratorError{Collaborator: "institution map", Err: inner}
	assert.Contains(t, err.Error(), "institution map")
	assert.ErrorIs(t, err, inner)
}
