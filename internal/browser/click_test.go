package browser

import (
	"errors"
	"testing"

	"github.com/arieldaniely/AutoPagi/internal/logging"
	"github.com/arieldaniely/AutoPagi/internal/scrapeerror"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	calls       []string
	clickErr    error
	dispatchErr error
}

func (f *fakeTarget) Click(options ...playwright.LocatorClickOptions) error {
	f.calls = append(f.calls, "click")
	return f.clickErr
}

func (f *fakeTarget) DispatchEvent(typ string, eventInit interface{}, options ...playwright.LocatorDispatchEventOptions) error {
	f.calls = append(f.calls, "dispatch:"+typ)
	return f.dispatchErr
}

type fakeEvaluator struct {
	called bool
	text   string
	result interface{}
	err    error
}

func (f *fakeEvaluator) Evaluate(expression string, arg interface{}, options ...playwright.LocatorEvaluateOptions) (interface{}, error) {
	f.called = true
	if s, ok := arg.(string); ok {
		f.text = s
	}
	return f.result, f.err
}

func testSpec() RowClick {
	return RowClick{
		TableSelector:   "#dataTable077",
		RowText:         "חברת החשמל לישר",
		FallbackAnchors: "a.PW, a:not([class])",
		TimeoutMs:       30000,
		ClickTimeoutMs:  3000,
		SettleMs:        1200,
	}
}

func noSettle(float64) {}

func TestEscalateClickForcefulSucceeds(t *testing.T) {
	target := &fakeTarget{}
	evaluator := &fakeEvaluator{}
	log := logging.NewMockLogger()

	err := escalateClick(target, evaluator, testSpec(), noSettle, log)
	require.NoError(t, err)
	assert.Equal(t, []string{"click"}, target.calls)
	assert.False(t, evaluator.called, "fallback must not run when strategy 1 succeeds")
}

func TestEscalateClickDispatchSucceeds(t *testing.T) {
	target := &fakeTarget{clickErr: errors.New("timeout 3000ms exceeded")}
	evaluator := &fakeEvaluator{}
	log := logging.NewMockLogger()

	err := escalateClick(target, evaluator, testSpec(), noSettle, log)
	require.NoError(t, err)
	assert.Equal(t, []string{"click", "dispatch:click"}, target.calls)
	assert.False(t, evaluator.called)
	assert.Len(t, log.EntriesByLevel("WARN"), 1)
}

func TestEscalateClickFallbackAfterBothFail(t *testing.T) {
	// Strategies 1 and 2 fail, strategy 3 succeeds: both must have been
	// attempted, in order, and the overall result is success.
	target := &fakeTarget{
		clickErr:    errors.New("timeout 3000ms exceeded"),
		dispatchErr: errors.New("element detached"),
	}
	evaluator := &fakeEvaluator{result: true}
	log := logging.NewMockLogger()

	err := escalateClick(target, evaluator, testSpec(), noSettle, log)
	require.NoError(t, err)
	assert.Equal(t, []string{"click", "dispatch:click"}, target.calls)
	assert.True(t, evaluator.called)
	assert.Equal(t, "חברת החשמל לישר", evaluator.text)
	assert.Len(t, log.EntriesByLevel("WARN"), 2)
}

func TestEscalateClickAllStrategiesExhausted(t *testing.T) {
	target := &fakeTarget{
		clickErr:    errors.New("timeout"),
		dispatchErr: errors.New("detached"),
	}
	evaluator := &fakeEvaluator{result: false}

	err := escalateClick(target, evaluator, testSpec(), noSettle, logging.NewMockLogger())
	require.Error(t, err)

	var notFound *scrapeerror.ElementNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestFallbackAnchorClickEvaluationError(t *testing.T) {
	evaluator := &fakeEvaluator{err: errors.New("execution context destroyed")}

	err := fallbackAnchorClick(evaluator, "some text", "a.PW", logging.NewMockLogger())
	require.Error(t, err)

	var notFound *scrapeerror.ElementNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, notFound.Error(), "a.PW")
}

func TestFallbackAnchorClickNonBoolResult(t *testing.T) {
	evaluator := &fakeEvaluator{result: "unexpected"}

	err := fallbackAnchorClick(evaluator, "text", "a.PW", logging.NewMockLogger())
	assert.Error(t, err)
}
