package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReporter struct {
	enabled  bool
	reported []*EnhancedError
}

func (r *stubReporter) ReportError(ee *EnhancedError) { r.reported = append(r.reported, ee) }
func (r *stubReporter) IsEnabled() bool               { return r.enabled }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)
	ClearErrorHooks()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestBuilderKeepsExplicitFields(t *testing.T) {
	ee := Newf("record %d missing", 42).
		Component("record").
		Category(CategoryNotFound).
		Context("record_id", int64(42)).
		Build()

	assert.Equal(t, "record", ee.GetComponent())
	assert.True(t, IsNotFound(ee))
	assert.Equal(t, int64(42), ee.GetContext()["record_id"])
}

func TestUnavailableIsDetectable(t *testing.T) {
	err := Unavailable("trackerapi", "detail")

	assert.True(t, IsUnavailable(err))
	assert.True(t, IsCategory(err, CategoryConfiguration))
	assert.False(t, IsPrecondition(err))

	wrapped := fmt.Errorf("open record: %w", err)
	assert.True(t, IsUnavailable(wrapped))
}

func TestPreconditionError(t *testing.T) {
	err := PreconditionError("note required")
	assert.True(t, IsPrecondition(err))
	assert.Equal(t, "note required", err.Error())
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"canceled", fmt.Errorf("request: context canceled"), CategoryCancellation},
		{"deadline", fmt.Errorf("context deadline exceeded"), CategoryTimeout},
		{"dial", fmt.Errorf("dial tcp 10.0.0.1:443: connection refused"), CategoryNetwork},
		{"unavailable", fmt.Errorf("x: %w", ErrFeatureUnavailable), CategoryConfiguration},
		{"other", fmt.Errorf("boom"), CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.err).Build().Category)
		})
	}
}

func TestHooksAndReporterReceiveErrors(t *testing.T) {
	reporter := &stubReporter{enabled: true}
	SetTelemetryReporter(reporter)
	var hooked []string
	AddErrorHook(func(ee *EnhancedError) { hooked = append(hooked, ee.Error()) })
	t.Cleanup(func() {
		SetTelemetryReporter(nil)
		ClearErrorHooks()
	})

	ee := New(fmt.Errorf("server said no")).Category(CategoryValidation).Build()

	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
	assert.Equal(t, []string{"server said no"}, hooked)
}

func TestBasicURLScrub(t *testing.T) {
	scrubbed := basicURLScrub("Error at https://tracker.example.com/api?csrf_token=secret123")
	assert.Equal(t, "Error at https://tracker.example.com/api?[REDACTED]", scrubbed)

	scrubbed = basicURLScrub("Auth failed with token=abc123")
	assert.NotContains(t, scrubbed, "abc123")
	assert.True(t, strings.Contains(scrubbed, "REDACTED"))
}

func TestGenerateErrorTitle(t *testing.T) {
	ee := New(fmt.Errorf("x")).
		Category(CategoryNetwork).
		Context("operation", "fetch_detail").
		Build()

	assert.Equal(t, "Trackerapi Network Error Fetch Detail", generateErrorTitle("trackerapi", ee))
}
