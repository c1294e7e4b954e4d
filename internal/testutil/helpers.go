package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/openinquiry/inquiry/pkg/domain"
)

// TestTimeout provides a standard timeout for test contexts
const TestTimeout = 5 * time.Second

// NewTestContext creates a context with standard test timeout
func NewTestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	t.Cleanup(cancel)
	return ctx
}

// NewTestFinding creates a finding with the given source and content
func NewTestFinding(source, content string) domain.Finding {
	return domain.Finding{
		Source:     source,
		Content:    content,
		AgentID:    "test-agent",
		Confidence: 0.8,
		Timestamp:  time.Now(),
		Metadata:   map[string]interface{}{},
	}
}

// NewTestFindings creates n findings with distinct sources and contents
func NewTestFindings(n int) []domain.Finding {
	out := make([]domain.Finding, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, NewTestFinding(
			fmt.Sprintf("source-%d", i),
			fmt.Sprintf("Evidence item %d describes distinct verified material facts", i),
		))
	}
	return out
}

// NewTestSubtask creates a pending subtask
func NewTestSubtask(id, description string) domain.Subtask {
	return domain.Subtask{
		ID:          id,
		Description: description,
		Priority:    5,
		Status:      domain.TaskStatusPending,
	}
}

// AssertEqual checks if two values are equal
func AssertEqual(t *testing.T, expected, actual interface{}, msg string) {
	t.Helper()
	if expected != actual {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// AssertNoError checks if error is nil
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", msg, err)
	}
}

// AssertError checks if error is not nil
func AssertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected error but got nil", msg)
	}
}

// AssertInDelta checks that actual is within delta of expected
func AssertInDelta(t *testing.T, expected, actual, delta float64, msg string) {
	t.Helper()
	diff := expected - actual
	if diff < 0 {
		diff = -diff
	}
	if diff > delta {
		t.Errorf("%s: expected %v within %v, got %v", msg, expected, delta, actual)
	}
}
