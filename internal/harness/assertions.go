package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Log      []string // Full log for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull log:\n")
	for i, line := range e.Log {
		fmt.Fprintf(&buf, "  %d: %s\n", i, line)
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertLogCount:
			err = assertLogCount(result, assertion)
		case AssertLogContains:
			err = assertLogContains(result, assertion)
		case AssertLogLine:
			err = assertLogLine(result, assertion)
		case AssertElements:
			err = assertElements(result, assertion)
		case AssertCapacity:
			err = assertCapacity(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func assertLogCount(result *Result, a Assertion) error {
	if a.Count == nil {
		return fmt.Errorf("log_count: count is required")
	}
	if len(result.Log) != *a.Count {
		return &AssertionError{
			Type:     AssertLogCount,
			Expected: fmt.Sprintf("%d records", *a.Count),
			Actual:   fmt.Sprintf("%d records", len(result.Log)),
			Log:      result.Log,
		}
	}
	return nil
}

func assertLogContains(result *Result, a Assertion) error {
	for _, line := range result.Log {
		if strings.Contains(line, a.Text) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertLogContains,
		Expected: fmt.Sprintf("a record containing %q", a.Text),
		Actual:   "not found in log",
		Log:      result.Log,
	}
}

func assertLogLine(result *Result, a Assertion) error {
	if a.Index == nil {
		return fmt.Errorf("log_line: index is required")
	}
	idx := *a.Index
	if idx < 0 || idx >= len(result.Log) {
		return &AssertionError{
			Type:     AssertLogLine,
			Expected: fmt.Sprintf("record %d = %q", idx, a.Text),
			Actual:   fmt.Sprintf("index out of range (log has %d records)", len(result.Log)),
			Log:      result.Log,
		}
	}
	if result.Log[idx] != a.Text {
		return &AssertionError{
			Type:     AssertLogLine,
			Expected: fmt.Sprintf("record %d = %q", idx, a.Text),
			Actual:   fmt.Sprintf("%q", result.Log[idx]),
			Log:      result.Log,
		}
	}
	return nil
}

func assertElements(result *Result, a Assertion) error {
	state, ok := result.Queue(a.Queue)
	if !ok {
		return fmt.Errorf("elements: unknown queue %q", a.Queue)
	}
	if !slices.Equal(state.Elements, a.Elements) {
		return &AssertionError{
			Type:     AssertElements,
			Expected: fmt.Sprintf("queue %s holds %v", a.Queue, a.Elements),
			Actual:   fmt.Sprintf("%v", state.Elements),
			Log:      result.Log,
		}
	}
	return nil
}

func assertCapacity(result *Result, a Assertion) error {
	state, ok := result.Queue(a.Queue)
	if !ok {
		return fmt.Errorf("capacity: unknown queue %q", a.Queue)
	}
	want := "unbounded"
	if a.Capacity != nil {
		want = fmt.Sprintf("%d", *a.Capacity)
	}
	if state.Capacity != want {
		return &AssertionError{
			Type:     AssertCapacity,
			Expected: fmt.Sprintf("queue %s capacity %s", a.Queue, want),
			Actual:   state.Capacity,
			Log:      result.Log,
		}
	}
	return nil
}
