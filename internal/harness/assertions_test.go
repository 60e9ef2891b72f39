package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	r := NewResult()
	r.Log = []string{
		"b1: [1] (SUCCESS) Buffer write 10",
		"b1: [2] (FAIL) Buffer write 11 - Buffer full",
		"b1: [3] (SUCCESS) Buffer read 10",
	}
	r.Queues = []QueueState{
		{ID: "b1", Name: "b1", Elements: []int{}, Capacity: "1", Seq: 3},
		{ID: "b2", Elements: []int{4, 5}, Capacity: "unbounded"},
	}
	return r
}

func TestAssertLogCount(t *testing.T) {
	r := sampleResult()
	assert.NoError(t, assertLogCount(r, Assertion{Count: intp(3)}))

	err := assertLogCount(r, Assertion{Count: intp(4)})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertLogCount, ae.Type)
	assert.Equal(t, "4 records", ae.Expected)
	assert.Equal(t, "3 records", ae.Actual)
}

func TestAssertLogContains(t *testing.T) {
	r := sampleResult()
	assert.NoError(t, assertLogContains(r, Assertion{Text: "Buffer full"}))
	assert.Error(t, assertLogContains(r, Assertion{Text: "Buffer empty"}))
}

func TestAssertLogLine(t *testing.T) {
	r := sampleResult()

	tests := []struct {
		name    string
		index   int
		text    string
		wantErr string
	}{
		{"match", 1, "b1: [2] (FAIL) Buffer write 11 - Buffer full", ""},
		{"mismatch", 0, "b1: [1] (FAIL) Buffer write 10", `"b1: [1] (SUCCESS) Buffer write 10"`},
		{"past end", 3, "x", "index out of range (log has 3 records)"},
		{"negative", -1, "x", "index out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertLogLine(r, Assertion{Index: intp(tt.index), Text: tt.text})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertElements(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertElements(r, Assertion{Queue: "b2", Elements: []int{4, 5}}))
	// An omitted list means empty
	assert.NoError(t, assertElements(r, Assertion{Queue: "b1"}))
	assert.Error(t, assertElements(r, Assertion{Queue: "b2", Elements: []int{5, 4}}))
	assert.ErrorContains(t, assertElements(r, Assertion{Queue: "zz"}), "unknown queue")
}

func TestAssertCapacity(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertCapacity(r, Assertion{Queue: "b1", Capacity: intp(1)}))
	assert.NoError(t, assertCapacity(r, Assertion{Queue: "b2", Unbounded: true}))
	assert.Error(t, assertCapacity(r, Assertion{Queue: "b1", Unbounded: true}))
	assert.Error(t, assertCapacity(r, Assertion{Queue: "b2", Capacity: intp(0)}))
}

func TestEvaluateAssertions_SomeFail(t *testing.T) {
	r := sampleResult()
	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertLogCount, Count: intp(3)},
		{Type: AssertLogContains, Text: "nope"},
		{Type: AssertElements, Queue: "b2", Elements: []int{4, 5}},
		{Type: "bogus"},
	})

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "log_contains")
	assert.Equal(t, `assertion[3]: unknown assertion type "bogus"`, errs[1])
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertLogCount,
		Expected: "2 records",
		Actual:   "1 records",
		Log:      []string{"[1] (SUCCESS) Buffer write 1"},
	}

	want := "Assertion failed: log_count\n" +
		"  Expected: 2 records\n" +
		"  Actual: 1 records\n" +
		"\nFull log:\n" +
		"  0: [1] (SUCCESS) Buffer write 1\n"
	assert.Equal(t, want, err.Error())
}
