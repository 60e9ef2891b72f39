package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// LogSnapshot captures the observable outcome of a scenario: the final log
// and the final queue contents. It excludes queue IDs, which differ per run.
type LogSnapshot struct {
	Scenario string          `json:"scenario"`
	Log      []string        `json:"log"`
	Queues   []QueueSnapshot `json:"queues"`
}

// QueueSnapshot is the per-queue part of a LogSnapshot.
type QueueSnapshot struct {
	ID       string `json:"id"`
	Elements []int  `json:"elements"`
	Capacity string `json:"capacity"`
}

// Snapshot renders the golden form of a result: indented JSON with a
// trailing newline.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snap := LogSnapshot{
		Scenario: scenarioName,
		Log:      result.Log,
		Queues:   make([]QueueSnapshot, len(result.Queues)),
	}
	if snap.Log == nil {
		snap.Log = []string{}
	}
	for i, q := range result.Queues {
		elems := q.Elements
		if elems == nil {
			elems = []int{}
		}
		snap.Queues[i] = QueueSnapshot{ID: q.ID, Elements: elems, Capacity: q.Capacity}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can make further assertions.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
