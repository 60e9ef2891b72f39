package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a deterministic run against one event log and the queues
// that record into it, followed by assertions on the log and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Queues are created before the first step, all sharing the scenario log.
	Queues []QueueDecl `yaml:"queues,omitempty"`

	// Steps run sequentially in declaration order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final log and queue state.
	// Supported types: log_count, log_contains, log_line, elements, capacity
	Assertions []Assertion `yaml:"assertions"`
}

// QueueDecl declares a queue.
type QueueDecl struct {
	// ID is how steps and assertions refer to the queue.
	ID string `yaml:"id"`

	// Name is the record prefix. Empty means records carry no prefix.
	Name string `yaml:"name,omitempty"`

	// Capacity is the initial bound. Nil means unbounded.
	// Setting it does not write a record.
	Capacity *int `yaml:"capacity,omitempty"`
}

// Step is one operation on a queue or directly on the log.
type Step struct {
	// Op is one of push, pop, set_capacity, set_unbounded, append, clear.
	Op string `yaml:"op"`

	// Queue is the queue ID (queue operations only).
	Queue string `yaml:"queue,omitempty"`

	// Value is the pushed element or the new bound.
	Value *int `yaml:"value,omitempty"`

	// Message is the record text for append.
	Message string `yaml:"message,omitempty"`

	// Expect is "success" or "fail". Empty skips the check.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates the log or a queue's final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "log_count": the log holds exactly Count records
	// - "log_contains": some record contains Text
	// - "log_line": the record at Index equals Text
	// - "elements": the queue holds exactly Elements, oldest first
	// - "capacity": the queue's bound is Capacity, or unbounded
	Type string `yaml:"type"`

	Count *int   `yaml:"count,omitempty"`
	Index *int   `yaml:"index,omitempty"`
	Text  string `yaml:"text,omitempty"`

	Queue     string `yaml:"queue,omitempty"`
	Elements  []int  `yaml:"elements,omitempty"`
	Capacity  *int   `yaml:"capacity,omitempty"`
	Unbounded bool   `yaml:"unbounded,omitempty"`
}

// Step operation constants.
const (
	OpPush         = "push"
	OpPop          = "pop"
	OpSetCapacity  = "set_capacity"
	OpSetUnbounded = "set_unbounded"
	OpAppend       = "append"
	OpClear        = "clear"
)

// Step expectation constants.
const (
	ExpectSuccess = "success"
	ExpectFail    = "fail"
)

// Assertion type constants.
const (
	AssertLogCount    = "log_count"
	AssertLogContains = "log_contains"
	AssertLogLine     = "log_line"
	AssertElements    = "elements"
	AssertCapacity    = "capacity"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, fails the schema,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(path, data)
}

// ParseScenario parses scenario YAML. filename is only used in messages.
func ParseScenario(filename string, data []byte) (*Scenario, error) {
	if errs := ValidateSchema(filename, data); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("schema validation failed:\n  %s", strings.Join(msgs, "\n  "))
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks the cross-references the schema cannot express.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	queues := make(map[string]bool, len(s.Queues))
	for i, q := range s.Queues {
		if q.ID == "" {
			return fmt.Errorf("queues[%d]: id is required", i)
		}
		if queues[q.ID] {
			return fmt.Errorf("queues[%d]: duplicate id %q", i, q.ID)
		}
		if q.Capacity != nil && *q.Capacity < 0 {
			return fmt.Errorf("queues[%d]: capacity must be non-negative", i)
		}
		queues[q.ID] = true
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step, queues); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, queues); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step *Step, queues map[string]bool) error {
	switch step.Op {
	case OpPush, OpSetCapacity:
		if step.Value == nil {
			return fmt.Errorf("steps[%d]: value is required for %s", index, step.Op)
		}
		fallthrough
	case OpPop, OpSetUnbounded:
		if step.Queue == "" {
			return fmt.Errorf("steps[%d]: queue is required for %s", index, step.Op)
		}
		if !queues[step.Queue] {
			return fmt.Errorf("steps[%d]: unknown queue %q", index, step.Queue)
		}
	case OpAppend, OpClear:
		if step.Queue != "" {
			return fmt.Errorf("steps[%d]: %s operates on the log and takes no queue", index, step.Op)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	switch step.Expect {
	case "", ExpectSuccess, ExpectFail:
	default:
		return fmt.Errorf("steps[%d]: expect must be %q or %q, got %q", index, ExpectSuccess, ExpectFail, step.Expect)
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, queues map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertLogCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for log_count", index)
		}
	case AssertLogContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for log_contains", index)
		}
	case AssertLogLine:
		if a.Index == nil {
			return fmt.Errorf("assertions[%d]: index is required for log_line", index)
		}
	case AssertElements:
		if !queues[a.Queue] {
			return fmt.Errorf("assertions[%d]: elements needs a declared queue, got %q", index, a.Queue)
		}
	case AssertCapacity:
		if !queues[a.Queue] {
			return fmt.Errorf("assertions[%d]: capacity needs a declared queue, got %q", index, a.Queue)
		}
		if (a.Capacity == nil) == !a.Unbounded {
			return fmt.Errorf("assertions[%d]: capacity needs exactly one of capacity or unbounded", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
