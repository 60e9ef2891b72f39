package harness

// StepOutcome records what one step did.
type StepOutcome struct {
	Index int    `json:"index"`
	Op    string `json:"op"`
	Queue string `json:"queue,omitempty"`
	OK    bool   `json:"ok"`

	// Value is the popped element on a successful pop.
	Value *int `json:"value,omitempty"`

	// Error is the queue error code of a failed step.
	Error string `json:"error,omitempty"`
}

// QueueState is a queue's final contents.
type QueueState struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Elements []int  `json:"elements"`
	Capacity string `json:"capacity"`
	Seq      int64  `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Log is the final event log, one record per entry.
	Log []string `json:"log"`

	// Steps holds one outcome per executed step.
	Steps []StepOutcome `json:"steps"`

	// Queues holds the final state of each declared queue, in declaration
	// order.
	Queues []QueueState `json:"queues"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Log:    []string{},
		Steps:  []StepOutcome{},
		Queues: []QueueState{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Queue returns the final state of the queue with the given ID.
func (r *Result) Queue(id string) (QueueState, bool) {
	for _, q := range r.Queues {
		if q.ID == id {
			return q, true
		}
	}
	return QueueState{}, false
}
