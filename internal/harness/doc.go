// Package harness runs declarative scenarios against an event log and the
// queues that record into it.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: bound_of_one
//	description: "A full queue rejects pushes until an element is popped"
//	queues:
//	  - id: buf
//	    capacity: 1
//	steps:
//	  - { op: push, queue: buf, value: 1 }
//	  - { op: push, queue: buf, value: 4, expect: fail }
//	  - { op: pop, queue: buf }
//	  - { op: append, message: "[x] free-form record" }
//	assertions:
//	  - { type: log_count, count: 4 }
//	  - { type: log_line, index: 1, text: "[2] (FAIL) Buffer write 4 - Buffer full" }
//	  - { type: elements, queue: buf, elements: [] }
//	  - { type: capacity, queue: buf, capacity: 1 }
//
// A queue's name, when set, prefixes its records. The initial capacity is
// applied at construction and writes no record.
//
// # Assertion Types
//
//   - log_count: the log holds exactly count records
//   - log_contains: some record contains text
//   - log_line: the record at index equals text
//   - elements: the queue holds exactly elements, oldest first
//   - capacity: the queue's bound equals capacity, or unbounded is true
//
// # Validation
//
// LoadScenario checks a file in three passes: the embedded CUE schema
// (scenario.cue) for shape and enumerations, strict YAML decoding for unknown
// fields, and Go checks for cross-references such as undeclared queue IDs.
//
// # Determinism
//
// Steps run sequentially on a fresh log, so the log and the final queue state
// are identical across runs and can be compared against golden files.
package harness
