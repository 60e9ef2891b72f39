package queue

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Record outcome markers.
const (
	StatusSuccess = "SUCCESS"
	StatusFail    = "FAIL"
)

// Record is the parsed form of a queue log line:
//
//	[<name>: ][<seq>] (<SUCCESS|FAIL>) <action>[ - <reason>]
type Record struct {
	Name    string
	Seq     int64
	Success bool
	Action  string
	Reason  string
}

var recordPattern = regexp.MustCompile(`^(?:(.*?): )?\[(\d+)\] \((SUCCESS|FAIL)\) (.*?)(?: - (.*))?$`)

// FormatRecord renders the log line for one queue operation. The reason is
// appended only when err is non-nil.
func FormatRecord(name string, seq int64, action string, err error) string {
	r := Record{Name: name, Seq: seq, Success: err == nil, Action: action}
	if err != nil {
		r.Reason = Reason(err)
	}
	return r.String()
}

// ParseRecord parses a line produced by FormatRecord.
func ParseRecord(line string) (Record, error) {
	m := recordPattern.FindStringSubmatch(line)
	if m == nil {
		return Record{}, fmt.Errorf("not a queue record: %q", line)
	}
	n, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad sequence number in %q: %w", line, err)
	}
	return Record{
		Name:    m[1],
		Seq:     n,
		Success: m[3] == StatusSuccess,
		Action:  m[4],
		Reason:  m[5],
	}, nil
}

// String renders the record as a log line; ParseRecord reverses it.
func (r Record) String() string {
	var b strings.Builder
	if r.Name != "" {
		b.WriteString(r.Name)
		b.WriteString(": ")
	}
	b.WriteByte('[')
	b.WriteString(strconv.FormatInt(r.Seq, 10))
	b.WriteString("] ")
	if r.Success {
		b.WriteString("(" + StatusSuccess + ") ")
		b.WriteString(r.Action)
		return b.String()
	}
	b.WriteString("(" + StatusFail + ") ")
	b.WriteString(r.Action)
	b.WriteString(" - ")
	b.WriteString(r.Reason)
	return b.String()
}

func pushAction(value int) string {
	return fmt.Sprintf("Buffer write %d", value)
}

func popAction(value int, ok bool) string {
	if !ok {
		return "Buffer read"
	}
	return fmt.Sprintf("Buffer read %d", value)
}

func setCapacityAction(n, truncated int) string {
	action := fmt.Sprintf("Buffer set bound to %d", n)
	switch {
	case truncated == 1:
		action += " (truncated 1 element)"
	case truncated > 1:
		action += fmt.Sprintf(" (truncated %d elements)", truncated)
	}
	return action
}

const setUnboundedAction = "Buffer set infinite bound"
