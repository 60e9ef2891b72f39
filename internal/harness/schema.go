package harness

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed scenario.cue
var scenarioSchema string

// SchemaError is one schema violation in a scenario file.
type SchemaError struct {
	Path    string `json:"path,omitempty"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e SchemaError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// ValidateSchema checks scenario YAML against the embedded #Scenario
// definition. It returns nil when the document conforms.
func ValidateSchema(filename string, data []byte) []SchemaError {
	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return toSchemaErrors(filename, err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(scenarioSchema, cue.Filename("scenario.cue")).
		LookupPath(cue.ParsePath("#Scenario"))
	if err := schema.Err(); err != nil {
		// The schema is embedded; failing to compile it is a build defect.
		panic(fmt.Sprintf("harness: invalid embedded schema: %v", err))
	}

	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return toSchemaErrors(filename, err)
	}

	if err := schema.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return toSchemaErrors(filename, err)
	}
	return nil
}

// toSchemaErrors flattens a CUE error list, keeping the position that points
// into the scenario file rather than into the schema.
func toSchemaErrors(filename string, err error) []SchemaError {
	var out []SchemaError
	seen := make(map[string]bool)

	for _, e := range errors.Errors(err) {
		format, args := e.Msg()
		se := SchemaError{
			Path:    documentPath(e.Path()),
			Message: fmt.Sprintf(format, args...),
		}
		for _, pos := range errors.Positions(e) {
			if pos.Filename() == filename {
				se.Line = pos.Line()
				break
			}
		}

		key := se.Error()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, se)
	}

	if len(out) == 0 {
		out = append(out, SchemaError{Message: err.Error()})
	}
	return out
}

// documentPath joins a CUE error path, dropping the leading definition
// selector (#Scenario) so the path names a location in the scenario file.
func documentPath(path []string) string {
	if len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}
	return strings.Join(path, ".")
}
