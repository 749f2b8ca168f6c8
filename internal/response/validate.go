package response

import (
	"errors"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/docfields/internal/fieldschema"
)

// schemaIssues checks the raw response against the derived response schema.
// Violations are advisory; reconciliation has already repaired them.
func schemaIssues(s *fieldschema.Schema, doc map[string]any) []string {
	compiled, err := fieldschema.CompileResponseSchema(s)
	if err != nil {
		return []string{"schema: " + err.Error()}
	}
	err = compiled.Validate(any(doc))
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []string{"schema: " + err.Error()}
	}
	var issues []string
	for _, leaf := range leafCauses(verr) {
		loc := leaf.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		issues = append(issues, "schema: "+loc+": "+leaf.Message)
	}
	return issues
}

func leafCauses(e *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(e.Causes) == 0 {
		return []*jsonschema.ValidationError{e}
	}
	var out []*jsonschema.ValidationError
	for _, c := range e.Causes {
		out = append(out, leafCauses(c)...)
	}
	return out
}
