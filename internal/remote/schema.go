package remote

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// MarshalSchema indents the schema to JSON bytes.
func MarshalSchema(sch *jsonschema.Schema) ([]byte, error) {
	return json.MarshalIndent(sch, "", "  ")
}

// PayloadSchema returns a JSON Schema for the agent wire payload: an
// array of Record objects, version SchemaVersion.
func PayloadSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{ExpandedStruct: true}
	recordSch := r.Reflect(&Record{})
	return &jsonschema.Schema{
		Title:       "dais remote listing payload",
		Description: "Array of per-entry stat records emitted by the remote agent between the ready and end sentinels.",
		Type:        "array",
		Items:       recordSch,
	}
}
