package command

import (
	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaURL identifies the execute message schema.
const SchemaURL = "https://xraph.dev/vesting/execute.schema.json"

//go:embed execute.schema.json
var schemaJSON string

// Schema returns the JSON schema for the wire form accepted by Decode.
func Schema() string { return schemaJSON }

// CompileSchema compiles Schema for validation.
func CompileSchema() (*jsonschema.Schema, error) {
	return jsonschema.CompileString(SchemaURL, schemaJSON)
}
