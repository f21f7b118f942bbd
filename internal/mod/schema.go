// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package mod

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

var (
	schemaMu    sync.Mutex
	schemaCache *jschema.Schema
)

// SchemaID returns the schema $id mod documents can reference.
func SchemaID() string {
	return "https://freee.dev/schemas/mod.schema.json"
}

// GenerateSchema generates a JSON Schema from the Mod struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	schema := r.Reflect(&Mod{})
	schema.ID = jsonschema.ID(SchemaID())
	schema.Title = "FrEee Mod"
	schema.Description = "Schema for mod ability rule documents"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "marshal mod schema")
	}
	return data, nil
}

// ValidateSchema validates YAML data against the mod JSON Schema.
func ValidateSchema(data []byte) error {
	if len(data) == 0 {
		return oops.Code(CodeInvalid).Errorf("mod document is empty")
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code(CodeInvalid).Wrapf(err, "invalid mod YAML")
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(toJSONTypes(doc)); err != nil {
		return oops.Code(CodeInvalid).Wrapf(err, "schema validation failed")
	}
	return nil
}

func compiledSchema() (*jschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if schemaCache != nil {
		return schemaCache, nil
	}

	raw, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	var schemaDoc any
	if err := json.Unmarshal(raw, &schemaDoc); err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "parse mod schema")
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("mod.schema.json", schemaDoc); err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "add mod schema resource")
	}
	sch, err := c.Compile("mod.schema.json")
	if err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "compile mod schema")
	}
	schemaCache = sch
	return sch, nil
}

// toJSONTypes rewrites YAML-decoded values into the shapes the validator
// expects: string-keyed maps, []any, and JSON scalars.
func toJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = toJSONTypes(v)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			if s, ok := k.(string); ok {
				out[s] = toJSONTypes(v)
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = toJSONTypes(v)
		}
		return out
	case string, int, int64, float64, bool, nil:
		return val
	default:
		if b, err := json.Marshal(val); err == nil {
			var out any
			if err := json.Unmarshal(b, &out); err == nil {
				return out
			}
		}
		return val
	}
}

// FormatSchemaError strips the wrapping from a schema validation error for display.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimPrefix(err.Error(), "schema validation failed: ")
}
