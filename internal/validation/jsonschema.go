package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/canopy/pkg/schema"
)

const nodeSchemaURL = "https://canopy.dev/schemas/node.json"

// nodeSchemaJSON is the JSON Schema for a layout node tree.
const nodeSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://canopy.dev/schemas/node.json",
  "$ref": "#/$defs/node",
  "$defs": {
    "color": { "type": "string", "enum": ["PRIMARY", "DEFAULT", "SECONDARY", "TERTIARY"] },
    "link": {
      "type": "object",
      "required": ["fromId", "toId"],
      "properties": {
        "fromId": { "type": "string", "minLength": 1 },
        "toId": { "type": "string", "minLength": 1 }
      }
    },
    "node": {
      "type": "object",
      "required": ["id", "nodeType"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "nodeType": {
          "type": "string",
          "enum": ["STACK", "TEXT", "ICON_TEXT", "TITLED_CONTAINER", "CENTERED_CONTAINER", "IMAGE"]
        },
        "background": { "$ref": "#/$defs/color" },
        "borderColor": { "$ref": "#/$defs/color" },
        "borderType": { "type": "string", "enum": ["SOLID", "DASHED", "DOTTED", "NONE"] },
        "opacity": { "type": "number", "minimum": 0, "maximum": 1 },
        "flex": { "type": "number", "minimum": 0 },
        "cut": { "type": "boolean" },
        "links": { "type": "array", "items": { "$ref": "#/$defs/link" } },
        "vertical": { "type": "boolean" },
        "gap": { "type": "integer", "minimum": 0 },
        "flexWrap": { "type": "string", "enum": ["WRAP", "NOWRAP"] },
        "justifyContent": { "type": "string", "enum": ["SPACE_BETWEEN", "SPACE_AROUND", "CENTER", "STRETCH"] },
        "alignItems": { "type": "string", "enum": ["START", "CENTER", "END", "STRETCH"] },
        "children": { "type": "array", "items": { "$ref": "#/$defs/node" } },
        "htmltext": { "type": "string" },
        "fontSize": { "type": "string", "enum": ["BIG", "MEDIUM", "SMALL"] },
        "textAlign": { "type": "string", "enum": ["LEFT", "RIGHT", "CENTER"] },
        "fontColor": { "$ref": "#/$defs/color" },
        "fontWeight": { "type": "string", "enum": ["BOLD", "REGULAR", "THIN"] },
        "titleText": { "$ref": "#/$defs/text" },
        "isDivided": { "type": "boolean" },
        "content": { "$ref": "#/$defs/node" },
        "childNode": { "$ref": "#/$defs/node" },
        "text": { "$ref": "#/$defs/text" },
        "icon": { "type": "string" },
        "url": { "type": "string" }
      },
      "allOf": [
        {
          "if": { "properties": { "nodeType": { "const": "STACK" } } },
          "then": { "required": ["children"] }
        },
        {
          "if": { "properties": { "nodeType": { "const": "TITLED_CONTAINER" } } },
          "then": { "required": ["titleText", "content"] }
        },
        {
          "if": { "properties": { "nodeType": { "const": "CENTERED_CONTAINER" } } },
          "then": { "required": ["childNode"] }
        },
        {
          "if": { "properties": { "nodeType": { "const": "ICON_TEXT" } } },
          "then": { "required": ["text"] }
        }
      ]
    },
    "text": {
      "allOf": [
        { "$ref": "#/$defs/node" },
        { "properties": { "nodeType": { "const": "TEXT" } } }
      ]
    }
  }
}`

// JSONSchemaValidator checks the wire shape of node trees. It is safe for
// concurrent use.
type JSONSchemaValidator struct {
	nodeSchema *jsonschema.Schema
}

// NewJSONSchemaValidator compiles the node schema.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(nodeSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal node schema: %w", err)
	}
	if err := c.AddResource(nodeSchemaURL, schemaDoc); err != nil {
		return nil, fmt.Errorf("add node schema resource: %w", err)
	}
	compiled, err := c.Compile(nodeSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile node schema: %w", err)
	}
	return &JSONSchemaValidator{nodeSchema: compiled}, nil
}

// ValidateRaw validates encoded JSON against the node schema.
func (v *JSONSchemaValidator) ValidateRaw(raw []byte) error {
	if len(raw) == 0 {
		return schema.NewError(schema.ErrCodeValidation, "document is empty")
	}
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "document is not valid JSON").WithCause(err)
	}
	if err := v.nodeSchema.Validate(inst); err != nil {
		return toEditorError(err)
	}
	return nil
}

// ValidateNode validates an in-memory tree against the node schema.
func (v *JSONSchemaValidator) ValidateNode(n *schema.Node) error {
	if n == nil {
		return schema.NewError(schema.ErrCodeValidation, "node is nil")
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize node").WithCause(err)
	}
	return v.ValidateRaw(raw)
}

// toEditorError converts a jsonschema.ValidationError into an EditorError
// listing every leaf violation.
func toEditorError(err error) *schema.EditorError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}
	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf messages
// prefixed with their instance location.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
