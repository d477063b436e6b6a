package validation

import (
	"github.com/rendis/canopy/internal/tree"
	"github.com/rendis/canopy/pkg/schema"
)

// DocumentValidator runs the two-stage pipeline:
// 1. Wire shape (JSON Schema)
// 2. Structure (ids, slots, links)
type DocumentValidator struct {
	jsonSchema *JSONSchemaValidator
}

// NewDocumentValidator creates a DocumentValidator.
func NewDocumentValidator() (*DocumentValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &DocumentValidator{jsonSchema: jsv}, nil
}

// Validate runs both stages on doc. Wire-shape errors short-circuit.
func (dv *DocumentValidator) Validate(doc *schema.Node) *schema.ValidationResult {
	if doc == nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.ErrCodeValidation, "document is nil")
		return r
	}
	result := wireShape(dv.jsonSchema.ValidateNode(doc))
	if !result.Valid() {
		return result
	}
	result.Merge(validateStructure(doc, nil))
	if result.Valid() && !doc.IsStack() {
		result.AddWarning("/", IssueRootNotStack, "root is not a STACK; nothing can be pasted or dropped at the top level")
	}
	return result
}

// ValidateDocument satisfies the Validator interface.
func (dv *DocumentValidator) ValidateDocument(doc *schema.Node) error {
	return dv.Validate(doc).ToError()
}

// ValidateJSON validates raw JSON and decodes it on success.
func (dv *DocumentValidator) ValidateJSON(raw []byte) (*schema.Node, error) {
	if err := dv.jsonSchema.ValidateRaw(raw); err != nil {
		return nil, err
	}
	doc, err := schema.ParseNode(raw)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, err.Error()).WithCause(err)
	}
	if err := validateStructure(doc, nil).ToError(); err != nil {
		return nil, err
	}
	return doc, nil
}

// ValidateSubtree checks a node that is about to be inserted into doc: its
// own shape, and that none of its ids already exist in doc.
func (dv *DocumentValidator) ValidateSubtree(doc, sub *schema.Node) error {
	if sub == nil {
		return schema.NewError(schema.ErrCodeValidation, "node is nil")
	}
	result := wireShape(dv.jsonSchema.ValidateNode(sub))
	if result.Valid() {
		result.Merge(validateStructure(sub, tree.IDs(doc)))
	}
	return result.ToError()
}

// wireShape turns a JSON Schema error into a ValidationResult, one issue per
// violation.
func wireShape(err error) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if err == nil {
		return result
	}
	edErr, ok := err.(*schema.EditorError)
	if !ok {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return result
	}
	if violations, ok := edErr.Details["violations"].([]string); ok {
		for _, v := range violations {
			result.AddError("/", schema.ErrCodeValidation, v)
		}
		return result
	}
	result.AddError("/", schema.ErrCodeValidation, edErr.Message)
	return result
}

var _ Validator = (*DocumentValidator)(nil)
