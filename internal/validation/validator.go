// Package validation checks layout documents before they enter a session:
// a JSON Schema pass over the wire shape, then structural checks the schema
// cannot express (id uniqueness, slot variants, dangling links).
package validation

import "github.com/rendis/canopy/pkg/schema"

// Validator checks documents and node subtrees.
type Validator interface {
	ValidateDocument(doc *schema.Node) error
	ValidateJSON(raw []byte) (*schema.Node, error)
}
