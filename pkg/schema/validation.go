package schema

import "fmt"

// ValidationSeverity indicates whether an issue rejects a document.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue is one problem found in a document. Path is the JSON
// pointer of the offending node; NodeID is set when that node has an id.
type ValidationIssue struct {
	Path     string             `json:"path"`
	NodeID   string             `json:"node_id,omitempty"`
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

// ValidationResult collects the issues of one validation pass. Warnings
// never reject a document.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

// Valid reports whether no errors were found.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// AddError records an error at path.
func (r *ValidationResult) AddError(path, code, message string) {
	r.AddNodeError(path, "", code, message)
}

// AddNodeError records an error on the node nodeID found at path.
func (r *ValidationResult) AddNodeError(path, nodeID, code, message string) {
	r.Errors = append(r.Errors, ValidationIssue{
		Path: path, NodeID: nodeID, Code: code, Message: message, Severity: SeverityError,
	})
}

// AddWarning records a warning at path.
func (r *ValidationResult) AddWarning(path, code, message string) {
	r.AddNodeWarning(path, "", code, message)
}

// AddNodeWarning records a warning on the node nodeID found at path.
func (r *ValidationResult) AddNodeWarning(path, nodeID, code, message string) {
	r.Warnings = append(r.Warnings, ValidationIssue{
		Path: path, NodeID: nodeID, Code: code, Message: message, Severity: SeverityWarning,
	})
}

// Merge appends the issues of other.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// NodeIDs returns the distinct ids of nodes with errors, in report order.
func (r *ValidationResult) NodeIDs() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, issue := range r.Errors {
		if issue.NodeID != "" && !seen[issue.NodeID] {
			seen[issue.NodeID] = true
			ids = append(ids, issue.NodeID)
		}
	}
	return ids
}

// ToError returns a VALIDATION_ERROR carrying every issue, or nil when the
// result is valid. The first offending node becomes the error's node.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}

	first := r.Errors[0]
	msg := first.Message
	if len(r.Errors) > 1 {
		msg = fmt.Sprintf("document has %d problems, first at %s: %s", len(r.Errors), first.Path, first.Message)
	}

	return NewError(ErrCodeValidation, msg).
		WithNode(first.NodeID).
		WithDetails(map[string]any{
			"error_count":   len(r.Errors),
			"warning_count": len(r.Warnings),
			"node_ids":      r.NodeIDs(),
			"errors":        r.Errors,
			"warnings":      r.Warnings,
		})
}
