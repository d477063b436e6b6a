package schema

// Event type constants for the edit journal and the live event stream.
const (
	EventDocumentLoaded     = "document.loaded"
	EventDocumentChanged    = "document.changed"
	EventDocumentReset      = "document.reset"
	EventDocumentSaved      = "document.saved"
	EventDocumentSaveFailed = "document.save_failed"

	EventSelectionChanged = "selection.changed"
	EventClipboardChanged = "clipboard.changed"

	EventNotice = "notice"
)

// Edit actions recorded in the journal with every committed change.
const (
	ActionAddChild       = "add_child"
	ActionUpdateProperty = "update_property"
	ActionDelete         = "delete"
	ActionPaste          = "paste"
	ActionCut            = "cut"
	ActionReorder        = "reorder"
	ActionPromote        = "promote"
	ActionDemote         = "demote"
	ActionRelocate       = "relocate"
	ActionUndo           = "undo"
	ActionRedo           = "redo"
)

// NoticeLevel classifies a user-facing notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a short message meant for the person at the keyboard.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
}
