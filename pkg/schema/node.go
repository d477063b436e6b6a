package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// NodeType is the variant tag of a layout node.
type NodeType string

const (
	NodeTypeStack             NodeType = "STACK"
	NodeTypeText              NodeType = "TEXT"
	NodeTypeIconText          NodeType = "ICON_TEXT"
	NodeTypeTitledContainer   NodeType = "TITLED_CONTAINER"
	NodeTypeCenteredContainer NodeType = "CENTERED_CONTAINER"
	NodeTypeImage             NodeType = "IMAGE"
)

// NodeTypes lists every variant in declaration order.
var NodeTypes = []NodeType{
	NodeTypeStack,
	NodeTypeText,
	NodeTypeIconText,
	NodeTypeTitledContainer,
	NodeTypeCenteredContainer,
	NodeTypeImage,
}

// Valid reports whether t is one of the known variants.
func (t NodeType) Valid() bool {
	for _, known := range NodeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Background, FontColor and the other enums below are opaque to the engine;
// they only travel between the backend and the renderer.
type Background string

const (
	BackgroundPrimary   Background = "PRIMARY"
	BackgroundDefault   Background = "DEFAULT"
	BackgroundSecondary Background = "SECONDARY"
	BackgroundTertiary  Background = "TERTIARY"
)

type FontColor string

const (
	FontColorPrimary   FontColor = "PRIMARY"
	FontColorDefault   FontColor = "DEFAULT"
	FontColorSecondary FontColor = "SECONDARY"
	FontColorTertiary  FontColor = "TERTIARY"
)

type BorderType string

const (
	BorderSolid  BorderType = "SOLID"
	BorderDashed BorderType = "DASHED"
	BorderDotted BorderType = "DOTTED"
	BorderNone   BorderType = "NONE"
)

type FontWeight string

const (
	FontWeightBold    FontWeight = "BOLD"
	FontWeightRegular FontWeight = "REGULAR"
	FontWeightThin    FontWeight = "THIN"
)

type FontSize string

const (
	FontSizeBig    FontSize = "BIG"
	FontSizeMedium FontSize = "MEDIUM"
	FontSizeSmall  FontSize = "SMALL"
)

type TextAlign string

const (
	TextAlignLeft   TextAlign = "LEFT"
	TextAlignRight  TextAlign = "RIGHT"
	TextAlignCenter TextAlign = "CENTER"
)

type FlexWrap string

const (
	FlexWrapWrap   FlexWrap = "WRAP"
	FlexWrapNoWrap FlexWrap = "NOWRAP"
)

type JustifyContent string

const (
	JustifySpaceBetween JustifyContent = "SPACE_BETWEEN"
	JustifySpaceAround  JustifyContent = "SPACE_AROUND"
	JustifyCenter       JustifyContent = "CENTER"
	JustifyStretch      JustifyContent = "STRETCH"
)

type AlignItems string

const (
	AlignStart   AlignItems = "START"
	AlignCenter  AlignItems = "CENTER"
	AlignEnd     AlignItems = "END"
	AlignStretch AlignItems = "STRETCH"
)

// Link is a render-only edge between two nodes.
type Link struct {
	FromID string `json:"fromId"`
	ToID   string `json:"toId"`
}

// Style is the presentation attribute bag shared by every variant.
type Style struct {
	Background   Background `json:"background,omitempty"`
	BorderColor  FontColor  `json:"borderColor,omitempty"`
	BorderType   BorderType `json:"borderType,omitempty"`
	BorderRadius string     `json:"borderRadius,omitempty"`
	Opacity      *float64   `json:"opacity,omitempty"`
	Padding      string     `json:"padding,omitempty"`
	Margin       string     `json:"margin,omitempty"`
	Width        string     `json:"width,omitempty"`
	Height       string     `json:"height,omitempty"`
	OverflowX    string     `json:"overflowX,omitempty"`
	OverflowY    string     `json:"overflowY,omitempty"`
	Flex         *float64   `json:"flex,omitempty"`
	MinWidth     string     `json:"minWidth,omitempty"`
	MinHeight    string     `json:"minHeight,omitempty"`
}

// Node is one element of a layout document. It is a closed tagged union:
// NodeType decides which of the variant fields are meaningful.
//
// Nodes are treated as immutable once they are part of a document. Every
// edit produces a copy; never assign to the fields of a node reachable from
// a committed document.
type Node struct {
	ID       string   `json:"id"`
	NodeType NodeType `json:"nodeType"`
	Style
	Cut   bool   `json:"cut,omitempty"`
	Links []Link `json:"links,omitempty"`

	// STACK
	Vertical       bool           `json:"vertical,omitempty"`
	Gap            int            `json:"gap,omitempty"`
	FlexWrap       FlexWrap       `json:"flexWrap,omitempty"`
	JustifyContent JustifyContent `json:"justifyContent,omitempty"`
	AlignItems     AlignItems     `json:"alignItems,omitempty"`
	Children       []*Node        `json:"children,omitempty"`

	// TEXT
	HTMLText   string     `json:"htmltext,omitempty"`
	FontSize   FontSize   `json:"fontSize,omitempty"`
	TextAlign  TextAlign  `json:"textAlign,omitempty"`
	FontColor  FontColor  `json:"fontColor,omitempty"`
	FontWeight FontWeight `json:"fontWeight,omitempty"`

	// TITLED_CONTAINER
	TitleText *Node `json:"titleText,omitempty"`
	IsDivided bool  `json:"isDivided,omitempty"`
	Content   *Node `json:"content,omitempty"`

	// CENTERED_CONTAINER
	ChildNode *Node `json:"childNode,omitempty"`

	// ICON_TEXT
	Text *Node  `json:"text,omitempty"`
	Icon string `json:"icon,omitempty"`

	// IMAGE
	URL string `json:"url,omitempty"`
}

// IsStack reports whether n is a STACK.
func (n *Node) IsStack() bool { return n != nil && n.NodeType == NodeTypeStack }

// IsText reports whether n is a TEXT.
func (n *Node) IsText() bool { return n != nil && n.NodeType == NodeTypeText }

// IsIconText reports whether n is an ICON_TEXT.
func (n *Node) IsIconText() bool { return n != nil && n.NodeType == NodeTypeIconText }

// IsTitledContainer reports whether n is a TITLED_CONTAINER.
func (n *Node) IsTitledContainer() bool { return n != nil && n.NodeType == NodeTypeTitledContainer }

// IsCenteredContainer reports whether n is a CENTERED_CONTAINER.
func (n *Node) IsCenteredContainer() bool {
	return n != nil && n.NodeType == NodeTypeCenteredContainer
}

// IsImage reports whether n is an IMAGE.
func (n *Node) IsImage() bool { return n != nil && n.NodeType == NodeTypeImage }

// MarshalJSON always emits a children array for stacks, even an empty one,
// because clients index into it without checking.
func (n Node) MarshalJSON() ([]byte, error) {
	type plain Node
	if n.NodeType != NodeTypeStack {
		return json.Marshal(plain(n))
	}
	children := n.Children
	if children == nil {
		children = []*Node{}
	}
	return json.Marshal(struct {
		plain
		Children []*Node `json:"children"`
	}{plain(n), children})
}

// Copy returns a shallow copy of n. Child pointers are shared; the Children
// slice and the style pointers are duplicated so the copy can be re-ordered
// or decoded into without touching n.
func (n *Node) Copy() *Node {
	if n == nil {
		return nil
	}
	cp := *n
	cp.Opacity = copyFloat(n.Opacity)
	cp.Flex = copyFloat(n.Flex)
	if n.Children != nil {
		cp.Children = append([]*Node(nil), n.Children...)
	}
	if n.Links != nil {
		cp.Links = append([]Link(nil), n.Links...)
	}
	return &cp
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// structuralKeys are the JSON attributes that carry identity or children.
var structuralKeys = map[string]bool{
	"id":        true,
	"nodeType":  true,
	"children":  true,
	"titleText": true,
	"content":   true,
	"childNode": true,
	"text":      true,
}

// propertyKeys is the set of JSON attribute names that SetProperty accepts.
var propertyKeys = collectPropertyKeys()

func collectPropertyKeys() map[string]bool {
	keys := make(map[string]bool)
	var visit func(t reflect.Type)
	visit = func(t reflect.Type) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous {
				visit(f.Type)
				continue
			}
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" || structuralKeys[name] {
				continue
			}
			keys[name] = true
		}
	}
	visit(reflect.TypeOf(Node{}))
	return keys
}

// IsPropertyKey reports whether key names a settable, non-structural attribute.
func IsPropertyKey(key string) bool {
	return propertyKeys[key]
}

// SetProperty returns a copy of n with one attribute replaced. The value is
// merged through its JSON encoding, so any JSON-compatible value of the right
// shape is accepted. Structural and unknown keys are rejected.
func (n *Node) SetProperty(key string, value any) (*Node, error) {
	if structuralKeys[key] {
		return nil, NewErrorf(ErrCodeValidation, "property %q is structural and cannot be set", key).WithNode(n.ID)
	}
	if !propertyKeys[key] {
		return nil, NewErrorf(ErrCodeValidation, "unknown property %q", key).WithNode(n.ID)
	}
	patch, err := json.Marshal(map[string]any{key: value})
	if err != nil {
		return nil, NewErrorf(ErrCodeValidation, "encode property %q", key).WithNode(n.ID).WithCause(err)
	}
	cp := n.Copy()
	if err := json.Unmarshal(patch, cp); err != nil {
		return nil, NewErrorf(ErrCodeValidation, "invalid value for property %q", key).WithNode(n.ID).WithCause(err)
	}
	return cp, nil
}

// ParseNode decodes a node tree from JSON.
func ParseNode(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}
	return &n, nil
}

// --- Constructors ---
// Each constructor supplies every child its variant requires.

// NewStack creates a STACK with the given children.
func NewStack(id string, children ...*Node) *Node {
	if children == nil {
		children = []*Node{}
	}
	return &Node{ID: id, NodeType: NodeTypeStack, Children: children}
}

// NewText creates a TEXT leaf.
func NewText(id, html string) *Node {
	return &Node{ID: id, NodeType: NodeTypeText, HTMLText: html}
}

// NewImage creates an IMAGE leaf.
func NewImage(id, url string) *Node {
	return &Node{ID: id, NodeType: NodeTypeImage, URL: url}
}

// NewCenteredContainer wraps a single child.
func NewCenteredContainer(id string, child *Node) *Node {
	return &Node{ID: id, NodeType: NodeTypeCenteredContainer, ChildNode: child}
}

// NewTitledContainer pairs a TEXT title with arbitrary content.
func NewTitledContainer(id string, title, content *Node) *Node {
	return &Node{ID: id, NodeType: NodeTypeTitledContainer, TitleText: title, Content: content}
}

// NewIconText pairs an icon identifier with a TEXT label.
func NewIconText(id, icon string, text *Node) *Node {
	return &Node{ID: id, NodeType: NodeTypeIconText, Icon: icon, Text: text}
}
