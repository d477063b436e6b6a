package engine

import "github.com/rendis/canopy/pkg/schema"

// DefaultText is the label given to freshly created text nodes.
const DefaultText = "New text"

// DefaultIcon is the icon identifier given to freshly created icon-text nodes.
const DefaultIcon = "icon"

// NewDefault builds a node of type t with the editor's default attributes.
// Containers wrap child when given, otherwise a default text node. A Stack
// starts with child as its only element when given. Leaves and ICON_TEXT do
// not accept a child.
func NewDefault(t schema.NodeType, newID IDFunc, child *schema.Node) (*schema.Node, error) {
	if newID == nil {
		newID = NewID
	}
	switch t {
	case schema.NodeTypeText, schema.NodeTypeImage, schema.NodeTypeIconText:
		if child != nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "%s does not take a child", t)
		}
	}

	switch t {
	case schema.NodeTypeText:
		return defaultText(newID), nil
	case schema.NodeTypeImage:
		return schema.NewImage(newID(), ""), nil
	case schema.NodeTypeStack:
		s := schema.NewStack(newID())
		s.Vertical = true
		s.FlexWrap = schema.FlexWrapNoWrap
		s.JustifyContent = schema.JustifyCenter
		s.AlignItems = schema.AlignCenter
		if child != nil {
			s.Children = append(s.Children, child)
		}
		return s, nil
	case schema.NodeTypeCenteredContainer:
		id := newID()
		if child == nil {
			child = defaultText(newID)
		}
		return schema.NewCenteredContainer(id, child), nil
	case schema.NodeTypeTitledContainer:
		id := newID()
		title := defaultText(newID)
		if child == nil {
			child = defaultText(newID)
		}
		return schema.NewTitledContainer(id, title, child), nil
	case schema.NodeTypeIconText:
		id := newID()
		return schema.NewIconText(id, DefaultIcon, defaultText(newID)), nil
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown node type %q", t)
	}
}

// Chain builds nested default nodes, outermost first: Chain(f, CENTERED,
// TITLED, STACK) yields a centered container wrapping a titled container
// whose content is an empty stack.
func Chain(newID IDFunc, types ...schema.NodeType) (*schema.Node, error) {
	if len(types) == 0 {
		return nil, schema.NewError(schema.ErrCodeValidation, "no node type given")
	}
	var child *schema.Node
	for i := len(types) - 1; i >= 0; i-- {
		n, err := NewDefault(types[i], newID, child)
		if err != nil {
			return nil, err
		}
		child = n
	}
	return child, nil
}

func defaultText(newID IDFunc) *schema.Node {
	t := schema.NewText(newID(), DefaultText)
	t.FontSize = schema.FontSizeSmall
	t.TextAlign = schema.TextAlignLeft
	t.FontColor = schema.FontColorDefault
	t.FontWeight = schema.FontWeightRegular
	return t
}
