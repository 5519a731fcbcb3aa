package slack

// Minimal Block Kit shapes. Rendering carries no algorithmic weight; only the
// option-group batching limit matters to the pipeline (the platform rejects
// menus with more than MaxOptionsPerGroup options).
const MaxOptionsPerGroup = 20

// Block is one layout block.
type Block struct {
	Type     string    `json:"type"`
	BlockID  string    `json:"block_id,omitempty"`
	Text     *Text     `json:"text,omitempty"`
	Elements []Element `json:"elements,omitempty"`
}

// Text is a plain or markdown text object.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Element is an interactive element (button or static select).
type Element struct {
	Type        string   `json:"type"`
	ActionID    string   `json:"action_id,omitempty"`
	Text        *Text    `json:"text,omitempty"`
	Value       string   `json:"value,omitempty"`
	Style       string   `json:"style,omitempty"`
	Placeholder *Text    `json:"placeholder,omitempty"`
	Options     []Option `json:"options,omitempty"`
}

// Option is one select-menu option. Value carries the serialized selection
// context (identifiers only; the payload is size-bounded).
type Option struct {
	Text  *Text  `json:"text"`
	Value string `json:"value"`
}

// SectionBlock builds a markdown section.
func SectionBlock(md string) Block {
	return Block{Type: "section", Text: &Text{Type: "mrkdwn", Text: md}}
}

// ActionsBlock builds an actions row.
func ActionsBlock(blockID string, elements ...Element) Block {
	return Block{Type: "actions", BlockID: blockID, Elements: elements}
}

// ButtonElement builds a button.
func ButtonElement(actionID, label, value, style string) Element {
	return Element{Type: "button", ActionID: actionID, Text: &Text{Type: "plain_text", Text: label}, Value: value, Style: style}
}

// SelectElement builds a static select menu.
func SelectElement(actionID, placeholder string, opts []Option) Element {
	return Element{Type: "static_select", ActionID: actionID, Placeholder: &Text{Type: "plain_text", Text: placeholder}, Options: opts}
}
