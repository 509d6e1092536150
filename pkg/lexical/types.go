package lexical

// Document is the editor state saved by the notes frontend.
type Document struct {
	Root Node `json:"root"`
}

// Node is any node of the editor tree. Only fields that carry readable text
// or structure are decoded.
type Node struct {
	Type     string `json:"type"`
	Children []Node `json:"children,omitempty"`

	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`

	ListType string `json:"listType,omitempty"` // check, bullet, number
	Start    int    `json:"start,omitempty"`
	Checked  bool   `json:"checked,omitempty"`
}
