// Package lexical renders rich-text note bodies to the plain text that gets
// embedded, assembled into answer context, and excerpted.
package lexical

import (
	"encoding/json"
	"strconv"
	"strings"
)

const rootPrefix = `{"root":`

// IsDocument reports whether content looks like a serialized editor state.
func IsDocument(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), rootPrefix)
}

// PlainText returns content unchanged unless it is an editor document, in
// which case the readable text is extracted. Malformed documents are
// returned as-is.
func PlainText(content string) string {
	if !IsDocument(content) {
		return content
	}

	var doc Document
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &doc); err != nil {
		return content
	}

	var sb strings.Builder
	for _, block := range doc.Root.Children {
		writeBlock(&sb, block, 0)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func writeBlock(sb *strings.Builder, node Node, depth int) {
	switch node.Type {
	case "list":
		writeList(sb, node, depth)
	case "table":
		writeTable(sb, node)
	case "horizontalrule":
		sb.WriteString("---\n")
	default:
		writeInline(sb, node)
		sb.WriteString("\n")
	}
}

func writeInline(sb *strings.Builder, node Node) {
	switch node.Type {
	case "text":
		sb.WriteString(node.Text)
	case "linebreak":
		sb.WriteString("\n")
	default:
		for _, child := range node.Children {
			writeInline(sb, child)
		}
	}
}

func writeList(sb *strings.Builder, node Node, depth int) {
	index := 1
	if node.Start > 0 {
		index = node.Start
	}

	for _, item := range node.Children {
		if item.Type != "listitem" {
			continue
		}
		sb.WriteString(strings.Repeat("  ", depth))
		switch node.ListType {
		case "number":
			sb.WriteString(strconv.Itoa(index) + ". ")
			index++
		case "check":
			if item.Checked {
				sb.WriteString("[x] ")
			} else {
				sb.WriteString("[ ] ")
			}
		default:
			sb.WriteString("- ")
		}

		// Nested lists hang off the list item.
		var nested []Node
		for _, child := range item.Children {
			if child.Type == "list" {
				nested = append(nested, child)
				continue
			}
			writeInline(sb, child)
		}
		sb.WriteString("\n")
		for _, n := range nested {
			writeList(sb, n, depth+1)
		}
	}
}

// writeTable emits one line per row with cells separated by " | ".
func writeTable(sb *strings.Builder, node Node) {
	for _, row := range node.Children {
		if row.Type != "tablerow" {
			continue
		}
		cells := make([]string, 0, len(row.Children))
		for _, cell := range row.Children {
			var cellSb strings.Builder
			writeInline(&cellSb, cell)
			cells = append(cells, strings.Join(strings.Fields(cellSb.String()), " "))
		}
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString("\n")
	}
}
