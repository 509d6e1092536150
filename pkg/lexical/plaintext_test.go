package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainTextPassesThroughPlainContent(t *testing.T) {
	for _, in := range []string{"", "just words", `{"other": 1}`, `{"root": broken`} {
		assert.Equal(t, in, PlainText(in))
	}
}

func TestPlainTextRendersDocument(t *testing.T) {
	doc := `{"root":{"type":"root","children":[
		{"type":"heading","children":[{"type":"text","text":"Krebs cycle"}]},
		{"type":"paragraph","children":[
			{"type":"text","text":"Happens in the "},
			{"type":"link","url":"https://example.org","children":[{"type":"text","text":"mitochondria"}]},
			{"type":"text","text":"."}
		]},
		{"type":"list","listType":"number","children":[
			{"type":"listitem","children":[{"type":"text","text":"Acetyl-CoA"},
				{"type":"list","listType":"check","children":[
					{"type":"listitem","checked":true,"children":[{"type":"text","text":"memorize"}]}
				]}
			]},
			{"type":"listitem","children":[{"type":"text","text":"Citrate"}]}
		]},
		{"type":"table","children":[
			{"type":"tablerow","children":[
				{"type":"tablecell","children":[{"type":"paragraph","children":[{"type":"text","text":"Input"}]}]},
				{"type":"tablecell","children":[{"type":"paragraph","children":[{"type":"text","text":"Output"}]}]}
			]}
		]}
	]}}`

	want := "Krebs cycle\n" +
		"Happens in the mitochondria.\n" +
		"1. Acetyl-CoA\n" +
		"  [x] memorize\n" +
		"2. Citrate\n" +
		"Input | Output"
	assert.Equal(t, want, PlainText(doc))
	assert.True(t, IsDocument("  "+doc))
}
