package deb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptionRender(t *testing.T) {
	d, err := NewDescription("Valid description.",
		Paragraph("New paragraph of text."),
		Verbatim("New verbatim line."),
	)
	require.NoError(t, err)
	assert.Equal(t, "Valid description.\n New paragraph of text.\n  New verbatim line.", d.String())
	assert.Equal(t, "Valid description.", d.Summary())
}

func TestDescriptionBlankLines(t *testing.T) {
	d, err := NewDescription("Summary",
		Paragraph("first"),
		Blank(),
		Paragraph("second"),
		Verbatim("code\n\n  indented"),
	)
	require.NoError(t, err)
	assert.Equal(t, "Summary\n first\n .\n second\n  code\n .\n    indented", d.String())
}

func TestDescriptionWrap(t *testing.T) {
	text := strings.Repeat("word ", 30)
	d, err := NewDescription("Summary", Paragraph(text), Verbatim(text))
	require.NoError(t, err)

	lines := strings.Split(d.Render(40), "\n")
	var verbatim int
	for _, l := range lines[1:] {
		if strings.HasPrefix(l, "  ") {
			verbatim++
			assert.Greater(t, len(l), 40, "verbatim lines are never reflowed")
			continue
		}
		assert.LessOrEqual(t, len(l), 40)
		assert.True(t, strings.HasPrefix(l, " word"))
	}
	assert.Equal(t, 1, verbatim)

	unwrapped := strings.Split(d.Render(0), "\n")
	assert.Len(t, unwrapped, 3)
}

func TestDescriptionValidation(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		lines   []DescriptionLine
	}{
		{"empty summary", "", nil},
		{"newline in summary", "two\nlines", nil},
		{"tab in summary", "tab\there", nil},
		{"tab in paragraph", "ok", []DescriptionLine{Paragraph("bad\ttab")}},
		{"empty paragraph", "ok", []DescriptionLine{Paragraph("  ")}},
		{"tab in verbatim", "ok", []DescriptionLine{Verbatim("\tcode")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDescription(tt.summary, tt.lines...)
			assert.ErrorIs(t, err, ErrControlDataInvalid)
		})
	}
}

func TestParseDescriptionBody(t *testing.T) {
	body := "A long paragraph\nthat continues here.\n\n  verbatim block\n  second line\nTail paragraph."
	d, err := ParseDescriptionBody("Summary", body)
	require.NoError(t, err)
	assert.Equal(t,
		"Summary\n A long paragraph that continues here.\n .\n  verbatim block\n  second line\n Tail paragraph.",
		d.String())

	d, err = ParseDescriptionBody("Only a summary", "")
	require.NoError(t, err)
	assert.Equal(t, "Only a summary", d.String())
}
