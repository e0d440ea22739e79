package deb

import (
	"strings"
	"unicode"
)

// DefaultWrapWidth is the column, leading space included, at which
// paragraph text is wrapped.
const DefaultWrapWidth = 80

type lineKind int

const (
	lineParagraph lineKind = iota
	lineVerbatim
	lineBlank
)

// DescriptionLine is one block of the extended description.
type DescriptionLine struct {
	kind lineKind
	text string
}

// Paragraph is text that may be reflowed. It renders with a one space prefix.
func Paragraph(text string) DescriptionLine {
	return DescriptionLine{kind: lineParagraph, text: text}
}

// Verbatim is text displayed as is. Each of its lines renders with a two
// space prefix and is never reflowed.
func Verbatim(text string) DescriptionLine {
	return DescriptionLine{kind: lineVerbatim, text: text}
}

// Blank separates paragraphs. It renders as " .".
func Blank() DescriptionLine {
	return DescriptionLine{kind: lineBlank}
}

// Description is the synopsis and extended description of a package.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#s-f-description
type Description struct {
	summary string
	lines   []DescriptionLine
}

// NewDescription validates summary and the extended description lines.
func NewDescription(summary string, lines ...DescriptionLine) (Description, error) {
	if strings.TrimSpace(summary) == "" {
		return Description{}, invalid(FieldDescription, summary, "summary is empty")
	}
	if strings.IndexFunc(summary, unicode.IsControl) >= 0 {
		return Description{}, invalid(FieldDescription, summary, "summary must be a single line without tabs")
	}
	for _, l := range lines {
		switch l.kind {
		case lineParagraph:
			if strings.TrimSpace(l.text) == "" {
				return Description{}, invalid(FieldDescription, l.text, "paragraph is empty")
			}
			if strings.ContainsAny(l.text, "\t\r") {
				return Description{}, invalid(FieldDescription, l.text, "paragraph must not contain tabs")
			}
		case lineVerbatim:
			if strings.ContainsAny(l.text, "\t\r") {
				return Description{}, invalid(FieldDescription, l.text, "verbatim text must not contain tabs")
			}
		}
	}
	return Description{summary: strings.TrimSpace(summary), lines: append([]DescriptionLine(nil), lines...)}, nil
}

// ParseDescriptionBody builds a description from plain text. Consecutive
// unindented lines form a paragraph, indented lines are verbatim with one
// level of indentation removed, and empty lines are blank separators.
func ParseDescriptionBody(summary, body string) (Description, error) {
	var lines []DescriptionLine
	var para []string
	flush := func() {
		if len(para) > 0 {
			lines = append(lines, Paragraph(strings.Join(para, " ")))
			para = nil
		}
	}
	for _, raw := range strings.Split(strings.Trim(body, "\n"), "\n") {
		switch {
		case strings.TrimSpace(raw) == "":
			flush()
			lines = append(lines, Blank())
		case raw[0] == ' ':
			flush()
			lines = append(lines, Verbatim(strings.TrimPrefix(strings.TrimPrefix(raw, " "), " ")))
		default:
			para = append(para, strings.TrimSpace(raw))
		}
	}
	flush()
	if strings.TrimSpace(body) == "" {
		lines = nil
	}
	return NewDescription(summary, lines...)
}

// Summary returns the synopsis line.
func (d Description) Summary() string { return d.summary }

// Render formats the description as the value of the Description field:
// the summary, then one line per extended description line. Paragraphs are
// wrapped at width; a width of zero keeps each paragraph on one line.
func (d Description) Render(width int) string {
	var b strings.Builder
	b.WriteString(d.summary)
	for _, l := range d.lines {
		switch l.kind {
		case lineBlank:
			b.WriteString("\n .")
		case lineVerbatim:
			for _, v := range strings.Split(l.text, "\n") {
				if strings.TrimSpace(v) == "" {
					b.WriteString("\n .")
					continue
				}
				b.WriteString("\n  ")
				b.WriteString(strings.TrimRight(v, " "))
			}
		case lineParagraph:
			for _, w := range wrap(strings.Fields(l.text), width-1) {
				b.WriteString("\n ")
				b.WriteString(w)
			}
		}
	}
	return b.String()
}

func (d Description) String() string {
	return d.Render(DefaultWrapWidth)
}

// wrap greedily packs words into lines of at most width characters. A word
// longer than width gets a line of its own. A width below one disables wrapping.
func wrap(words []string, width int) []string {
	if width < 1 {
		return []string{strings.Join(words, " ")}
	}
	var lines []string
	var line strings.Builder
	for _, w := range words {
		if line.Len() > 0 && line.Len()+1+len(w) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(w)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
