// Package template parses replacement templates into an ordered node list.
//
// A template is plain text with embedded variable references of the form
// {{kind}} or {{kind:argument}} and an optional cursor marker. Names outside
// the built-in kind set are references into the user-defined variables table.
// Parsing is a single left-to-right pass that never fails: unterminated
// markers degrade to literal text, and user-defined references with no
// configured value render unchanged, so a typo stays visible in the expanded
// output instead of disappearing.
package template

import "strings"

// CursorMarker is the literal token that marks where the caret should land
// after expansion. A literal occurrence of this exact token is
// indistinguishable from a marker; only the first occurrence in a template
// is treated as the marker, the rest render as literal text.
const CursorMarker = "$|$"

// Kind identifies a variable kind. The set is closed: new kinds are added
// here and in the resolver, never registered at runtime.
type Kind int

const (
	KindDate Kind = iota
	KindTime
	KindDateTime
	KindClipboard
	KindEnv
	KindShell
	KindUUID
	KindRandom

	// KindCustom references a user-defined value from the config variables
	// table by dot-notation path (held in Arg). It is not a registrable
	// kind: any name outside the set above parses to KindCustom, and a
	// reference with no matching config value renders as literal text
	// (held in Text) so typos stay visible.
	KindCustom
)

var kindNames = map[string]Kind{
	"date":      KindDate,
	"time":      KindTime,
	"datetime":  KindDateTime,
	"clipboard": KindClipboard,
	"env":       KindEnv,
	"shell":     KindShell,
	"uuid":      KindUUID,
	"random":    KindRandom,
}

// String returns the kind's template name.
func (k Kind) String() string {
	if k == KindCustom {
		return "custom"
	}
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// NodeType discriminates template nodes.
type NodeType int

const (
	// NodeLiteral is a run of plain text.
	NodeLiteral NodeType = iota
	// NodeVariable is a variable reference resolved at expansion time.
	NodeVariable
	// NodeCursor marks the post-expansion caret position.
	NodeCursor
)

// Node is one element of a parsed template.
type Node struct {
	Type NodeType
	// Text holds the literal text for NodeLiteral nodes and the original
	// token for KindCustom variables so an unresolved reference can render
	// unchanged.
	Text string
	// Kind and Arg describe NodeVariable nodes. Arg is the raw text after
	// the first ':' inside the braces, empty when absent.
	Kind Kind
	Arg  string
}

// Template is an ordered sequence of nodes parsed from a replacement string.
type Template struct {
	Nodes []Node
}

// HasCursor reports whether the template contains a cursor marker.
func (t Template) HasCursor() bool {
	for _, n := range t.Nodes {
		if n.Type == NodeCursor {
			return true
		}
	}
	return false
}

// Parse parses a replacement string. It never returns an error; malformed
// input produces extra literal nodes.
func Parse(s string) Template {
	var t Template
	sawCursor := false

	appendLiteral := func(text string) {
		if text == "" {
			return
		}
		// Coalesce adjacent literals so fail-open paths don't fragment.
		if n := len(t.Nodes); n > 0 && t.Nodes[n-1].Type == NodeLiteral {
			t.Nodes[n-1].Text += text
			return
		}
		t.Nodes = append(t.Nodes, Node{Type: NodeLiteral, Text: text})
	}

	appendCursor := func(original string) {
		if sawCursor {
			appendLiteral(original)
			return
		}
		sawCursor = true
		t.Nodes = append(t.Nodes, Node{Type: NodeCursor})
	}

	for len(s) > 0 {
		brace := strings.Index(s, "{{")
		marker := strings.Index(s, CursorMarker)

		switch {
		case brace < 0 && marker < 0:
			appendLiteral(s)
			return t

		case marker >= 0 && (brace < 0 || marker < brace):
			appendLiteral(s[:marker])
			appendCursor(CursorMarker)
			s = s[marker+len(CursorMarker):]

		default:
			appendLiteral(s[:brace])
			rest := s[brace:]
			end := strings.Index(rest, "}}")
			if end < 0 {
				// Unterminated marker: the rest is literal.
				appendLiteral(rest)
				return t
			}
			inner := rest[2:end]
			s = rest[end+2:]

			name, arg := inner, ""
			if i := strings.Index(inner, ":"); i >= 0 {
				name, arg = inner[:i], inner[i+1:]
			}
			name = strings.TrimSpace(name)

			if name == "cursor" || name == "|" {
				appendCursor(rest[:end+2])
				continue
			}
			kind, ok := kindNames[name]
			if !ok {
				// Not a built-in kind: a user-defined variable reference.
				// The whole inner text is the lookup path and the original
				// token is kept for the literal fallback on a miss.
				t.Nodes = append(t.Nodes, Node{
					Type: NodeVariable,
					Kind: KindCustom,
					Text: rest[:end+2],
					Arg:  strings.TrimSpace(inner),
				})
				continue
			}
			t.Nodes = append(t.Nodes, Node{Type: NodeVariable, Kind: kind, Arg: arg})
		}
	}
	return t
}
