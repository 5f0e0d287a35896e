// Package match implements trigger lookup and the incremental matching
// state machine that watches the keystroke stream.
package match

import (
	"unicode"

	"expandd/internal/config"
)

// Candidate is one snippet eligible to fire for a trigger, carrying the
// fields the engine needs to plan an expansion.
type Candidate struct {
	// Order is the snippet's position in the config file. It breaks ties
	// between triggers of equal length.
	Order int

	Trigger       string
	Replace       string
	Label         string
	PropagateCase bool
	WordBoundary  bool
	CursorMarker  bool
}

// trieNode is a node in the reversed-trigger trie. Walking from the root
// along the most recent keystroke first, every terminal node passed is a
// complete trigger ending at the current position.
type trieNode struct {
	children   map[rune]*trieNode
	candidates []Candidate // non-empty only at terminal nodes
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[rune]*trieNode)}
}

// Index is an immutable snapshot of all enabled triggers. The engine swaps
// a fresh Index in on every successful config reload; in-flight lookups on
// the old snapshot stay valid.
type Index struct {
	root          *trieNode
	version       uint64
	count         int
	maxTriggerLen int // in runes
}

// NewIndex builds an index from the snippet list. Disabled snippets and
// snippets with empty triggers are skipped. The version tags the snapshot
// so state observers can tell reloads apart.
func NewIndex(snippets []config.Snippet, version uint64) *Index {
	idx := &Index{
		root:    newTrieNode(),
		version: version,
	}

	for i := range snippets {
		sn := &snippets[i]
		if sn.Trigger == "" || !sn.IsEnabled() {
			continue
		}

		runes := []rune(sn.Trigger)
		if len(runes) > idx.maxTriggerLen {
			idx.maxTriggerLen = len(runes)
		}

		// Edges are case-folded so a single walk serves both exact and
		// case-insensitive triggers; exactness is re-checked at terminals.
		node := idx.root
		for j := len(runes) - 1; j >= 0; j-- {
			r := unicode.ToLower(runes[j])
			child, ok := node.children[r]
			if !ok {
				child = newTrieNode()
				node.children[r] = child
			}
			node = child
		}
		node.candidates = append(node.candidates, Candidate{
			Order:         i,
			Trigger:       sn.Trigger,
			Replace:       sn.Replace,
			Label:         sn.Label,
			PropagateCase: sn.PropagateCase,
			WordBoundary:  sn.WordBoundary,
			CursorMarker:  sn.CursorMarker,
		})
	}

	return idx
}

// Version returns the snapshot version.
func (idx *Index) Version() uint64 { return idx.version }

// Len returns the number of indexed triggers.
func (idx *Index) Len() int {
	return countTriggers(idx.root)
}

func countTriggers(n *trieNode) int {
	total := len(n.candidates)
	for _, c := range n.children {
		total += countTriggers(c)
	}
	return total
}

// MaxTriggerLen returns the longest indexed trigger length in runes.
func (idx *Index) MaxTriggerLen() int { return idx.maxTriggerLen }

// Hit is a trigger found ending at the current buffer position, paired
// with its length in runes.
type Hit struct {
	Candidate Candidate
	Len       int
}

// Lookup returns every trigger ending at the last rune of buf, best first:
// longest trigger wins, and among equal-length triggers the
// earliest-declared snippet wins. Returning the full ranked list lets the
// caller skip hits whose word-boundary requirement fails and fall back to
// the next best.
//
// buf holds recent keystrokes oldest first. Matching is exact for plain
// snippets. Case-propagating snippets match case-insensitively, since the
// typed capitalization is itself the input to propagation.
func (idx *Index) Lookup(buf []rune) []Hit {
	var hits []Hit

	node := idx.root
	for depth := 1; depth <= len(buf) && depth <= idx.maxTriggerLen; depth++ {
		r := unicode.ToLower(buf[len(buf)-depth])
		child, ok := node.children[r]
		if !ok {
			break
		}
		node = child
		for _, cand := range node.candidates {
			if !cand.PropagateCase && !exactSuffix(buf, cand.Trigger) {
				continue
			}
			hits = append(hits, Hit{Candidate: cand, Len: depth})
		}
	}

	// The walk visits shallow nodes first; reverse the depth groups so the
	// longest triggers come first while declaration order within a depth
	// is preserved.
	ranked := make([]Hit, 0, len(hits))
	for i := len(hits) - 1; i >= 0; {
		j := i
		for j >= 0 && hits[j].Len == hits[i].Len {
			j--
		}
		ranked = append(ranked, hits[j+1:i+1]...)
		i = j
	}
	return ranked
}

func exactSuffix(buf []rune, trigger string) bool {
	tr := []rune(trigger)
	if len(buf) < len(tr) {
		return false
	}
	tail := buf[len(buf)-len(tr):]
	for i, r := range tr {
		if tail[i] != r {
			return false
		}
	}
	return true
}
