// Package inject plans and performs synthetic input: erasing a typed
// trigger and typing the replacement in its place.
package inject

// OpKind identifies a synthetic input operation.
type OpKind int

const (
	// OpDeleteBackward erases Count characters before the caret.
	OpDeleteBackward OpKind = iota
	// OpTypeText types Text at the caret.
	OpTypeText
	// OpMoveCaretLeft moves the caret Count positions left.
	OpMoveCaretLeft
)

func (k OpKind) String() string {
	switch k {
	case OpDeleteBackward:
		return "delete_backward"
	case OpTypeText:
		return "type_text"
	case OpMoveCaretLeft:
		return "move_caret_left"
	default:
		return "unknown"
	}
}

// Op is one synthetic input operation.
type Op struct {
	Kind  OpKind
	Count int
	Text  string
}

// Plan converts an expansion into the ordered operation list: erase the
// trigger, type the replacement, then reposition the caret.
//
// triggerLen is the typed trigger's length in characters. cursorOffset is
// the caret's final distance from the end of text in runes, or -1 to leave
// the caret after the typed text. Zero-count and empty-text operations are
// omitted, so expanding an empty replacement plans only the deletion.
func Plan(triggerLen int, text string, cursorOffset int) []Op {
	ops := make([]Op, 0, 3)
	if triggerLen > 0 {
		ops = append(ops, Op{Kind: OpDeleteBackward, Count: triggerLen})
	}
	if text != "" {
		ops = append(ops, Op{Kind: OpTypeText, Text: text})
	}
	if cursorOffset > 0 {
		ops = append(ops, Op{Kind: OpMoveCaretLeft, Count: cursorOffset})
	}
	return ops
}
