// Package ansi provides an incremental escape-sequence tokenizer shared by
// the output forwarder, the prompt tail, and the listing pipeline. It is
// deliberately resumable: a sequence split across two PTY reads classifies
// the same as one delivered whole.
package ansi

import (
	runewidth "github.com/mattn/go-runewidth"
)

// State is the tokenizer position within an escape sequence.
type State int

const (
	// StateText means the next byte is plain output.
	StateText State = iota
	// StateEscape means an ESC was seen and the introducer is pending.
	StateEscape
	// StateCSI is inside a Control Sequence Introducer (ESC '[').
	StateCSI
	// StateOSC is inside an Operating System Command (ESC ']').
	StateOSC
	// StateOSCEscape is inside an OSC after a lone ESC (ST is ESC '\').
	StateOSCEscape
	// StateCharset follows a charset-select introducer (ESC '(' etc.)
	// and consumes exactly one designation byte.
	StateCharset
)

// Class is the tokenizer's verdict for a single byte.
type Class int

const (
	// ClassText bytes belong to the visible stream (printables and
	// ordinary control characters such as CR, LF, TAB, BS).
	ClassText Class = iota
	// ClassSequence bytes belong to an escape sequence.
	ClassSequence
)

const (
	esc = 0x1b
	bel = 0x07
)

// Tokenizer walks a byte stream one byte at a time. The zero value is
// ready to use and starts in StateText.
type Tokenizer struct {
	state State
}

// State reports the current position; StateText means the next byte, if
// printable, is genuine output and safe to decorate around.
func (t *Tokenizer) State() State { return t.state }

// Reset drops any partially consumed sequence.
func (t *Tokenizer) Reset() { t.state = StateText }

// Step consumes one byte and classifies it.
func (t *Tokenizer) Step(b byte) Class {
	switch t.state {
	case StateText:
		if b == esc {
			t.state = StateEscape
			return ClassSequence
		}
		return ClassText

	case StateEscape:
		switch b {
		case '[':
			t.state = StateCSI
		case ']':
			t.state = StateOSC
		case '(', ')', '*', '+':
			t.state = StateCharset
		case esc:
			// ESC ESC: stay armed on the second ESC.
		default:
			// Two-byte sequence (ESC c, ESC 7, ESC =, ...): the
			// introducer byte completes it.
			t.state = StateText
		}
		return ClassSequence

	case StateCSI:
		// Parameter and intermediate bytes are 0x20..0x3f; a final byte
		// in 0x40..0x7e terminates the sequence.
		if b >= 0x40 && b <= 0x7e {
			t.state = StateText
		}
		return ClassSequence

	case StateOSC:
		switch b {
		case bel:
			t.state = StateText
		case esc:
			t.state = StateOSCEscape
		}
		return ClassSequence

	case StateOSCEscape:
		if b == '\\' {
			t.state = StateText
		} else if b != esc {
			// Not a string terminator after all; back into the OSC body.
			t.state = StateOSC
		}
		return ClassSequence

	case StateCharset:
		t.state = StateText
		return ClassSequence
	}
	return ClassText
}

// Strip returns s with every escape sequence removed, keeping printable
// text and plain control characters.
func Strip(s string) string {
	var t Tokenizer
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if t.Step(s[i]) == ClassText {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// VisibleWidth is the display width of s once sequences are stripped.
func VisibleWidth(s string) int {
	return runewidth.StringWidth(Strip(s))
}
