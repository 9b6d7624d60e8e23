package authflow

import (
	"regexp"
	"strings"
	"unicode"
)

// CodeLength is the number of single-digit slots in a code input.
const CodeLength = 6

var sixDigits = regexp.MustCompile(`^\d{6}$`)

// CodeInput is a row of single-digit slots with a focus cursor.
type CodeInput struct {
	slots [CodeLength]string
	focus int
}

// Type writes v into slot i and advances focus. Anything but a single digit
// or the empty string is ignored. It reports whether the code is now complete
// because the last slot was filled.
func (c *CodeInput) Type(i int, v string) bool {
	if i < 0 || i >= CodeLength {
		return false
	}
	if v != "" && (len(v) != 1 || v[0] < '0' || v[0] > '9') {
		return false
	}
	c.slots[i] = v
	if v == "" {
		return false
	}
	if i < CodeLength-1 {
		c.focus = i + 1
		return false
	}
	c.focus = i
	return c.Full()
}

// Backspace clears slot i, or moves back and clears the previous slot when i
// is already empty.
func (c *CodeInput) Backspace(i int) {
	if i < 0 || i >= CodeLength {
		return
	}
	if c.slots[i] == "" && i > 0 {
		c.focus = i - 1
		c.slots[i-1] = ""
		return
	}
	c.slots[i] = ""
	c.focus = i
}

// Paste fills every slot from s after removing the runes drop matches. It
// reports false and leaves the input untouched unless exactly six digits remain.
func (c *CodeInput) Paste(s string, drop func(rune) bool) bool {
	cleaned := strings.Map(func(r rune) rune {
		if drop(r) {
			return -1
		}
		return r
	}, s)
	if !sixDigits.MatchString(cleaned) {
		return false
	}
	for i := range c.slots {
		c.slots[i] = cleaned[i : i+1]
	}
	c.focus = CodeLength - 1
	return true
}

func (c *CodeInput) Clear() {
	c.slots = [CodeLength]string{}
	c.focus = 0
}

func (c *CodeInput) Full() bool {
	for _, s := range c.slots {
		if s == "" {
			return false
		}
	}
	return true
}

func (c *CodeInput) Value() string { return strings.Join(c.slots[:], "") }

func (c *CodeInput) Focus() int { return c.focus }

func (c *CodeInput) Slots() [CodeLength]string { return c.slots }

// isSeparator matches the dashes and whitespace people type or paste
// between digit groups of an emailed code.
func isSeparator(r rune) bool { return r == '-' || unicode.IsSpace(r) }
