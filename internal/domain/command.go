package domain

import "strings"

// Block markers open and close a dynamic block. They are never commands.
const (
	BlockOpen  = "{"
	BlockClose = "}"
)

// Command is one parsed line of input.
type Command struct {
	value string
}

// ParseCommand builds a Command from a single line of text.
// A trailing carriage return is stripped so CRLF input renders the same as LF input.
func ParseCommand(line string) Command {
	return Command{value: strings.TrimSuffix(line, "\r")}
}

// String returns the canonical rendering of the command.
func (c Command) String() string {
	return c.value
}

// IsMarker reports whether the rendering is a block marker.
func (c Command) IsMarker() bool {
	return c.value == BlockOpen || c.value == BlockClose
}

// Empty reports whether the command carries no text.
func (c Command) Empty() bool {
	return c.value == ""
}
