package domain

import (
	"strings"
	"time"
)

// Block is an ordered group of commands formed by the segmentation policy.
// The command slice is never exposed directly, so a Block can be handed to
// several consumers without copying.
type Block struct {
	// Seq is the 1-based position of the block within its connection.
	Seq uint64

	// Opened is the time the first command of the block arrived.
	Opened time.Time

	commands []Command
}

// NewBlock creates a block that owns a private copy of cmds.
func NewBlock(seq uint64, opened time.Time, cmds []Command) Block {
	owned := make([]Command, len(cmds))
	copy(owned, cmds)
	return Block{Seq: seq, Opened: opened, commands: owned}
}

// Len returns the number of commands in the block.
func (b Block) Len() int {
	return len(b.commands)
}

// Empty returns true if the block has no commands.
func (b Block) Empty() bool {
	return len(b.commands) == 0
}

// Commands returns a copy of the block's commands in insertion order.
func (b Block) Commands() []Command {
	out := make([]Command, len(b.commands))
	copy(out, b.commands)
	return out
}

// Values returns the rendering of every command in order.
func (b Block) Values() []string {
	out := make([]string, len(b.commands))
	for i, c := range b.commands {
		out[i] = c.String()
	}
	return out
}

// Join renders the block as a single line with sep between commands.
func (b Block) Join(sep string) string {
	return strings.Join(b.Values(), sep)
}
