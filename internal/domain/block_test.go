package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestNewBlock_OwnsCommands(t *testing.T) {
	cmds := []Command{ParseCommand("a"), ParseCommand("b")}
	b := NewBlock(1, time.Now(), cmds)

	cmds[0] = ParseCommand("mutated")
	if got := b.Values(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Values() = %v after caller mutation", got)
	}

	out := b.Commands()
	out[1] = ParseCommand("mutated")
	if got := b.Join(", "); got != "a, b" {
		t.Errorf("Join() = %q after accessor mutation", got)
	}
}

func TestBlock_Empty(t *testing.T) {
	var b Block
	if !b.Empty() || b.Len() != 0 {
		t.Errorf("zero Block: Empty() = %v, Len() = %d", b.Empty(), b.Len())
	}
	if got := b.Join(", "); got != "" {
		t.Errorf("Join() = %q, want empty", got)
	}
}

func TestCommand_IsMarker(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"{", true},
		{"}", true},
		{"{\r", true},
		{"{ ", false},
		{"cmd", false},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.line).IsMarker(); got != tt.want {
			t.Errorf("ParseCommand(%q).IsMarker() = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestWorkerMetrics_Add(t *testing.T) {
	a := WorkerMetrics{Blocks: 2, Commands: 5, Failed: 1}
	b := WorkerMetrics{Blocks: 1, Commands: 3}

	got := a.Add(b)
	want := WorkerMetrics{Blocks: 3, Commands: 8, Failed: 1}
	if got != want {
		t.Errorf("Add() = %+v, want %+v", got, want)
	}
	if got.Succeeded() != 2 {
		t.Errorf("Succeeded() = %d, want 2", got.Succeeded())
	}
}
