package server

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewClientAssignsUniqueIDs(t *testing.T) {
	a, b := NewClient(nil), NewClient(nil)

	if a.ID == uuid.Nil || b.ID == uuid.Nil {
		t.Error("Expected non-zero connection IDs")
	}
	if a.ID == b.ID {
		t.Errorf("Expected distinct IDs, got %s twice", a.ID)
	}
}

func TestSendAfterCloseDoesNotPanic(t *testing.T) {
	c := NewClient(nil)
	if err := c.Send("order", map[string]any{"index": 0}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	_ = c.Close()
	_ = c.Close() // повторное закрытие безопасно

	if err := c.Send("delta", nil); err != nil {
		t.Errorf("Expected late send to be swallowed, got %v", err)
	}
}

func TestSetSinkSwapsOwner(t *testing.T) {
	c := NewClient(nil)
	if c.currentSink() != nil {
		t.Error("Expected no owner before adoption")
	}

	first := make(chan Event, 1)
	second := make(chan Event, 1)
	c.SetSink(first)
	c.SetSink(second)

	if got := c.currentSink(); got != (chan<- Event)(second) {
		t.Error("Expected the latest sink to own the stream")
	}
}
