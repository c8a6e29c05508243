// ABOUTME: Tests for ordered resource release
// ABOUTME: Checks close order, error joining and single execution
package main

import (
	"errors"
	"strings"
	"testing"
)

type recordingCloser struct {
	name  string
	order *[]string
	err   error
}

func (r *recordingCloser) Close() error {
	*r.order = append(*r.order, r.name)
	return r.err
}

func TestCleanupReverseOrder(t *testing.T) {
	var order []string
	var c cleanup
	c.add("output", &recordingCloser{name: "output", order: &order})
	c.add("player", &recordingCloser{name: "player", order: &order})

	if err := c.run(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := strings.Join(order, ","); got != "player,output" {
		t.Errorf("close order = %s, want player,output", got)
	}
}

func TestCleanupRunsOnce(t *testing.T) {
	var order []string
	var c cleanup
	c.add("output", &recordingCloser{name: "output", order: &order})

	// the fatal path runs first, then the deferred shutdown
	_ = c.run()
	_ = c.run()
	if len(order) != 1 {
		t.Errorf("closed %d times, want 1", len(order))
	}
}

func TestCleanupContinuesPastErrors(t *testing.T) {
	var order []string
	busy := errors.New("device busy")
	var c cleanup
	c.add("output", &recordingCloser{name: "output", order: &order})
	c.add("player", &recordingCloser{name: "player", order: &order, err: busy})

	err := c.run()
	if !errors.Is(err, busy) {
		t.Fatalf("Expected device busy, got %v", err)
	}
	if !strings.Contains(err.Error(), "player") {
		t.Errorf("error should name the resource: %v", err)
	}
	if len(order) != 2 {
		t.Errorf("output not closed after player failed: %v", order)
	}
}

func TestCleanupBeforeAnyResource(t *testing.T) {
	// fatal may fire before the output exists
	var c cleanup
	if err := c.run(); err != nil {
		t.Errorf("empty cleanup returned %v", err)
	}
}
