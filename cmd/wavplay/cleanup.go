// ABOUTME: Ordered release of playback resources on every exit path
// ABOUTME: Shared by the normal shutdown and the fatal error path
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
)

type namedCloser struct {
	name string
	c    io.Closer
}

// cleanup closes registered resources in reverse order, at most once
type cleanup struct {
	mu      sync.Mutex
	entries []namedCloser
	closed  bool
}

func (c *cleanup) add(name string, closer io.Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, namedCloser{name, closer})
}

// run closes everything registered so far. Later calls are no-ops.
func (c *cleanup) run() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	entries := c.entries
	c.entries = nil
	c.mu.Unlock()

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		if err := entries[i].c.Close(); err != nil {
			log.Printf("Error closing %s: %v", entries[i].name, err)
			errs = append(errs, fmt.Errorf("%s: %w", entries[i].name, err))
		}
	}
	return errors.Join(errs...)
}
