// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/taskforceai/taskforceai-go/internal/pool"
)

// maxEventSize bounds a single line of the event stream.
const maxEventSize = 1 << 20

// Decoder decodes server-sent events from an io.Reader.
type Decoder struct {
	scanner *bufio.Scanner
	lastID  string
}

// NewDecoder creates a new SSE decoder.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	return &Decoder{scanner: scanner}
}

// LastEventID returns the most recent id field seen on the stream.
func (d *Decoder) LastEventID() string {
	return d.lastID
}

// Decode decodes the next event from the stream.
//
// A blank line dispatches the pending event. Comment lines are skipped. A
// line holding bare JSON is taken as data, and is dispatched at once when no
// other data is pending. An event still pending at EOF is returned before io.EOF.
func (d *Decoder) Decode() (*Event, error) {
	event := &Event{}
	data := pool.Buffers.Get()
	defer pool.Buffers.Put(data)
	hasData := false

	dispatch := func() *Event {
		event.Data = data.String()
		if event.ID == "" {
			event.ID = d.lastID
		}
		return event
	}

	for d.scanner.Scan() {
		line := strings.TrimSuffix(d.scanner.Text(), "\r")

		// Empty line indicates end of event
		if line == "" {
			if hasData || event.Type != "" {
				return dispatch(), nil
			}
			continue
		}

		// Comments (lines starting with :) are ignored
		if strings.HasPrefix(line, ":") {
			continue
		}

		var field, value string
		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "{") {
			// Bare JSON carries colons of its own. On its own it is a complete event.
			if !hasData {
				data.WriteString(trimmed)
				return dispatch(), nil
			}
			field, value = "data", trimmed
		} else {
			var found bool
			field, value, found = strings.Cut(line, ":")
			if !found {
				continue
			}
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "event":
			event.Type = strings.TrimSpace(value)
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				d.lastID = strings.TrimSpace(value)
				event.ID = d.lastID
			}
		case "retry":
			if ms, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && ms >= 0 {
				event.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := d.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event stream: %w", err)
	}

	// EOF reached
	if hasData || event.Type != "" {
		return dispatch(), nil
	}

	return nil, io.EOF
}
