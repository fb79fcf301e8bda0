// Package progress reports how far a multi-step operation has come.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Callback receives one update per finished step.
type Callback func(step string, done, total int)

// Noop discards updates.
func Noop(step string, done, total int) {}

const barWidth = 24

// Terminal draws a single-line progress bar, redrawing it in place.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	lastLen int
	enabled bool
}

// NewTerminal returns a bar writing to w. A disabled bar prints nothing.
func NewTerminal(w io.Writer, label string, enabled bool) *Terminal {
	return &Terminal{w: w, label: label, enabled: enabled}
}

// Callback adapts the bar to a Callback.
func (t *Terminal) Callback() Callback {
	return t.Update
}

// Update redraws the bar for done of total steps.
func (t *Terminal) Update(step string, done, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	line := Render(t.label, step, done, total)
	pad := ""
	if n := t.lastLen - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprint(t.w, "\r"+line+pad)
	t.lastLen = len(line)
}

// Done clears the bar so following output starts on a clean line.
func (t *Terminal) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || t.lastLen == 0 {
		return
	}
	fmt.Fprint(t.w, "\r"+strings.Repeat(" ", t.lastLen)+"\r")
	t.lastLen = 0
}

// Render formats one bar line, e.g. "sweep [======      ] 2/8 structure".
func Render(label, step string, done, total int) string {
	if total <= 0 {
		total = 1
	}
	if done > total {
		done = total
	}
	filled := barWidth * done / total
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
	line := fmt.Sprintf("%s [%s] %d/%d", label, bar, done, total)
	if step != "" {
		line += " " + step
	}
	return line
}
