// Package color colors terminal output by repair severity.
// It respects the NO_COLOR environment variable (https://no-color.org/).
package color

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/studydesk/storedoctor/pkg/model"
)

var state struct {
	once       sync.Once
	enabled    atomic.Bool
	overridden atomic.Bool
}

// Init decides from the environment and the --no-color flag whether to color
// output. Only the first call inspects the environment.
func Init(noColorFlag bool) {
	state.once.Do(func() {
		if state.overridden.Load() {
			return
		}
		enabled := true
		if _, exists := os.LookupEnv("NO_COLOR"); exists {
			enabled = false
		}
		if os.Getenv("TERM") == "dumb" {
			enabled = false
		}
		if noColorFlag {
			enabled = false
		}
		state.enabled.Store(enabled)
	})
	if noColorFlag {
		Disable()
	}
}

// Enabled returns true if color output is enabled.
func Enabled() bool {
	Init(false)
	return state.enabled.Load()
}

// Disable turns off color output.
func Disable() {
	state.overridden.Store(true)
	state.enabled.Store(false)
}

// Enable turns on color output.
func Enable() {
	state.overridden.Store(true)
	state.enabled.Store(true)
}

// ANSI color codes
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	DimCode = "\033[2m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Cyan    = "\033[36m"
)

func wrap(code, s string) string {
	if !Enabled() {
		return s
	}
	return code + s + Reset
}

func Redf(s string) string    { return wrap(Red, s) }
func Greenf(s string) string  { return wrap(Green, s) }
func Yellowf(s string) string { return wrap(Yellow, s) }
func Cyanf(s string) string   { return wrap(Cyan, s) }

// Header formats a header in bold.
func Header(s string) string { return wrap(Bold, s) }

// Dim formats secondary information.
func Dim(s string) string { return wrap(DimCode, s) }

// Severity colors s by sev: info cyan, fixed green, warning yellow, error red.
func Severity(sev model.Severity, s string) string {
	switch sev {
	case model.SeverityInfo:
		return Cyanf(s)
	case model.SeverityFixed:
		return Greenf(s)
	case model.SeverityWarning:
		return Yellowf(s)
	case model.SeverityError:
		return Redf(s)
	}
	return s
}

// Score colors a health score: green at 90 and above, yellow from 60, red
// below.
func Score(score int, s string) string {
	switch {
	case score >= 90:
		return Greenf(s)
	case score >= 60:
		return Yellowf(s)
	}
	return Redf(s)
}
