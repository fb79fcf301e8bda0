package color

import (
	"strings"
	"testing"

	"github.com/studydesk/storedoctor/pkg/model"
)

func restore(t *testing.T) {
	origEnabled := state.enabled.Load()
	origOverridden := state.overridden.Load()
	t.Cleanup(func() {
		state.enabled.Store(origEnabled)
		state.overridden.Store(origOverridden)
	})
}

func TestEnableDisable(t *testing.T) {
	restore(t)

	Enable()
	if !Enabled() {
		t.Error("expected colors to be enabled after Enable()")
	}

	Disable()
	if Enabled() {
		t.Error("expected colors to be disabled after Disable()")
	}
}

func TestSeverity(t *testing.T) {
	restore(t)
	Enable()

	tests := []struct {
		sev  model.Severity
		code string
	}{
		{model.SeverityInfo, Cyan},
		{model.SeverityFixed, Green},
		{model.SeverityWarning, Yellow},
		{model.SeverityError, Red},
	}
	for _, tt := range tests {
		got := Severity(tt.sev, "x")
		if !strings.HasPrefix(got, tt.code) || !strings.HasSuffix(got, Reset) {
			t.Errorf("Severity(%s) = %q", tt.sev, got)
		}
	}
	if got := Severity("other", "x"); got != "x" {
		t.Errorf("unknown severity should be plain, got %q", got)
	}
}

func TestScore(t *testing.T) {
	restore(t)
	Enable()

	if got := Score(100, "100"); !strings.HasPrefix(got, Green) {
		t.Errorf("100 should be green: %q", got)
	}
	if got := Score(76, "76"); !strings.HasPrefix(got, Yellow) {
		t.Errorf("76 should be yellow: %q", got)
	}
	if got := Score(10, "10"); !strings.HasPrefix(got, Red) {
		t.Errorf("10 should be red: %q", got)
	}
}

func TestDisabledIsPlain(t *testing.T) {
	restore(t)
	Disable()

	for _, fn := range []func(string) string{Redf, Greenf, Yellowf, Cyanf, Header, Dim} {
		if got := fn("plain"); got != "plain" {
			t.Errorf("expected plain text, got %q", got)
		}
	}
	if got := Severity(model.SeverityError, "e"); got != "e" {
		t.Errorf("expected plain text, got %q", got)
	}
}

func TestInitNoColorFlag(t *testing.T) {
	restore(t)
	Enable()
	Init(true)
	if Enabled() {
		t.Error("--no-color should disable colors")
	}
}
