package monitoring

import (
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetLogger(t *testing.T) {
	defer Setup("info")

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	Logf("tick %d", 1)
	Debugf("frame %s", "c00000000000")
	if len(got) != 2 || got[0] != "tick 1" || got[1] != "frame c00000000000" {
		t.Errorf("captured %q", got)
	}

	SetLogger(nil)
	Logf("dropped")
	if len(got) != 2 {
		t.Errorf("nil logger should discard, captured %q", got)
	}
}

func TestSetup(t *testing.T) {
	defer Setup("info")

	if err := Setup("debug"); err != nil {
		t.Fatalf("Setup(debug) error = %v", err)
	}
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", logrus.GetLevel())
	}
	if err := Setup("loud"); err == nil {
		t.Error("Setup(loud) should fail")
	}
}
