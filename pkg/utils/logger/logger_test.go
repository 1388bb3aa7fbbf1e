package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, InfoLevel)

	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.Error("failed", GetError(errors.New("boom")))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line should be filtered: %q", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Errorf("info line missing: %q", out)
	}
	if !strings.Contains(out, "boom") {
		t.Errorf("error field missing: %q", out)
	}
}

func TestReplaceDefaultAndSetLevel(t *testing.T) {
	old := Default()
	defer ReplaceDefault(old)

	var buf bytes.Buffer
	ReplaceDefault(New(&buf, InfoLevel))
	Debugf("before %s", "raise")
	SetLevel(DebugLevel)
	if GetLevel() != DebugLevel {
		t.Fatalf("level = %v, want debug", GetLevel())
	}
	Debugf("after %s", "raise")

	out := buf.String()
	if strings.Contains(out, "before raise") {
		t.Errorf("debug emitted before SetLevel: %q", out)
	}
	if !strings.Contains(out, "after raise") {
		t.Errorf("debug missing after SetLevel: %q", out)
	}

	ReplaceDefault(nil)
	if Default() == nil {
		t.Fatal("ReplaceDefault(nil) must keep the current logger")
	}
}

func TestRotateBySizeWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coapd.log")
	w := NewProductionRotateBySize(path)
	l := New(w, InfoLevel)
	l.Info("rotate", String("file", path))
	if err := l.l.Sync(); err != nil {
		t.Logf("sync: %v", err)
	}
}
