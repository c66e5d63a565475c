package logger

import "testing"

func TestNewBuildsAllLoggers(t *testing.T) {
	for _, level := range []string{"", "debug", " WARN "} {
		l := New(level)
		if l.App == nil || l.HTTP == nil || l.Feed == nil {
			t.Fatalf("New(%q) left a nil logger: %+v", level, l)
		}
	}
}

func TestInitForTests(t *testing.T) {
	l := InitForTests()
	l.App.Debugf("ledger %s hydrated", "c1")
	l.HTTP.Infof("noop")
	if l.Feed == nil {
		t.Fatalf("feed logger must not be nil")
	}
}
