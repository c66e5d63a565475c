package session

import (
	"context"
	"errors"
	"testing"

	"github.com/faeln1/clan-notifier/internal/domain/clan"
	"github.com/faeln1/clan-notifier/internal/domain/notification"
	waLog "go.mau.fi/whatsmeow/util/log"
)

type stubPipeline struct{}

func (stubPipeline) Process(ctx context.Context, batch []notification.Notification) []clan.Action {
	return nil
}
func (stubPipeline) ProcessedIDs() []string        { return nil }
func (stubPipeline) Prune(ctx context.Context) int { return 0 }
func (stubPipeline) Clan() (clan.Clan, bool)       { return clan.Clan{}, false }

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(waLog.Noop)

	sess, err := m.Create("c1", "u1")
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if sess.ID == "" {
		t.Fatalf("expected generated session id")
	}
	if _, err := m.Create("c1", "u1"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := m.Create("c1", "u2"); err != nil {
		t.Fatalf("another viewer of the same clan must be allowed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(done)
	}()
	if err := m.Attach("c1", "u1", stubPipeline{}, cancel, done); err != nil {
		t.Fatalf("attach error: %v", err)
	}
	if err := m.Attach("c9", "u1", stubPipeline{}, nil, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound attaching unknown session, got %v", err)
	}

	list := m.List()
	if len(list) != 2 || list[0].ViewerID != "u1" || list[1].ViewerID != "u2" {
		t.Fatalf("unexpected list order: %+v", list)
	}

	if err := m.Delete("c1", "u1"); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	select {
	case <-done:
	default:
		t.Fatalf("expected background work stopped after delete")
	}
	if _, ok := m.Get("c1", "u1"); ok {
		t.Fatalf("session should be gone")
	}
	if err := m.Delete("c1", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	m.CloseAll()
	if len(m.List()) != 0 {
		t.Fatalf("expected no sessions after CloseAll")
	}
}
