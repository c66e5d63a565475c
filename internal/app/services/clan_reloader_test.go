package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/faeln1/clan-notifier/internal/domain/clan"
)

type gatedFetcher struct {
	mu    sync.Mutex
	calls int
	gates map[int]chan struct{}
}

func (f *gatedFetcher) FetchClan(ctx context.Context, clanID string) (*clan.Clan, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	gate := f.gates[call]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return &clan.Clan{ID: clanID, MemberCount: call}, nil
}

func TestClanReloaderLatestRequestWins(t *testing.T) {
	first := make(chan struct{})
	fetcher := &gatedFetcher{gates: map[int]chan struct{}{1: first}}
	r := NewClanReloader("c1", fetcher, time.Second, nil)

	type result struct {
		applied bool
		err     error
	}
	slow := make(chan result, 1)
	go func() {
		_, applied, err := r.Reload(context.Background())
		slow <- result{applied, err}
	}()

	// wait until the first request is in flight
	deadline := time.After(5 * time.Second)
	for {
		fetcher.mu.Lock()
		calls := fetcher.calls
		fetcher.mu.Unlock()
		if calls == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("first reload never started")
		case <-time.After(time.Millisecond):
		}
	}

	_, applied, err := r.Reload(context.Background())
	if err != nil || !applied {
		t.Fatalf("newest reload should apply, applied=%v err=%v", applied, err)
	}
	close(first)
	res := <-slow
	if res.err != nil || res.applied {
		t.Fatalf("stale response must be discarded, got %+v", res)
	}

	current, ok := r.Current()
	if !ok || current.MemberCount != 2 {
		t.Fatalf("expected snapshot from second request, got %+v", current)
	}
	if r.Stale() != 1 {
		t.Fatalf("expected 1 stale response, got %d", r.Stale())
	}
}

func TestHTTPClanFetcher(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/clans/c1":
			_ = json.NewEncoder(w).Encode(clan.Clan{Name: "Falcons", HeadID: "u9", CreatedAt: created, MemberCount: 4})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := NewHTTPClanFetcher(srv.URL+"/", "tok", srv.Client())
	got, err := f.FetchClan(context.Background(), "c1")
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if got.ID != "c1" || got.HeadID != "u9" || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected clan %+v", got)
	}
	if _, err := f.FetchClan(context.Background(), "missing"); !errors.Is(err, ErrClanNotFound) {
		t.Fatalf("expected ErrClanNotFound, got %v", err)
	}

	unconfigured := NewHTTPClanFetcher("", "", nil)
	if _, err := unconfigured.FetchClan(context.Background(), "c1"); !errors.Is(err, ErrClanAPIUnavailable) {
		t.Fatalf("expected ErrClanAPIUnavailable, got %v", err)
	}
}
