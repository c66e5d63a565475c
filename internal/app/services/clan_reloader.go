package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faeln1/clan-notifier/internal/domain/clan"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var (
	ErrClanNotFound       = errors.New("clan not found")
	ErrClanAPIUnavailable = errors.New("clan api not configured")
)

const DefaultReloadTimeout = 10 * time.Second

// ClanFetcher loads the clan detail from the marketplace REST backend.
type ClanFetcher interface {
	FetchClan(ctx context.Context, clanID string) (*clan.Clan, error)
}

type httpClanFetcher struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewHTTPClanFetcher fetches GET {baseURL}/clans/{id}.
func NewHTTPClanFetcher(baseURL, token string, client *http.Client) ClanFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &httpClanFetcher{client: client, baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"), token: strings.TrimSpace(token)}
}

func (f *httpClanFetcher) FetchClan(ctx context.Context, clanID string) (*clan.Clan, error) {
	if f.baseURL == "" {
		return nil, ErrClanAPIUnavailable
	}
	target := f.baseURL + "/clans/" + url.PathEscape(clanID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch clan %s: %w", clanID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return nil, ErrClanNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch clan %s: status %d", clanID, resp.StatusCode)
	}

	var out clan.Clan
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode clan %s: %w", clanID, err)
	}
	if out.ID == "" {
		out.ID = clanID
	}
	return &out, nil
}

// ClanReloader keeps the latest clan snapshot. Every reload takes a new
// generation; a response is applied only if no newer reload was requested
// meanwhile, so the latest request wins regardless of arrival order.
type ClanReloader struct {
	clanID  string
	fetcher ClanFetcher
	timeout time.Duration
	log     waLog.Logger

	generation atomic.Uint64
	stale      atomic.Uint64
	inflight   sync.WaitGroup

	mu      sync.RWMutex
	current *clan.Clan
}

func NewClanReloader(clanID string, fetcher ClanFetcher, timeout time.Duration, log waLog.Logger) *ClanReloader {
	if timeout <= 0 {
		timeout = DefaultReloadTimeout
	}
	if log == nil {
		log = waLog.Noop
	}
	return &ClanReloader{clanID: clanID, fetcher: fetcher, timeout: timeout, log: log}
}

// Reload fetches the clan and reports whether the response was applied.
func (r *ClanReloader) Reload(ctx context.Context) (*clan.Clan, bool, error) {
	gen := r.generation.Add(1)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	fetched, err := r.fetcher.FetchClan(ctx, r.clanID)
	if err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation.Load() {
		r.stale.Add(1)
		r.log.Debugf("reload %d do clã %s descartado (geração atual %d)", gen, r.clanID, r.generation.Load())
		return fetched, false, nil
	}
	r.current = fetched
	return fetched, true, nil
}

// ReloadAsync triggers a reload without waiting for it. Errors are only logged.
func (r *ClanReloader) ReloadAsync(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		if _, _, err := r.Reload(ctx); err != nil {
			r.log.Warnf("falha ao recarregar clã %s: %v", r.clanID, err)
		}
	}()
}

// Wait blocks until every asynchronous reload has returned.
func (r *ClanReloader) Wait() {
	r.inflight.Wait()
}

// Current returns the last applied snapshot.
func (r *ClanReloader) Current() (clan.Clan, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return clan.Clan{ID: r.clanID}, false
	}
	return *r.current, true
}

// Stale returns how many responses were discarded because a newer reload existed.
func (r *ClanReloader) Stale() uint64 {
	return r.stale.Load()
}
