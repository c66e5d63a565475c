package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/faeln1/clan-notifier/internal/app/repositories"
	waLog "go.mau.fi/whatsmeow/util/log"
)

const (
	ledgerKeyPrefix      = "processedNotifications_"
	DefaultLedgerMaxAge  = 24 * time.Hour
	DefaultPruneInterval = 60 * time.Minute
)

// LedgerKey returns the storage key holding the processed ids of a clan.
func LedgerKey(clanID string) string {
	return ledgerKeyPrefix + strings.TrimSpace(clanID)
}

// Ledger is the per-clan set of notification ids already handled.
// The whole set is written back to the store on every change.
type Ledger struct {
	// persistMu orders snapshot+Put pairs so an older set never overwrites a newer one
	persistMu sync.Mutex
	mu        sync.Mutex
	clanID string
	store  repositories.KeyValueStore
	ids    map[string]struct{}
	maxAge time.Duration
	now    func() time.Time
	log    waLog.Logger
}

func NewLedger(clanID string, store repositories.KeyValueStore, log waLog.Logger) *Ledger {
	if log == nil {
		log = waLog.Noop
	}
	return &Ledger{
		clanID: clanID,
		store:  store,
		ids:    make(map[string]struct{}),
		maxAge: DefaultLedgerMaxAge,
		now:    time.Now,
		log:    log,
	}
}

// Hydrate loads the persisted set. A missing key yields an empty ledger; any
// other failure is logged and returned while the ledger stays usable.
func (l *Ledger) Hydrate(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	raw, err := l.store.Get(ctx, LedgerKey(l.clanID))
	if err != nil {
		if errors.Is(err, repositories.ErrKeyNotFound) {
			return nil
		}
		l.log.Warnf("ledger %s: falha ao carregar ids processados: %v", l.clanID, err)
		return err
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		l.log.Warnf("ledger %s: conteúdo persistido inválido, iniciando vazio: %v", l.clanID, err)
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			l.ids[id] = struct{}{}
		}
	}
	l.log.Debugf("ledger %s: %d id(s) carregados", l.clanID, len(l.ids))
	return nil
}

func (l *Ledger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[id]
	return ok
}

// MarkProcessed records id and persists the set. Marking an id twice is a no-op.
func (l *Ledger) MarkProcessed(ctx context.Context, id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	l.mu.Lock()
	if _, ok := l.ids[id]; ok {
		l.mu.Unlock()
		return
	}
	l.ids[id] = struct{}{}
	snapshot := l.sortedLocked()
	l.mu.Unlock()

	l.persist(ctx, snapshot)
}

// Prune drops ids whose embedded timestamp is older than the max age and
// returns how many were removed. Ids without a parsable timestamp are kept.
func (l *Ledger) Prune(ctx context.Context) int {
	cutoff := l.now().Add(-l.maxAge)

	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	l.mu.Lock()
	removed := 0
	for id := range l.ids {
		ts, ok := idTimestamp(id)
		if !ok {
			continue
		}
		if ts.Before(cutoff) {
			delete(l.ids, id)
			removed++
		}
	}
	if removed == 0 {
		l.mu.Unlock()
		return 0
	}
	snapshot := l.sortedLocked()
	l.mu.Unlock()

	l.persist(ctx, snapshot)
	l.log.Infof("ledger %s: %d id(s) expirados removidos", l.clanID, removed)
	return removed
}

// StartPruning sweeps the ledger every interval until ctx is done. The
// returned channel is closed once the goroutine exits.
func (l *Ledger) StartPruning(ctx context.Context, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Prune(ctx)
			}
		}
	}()
	return done
}

// IDs returns the processed ids in lexical order.
func (l *Ledger) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sortedLocked()
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}

func (l *Ledger) sortedLocked() []string {
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (l *Ledger) persist(ctx context.Context, ids []string) {
	if l.store == nil {
		return
	}
	data, err := json.Marshal(ids)
	if err != nil {
		l.log.Errorf("ledger %s: falha ao serializar: %v", l.clanID, err)
		return
	}
	if err := l.store.Put(ctx, LedgerKey(l.clanID), data); err != nil {
		l.log.Warnf("ledger %s: falha ao persistir %d id(s): %v", l.clanID, len(ids), err)
	}
}

// idTimestamp reads the epoch-millis segment of ids shaped like
// "<uuid-like>-<epoch>-...". The backend does not guarantee this format.
func idTimestamp(id string) (time.Time, bool) {
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
