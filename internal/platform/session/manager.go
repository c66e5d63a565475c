package session

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/faeln1/clan-notifier/internal/domain/clan"
	"github.com/faeln1/clan-notifier/internal/domain/notification"
	"github.com/google/uuid"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// Pipeline is what a session runs for every notification batch.
type Pipeline interface {
	Process(ctx context.Context, batch []notification.Notification) []clan.Action
	ProcessedIDs() []string
	Prune(ctx context.Context) int
	Clan() (clan.Clan, bool)
}

// Session é a visualização de um clã por um usuário: equivale à página de detalhe aberta.
type Session struct {
	ID        string
	ClanID    string
	ViewerID  string
	CreatedAt time.Time
	Pipeline  Pipeline

	stop context.CancelFunc
	done <-chan struct{}
}

// Key identifies a session by clan and viewer.
func Key(clanID, viewerID string) string {
	return strings.TrimSpace(clanID) + "|" + strings.TrimSpace(viewerID)
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session // key: clan|viewer
	log      waLog.Logger
}

func NewManager(log waLog.Logger) *Manager {
	if log == nil {
		log = waLog.Noop
	}
	return &Manager{sessions: make(map[string]*Session), log: log}
}

// Create registra uma sessão vazia; o pipeline é anexado depois com Attach.
func (m *Manager) Create(clanID, viewerID string) (*Session, error) {
	key := Key(clanID, viewerID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[key]; exists {
		return nil, ErrAlreadyExists
	}
	sess := &Session{ID: uuid.NewString(), ClanID: clanID, ViewerID: viewerID, CreatedAt: time.Now().UTC()}
	m.sessions[key] = sess
	return sess, nil
}

// Attach associa o pipeline e a rotina de fundo (stop/done) à sessão.
func (m *Manager) Attach(clanID, viewerID string, pipeline Pipeline, stop context.CancelFunc, done <-chan struct{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[Key(clanID, viewerID)]
	if !ok {
		return ErrNotFound
	}
	sess.Pipeline = pipeline
	sess.stop = stop
	sess.done = done
	m.log.Infof("sessão %s aberta para clã %s (viewer %s)", sess.ID, clanID, viewerID)
	return nil
}

// Get returns a snapshot of the session.
func (m *Manager) Get(clanID, viewerID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[Key(clanID, viewerID)]
	if !ok {
		return nil, false
	}
	snapshot := *s
	return &snapshot, true
}

// List returns snapshots of the sessions ordered by clan then viewer.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		snapshot := *s
		out = append(out, &snapshot)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClanID != out[j].ClanID {
			return out[i].ClanID < out[j].ClanID
		}
		return out[i].ViewerID < out[j].ViewerID
	})
	return out
}

// Delete removes the session and waits for its background work to stop.
func (m *Manager) Delete(clanID, viewerID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[Key(clanID, viewerID)]
	if ok {
		delete(m.sessions, Key(clanID, viewerID))
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	sess.shutdown()
	m.log.Infof("sessão %s encerrada", sess.ID)
	return nil
}

// CloseAll stops every session; used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, sess := range all {
		sess.shutdown()
	}
}

func (s *Session) shutdown() {
	if s.stop != nil {
		s.stop()
	}
	if s.done != nil {
		<-s.done
	}
}
