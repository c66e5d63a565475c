package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/faeln1/clan-notifier/internal/app/repositories"
	"github.com/faeln1/clan-notifier/internal/domain/clan"
	"github.com/faeln1/clan-notifier/internal/domain/notification"
	"github.com/faeln1/clan-notifier/internal/platform/session"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var ErrInvalidSessionInput = errors.New("clanId and viewerId are required")

type SessionService interface {
	Open(ctx context.Context, in clan.OpenSessionInput) (*clan.SessionInfo, error)
	List(ctx context.Context) []clan.SessionInfo
	Close(ctx context.Context, clanID, viewerID string) error
	Ingest(ctx context.Context, clanID, viewerID string, batch []notification.Notification) ([]clan.Action, error)
	Broadcast(ctx context.Context, batch []notification.Notification) int
	ProcessedIDs(ctx context.Context, clanID, viewerID string) ([]string, error)
	Prune(ctx context.Context, clanID, viewerID string) (int, error)
}

type SessionOptions struct {
	Filter        FilterConfig
	PruneInterval time.Duration
	ReloadTimeout time.Duration
	Now           func() time.Time
}

type sessionService struct {
	manager *session.Manager
	store   repositories.KeyValueStore
	fetcher ClanFetcher
	sink    ActionSink
	opts    SessionOptions
	log     waLog.Logger
}

func NewSessionService(manager *session.Manager, store repositories.KeyValueStore, fetcher ClanFetcher, sink ActionSink, opts SessionOptions, log waLog.Logger) SessionService {
	if store == nil {
		store = repositories.NewInMemoryKeyValueStore()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = waLog.Noop
	}
	return &sessionService{manager: manager, store: store, fetcher: fetcher, sink: sink, opts: opts, log: log}
}

func (s *sessionService) Open(ctx context.Context, in clan.OpenSessionInput) (*clan.SessionInfo, error) {
	clanID := strings.TrimSpace(in.ClanID)
	viewerID := strings.TrimSpace(in.ViewerID)
	if clanID == "" || viewerID == "" {
		return nil, ErrInvalidSessionInput
	}
	sess, err := s.manager.Create(clanID, viewerID)
	if err != nil {
		return nil, err
	}
	log := s.log.Sub(clanID + "/" + viewerID)

	ledger := NewLedger(clanID, repositories.NewPrefixedKeyValueStore(s.store, ViewerKeyPrefix(viewerID)), log.Sub("Ledger"))
	ledger.now = s.opts.Now
	// storage failures degrade to an empty ledger
	_ = ledger.Hydrate(ctx)

	var reloader *ClanReloader
	if s.fetcher != nil {
		reloader = NewClanReloader(clanID, s.fetcher, s.opts.ReloadTimeout, log.Sub("Reload"))
		if _, _, err := reloader.Reload(ctx); err != nil {
			if errors.Is(err, ErrClanNotFound) {
				_ = s.manager.Delete(clanID, viewerID)
				return nil, err
			}
			log.Warnf("clã %s carregado sem detalhes: %v", clanID, err)
		}
	}

	reconciler := NewReconciler(clanID, viewerID, ReconcilerDeps{
		Ledger:     ledger,
		Reloader:   reloader,
		Filter:     NewRelevanceFilter(s.opts.Filter, s.opts.Now),
		Dispatcher: NewEventDispatcher(log.Sub("Dispatch"), s.opts.Now),
		Sink:       s.sink,
		Log:        log,
	})

	pruneCtx, stop := context.WithCancel(context.Background())
	done := ledger.StartPruning(pruneCtx, s.opts.PruneInterval)
	if err := s.manager.Attach(clanID, viewerID, reconciler, stop, done); err != nil {
		stop()
		<-done
		return nil, err
	}

	info := sessionInfo(sess, reconciler)
	return &info, nil
}

// ViewerKeyPrefix scopes a viewer's ledgers inside the shared store. Each
// viewer keeps its own copy of processedNotifications_<clanId>.
func ViewerKeyPrefix(viewerID string) string {
	return "viewers/" + strings.TrimSpace(viewerID) + "/"
}

func (s *sessionService) List(ctx context.Context) []clan.SessionInfo {
	sessions := s.manager.List()
	out := make([]clan.SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionInfo(sess, sess.Pipeline))
	}
	return out
}

func (s *sessionService) Close(ctx context.Context, clanID, viewerID string) error {
	return s.manager.Delete(clanID, viewerID)
}

func (s *sessionService) Ingest(ctx context.Context, clanID, viewerID string, batch []notification.Notification) ([]clan.Action, error) {
	pipeline, err := s.pipeline(clanID, viewerID)
	if err != nil {
		return nil, err
	}
	return pipeline.Process(ctx, batch), nil
}

// Broadcast hands the batch to every open session; each one keeps only what
// concerns its clan and viewer. Returns the number of actions emitted.
func (s *sessionService) Broadcast(ctx context.Context, batch []notification.Notification) int {
	total := 0
	for _, sess := range s.manager.List() {
		if sess.Pipeline == nil {
			continue
		}
		total += len(sess.Pipeline.Process(ctx, batch))
	}
	return total
}

func (s *sessionService) ProcessedIDs(ctx context.Context, clanID, viewerID string) ([]string, error) {
	pipeline, err := s.pipeline(clanID, viewerID)
	if err != nil {
		return nil, err
	}
	return pipeline.ProcessedIDs(), nil
}

func (s *sessionService) Prune(ctx context.Context, clanID, viewerID string) (int, error) {
	pipeline, err := s.pipeline(clanID, viewerID)
	if err != nil {
		return 0, err
	}
	return pipeline.Prune(ctx), nil
}

func (s *sessionService) pipeline(clanID, viewerID string) (session.Pipeline, error) {
	sess, ok := s.manager.Get(clanID, viewerID)
	if !ok {
		return nil, session.ErrNotFound
	}
	if sess.Pipeline == nil {
		return nil, session.ErrPipelineUnavailable
	}
	return sess.Pipeline, nil
}

func sessionInfo(sess *session.Session, pipeline session.Pipeline) clan.SessionInfo {
	info := clan.SessionInfo{
		ID:       sess.ID,
		ClanID:   sess.ClanID,
		ViewerID: sess.ViewerID,
		OpenedAt: sess.CreatedAt,
	}
	if pipeline == nil {
		return info
	}
	info.ProcessedCount = len(pipeline.ProcessedIDs())
	if c, ok := pipeline.Clan(); ok {
		info.Clan = &c
	}
	return info
}
