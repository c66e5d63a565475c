package services

import (
	"context"
	"sync"

	"github.com/faeln1/clan-notifier/internal/domain/clan"
	"github.com/faeln1/clan-notifier/internal/domain/notification"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// Reconciler runs the filter, classify and dispatch pipeline for one viewer of one clan.
type Reconciler struct {
	clanID   string
	viewerID string

	ledger     *Ledger
	reloader   *ClanReloader
	filter     *RelevanceFilter
	dispatcher *EventDispatcher
	sink       ActionSink
	log        waLog.Logger

	// batches are handled one at a time, like the page's render loop
	mu sync.Mutex
}

type ReconcilerDeps struct {
	Ledger     *Ledger
	Reloader   *ClanReloader
	Filter     *RelevanceFilter
	Dispatcher *EventDispatcher
	Sink       ActionSink
	Log        waLog.Logger
}

func NewReconciler(clanID, viewerID string, deps ReconcilerDeps) *Reconciler {
	log := deps.Log
	if log == nil {
		log = waLog.Noop
	}
	filter := deps.Filter
	if filter == nil {
		filter = NewRelevanceFilter(FilterConfig{}, nil)
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = NewEventDispatcher(log, nil)
	}
	return &Reconciler{
		clanID:     clanID,
		viewerID:   viewerID,
		ledger:     deps.Ledger,
		reloader:   deps.Reloader,
		filter:     filter,
		dispatcher: dispatcher,
		sink:       deps.Sink,
		log:        log,
	}
}

// View returns the current viewing context, using the last loaded clan snapshot.
// The clan id is always the session's: the API may spell it differently.
func (r *Reconciler) View() ViewContext {
	c := clan.Clan{}
	if r.reloader != nil {
		c, _ = r.reloader.Current()
	}
	c.ID = r.clanID
	return ViewContext{Clan: c, ViewerID: r.viewerID}
}

// Process evaluates a batch of notifications and returns the actions emitted.
// The feed re-sends the full list on every update; the ledger makes repeated
// entries harmless.
func (r *Reconciler) Process(ctx context.Context, batch []notification.Notification) []clan.Action {
	r.mu.Lock()
	defer r.mu.Unlock()

	view := r.View()
	var (
		actions []clan.Action
		reload  bool
	)
	for _, n := range batch {
		if err := n.Validate(); err != nil {
			r.log.Debugf("notificação descartada: %v", err)
			continue
		}
		verdict := r.filter.Evaluate(n, view, r.ledger)
		if !verdict.Process {
			if verdict.MarkProcessed {
				r.ledger.MarkProcessed(ctx, n.ID)
			}
			if verdict.Reason != ReasonAlreadyProcessed && verdict.Reason != ReasonNotClan {
				r.log.Debugf("notificação %s ignorada: %s", n.ID, verdict.Reason)
			}
			continue
		}

		// marked before dispatch so a re-entrant batch can never show it twice
		r.ledger.MarkProcessed(ctx, n.ID)

		if !verdict.HasEvent {
			r.log.Infof("notificação %s sem evento de clã reconhecível", n.ID)
			continue
		}
		action, ok := r.dispatcher.ActionFor(n, verdict.Event, view)
		if !ok {
			continue
		}
		actions = append(actions, action)
		reload = reload || action.Reload
	}

	if len(actions) > 0 && r.sink != nil {
		if err := r.sink.Deliver(ctx, actions); err != nil {
			r.log.Warnf("entrega de %d ação(ões) falhou: %v", len(actions), err)
		}
	}
	if reload && r.reloader != nil {
		r.reloader.ReloadAsync(ctx)
	}
	return actions
}

// ProcessedIDs lists the ids in the ledger.
func (r *Reconciler) ProcessedIDs() []string {
	return r.ledger.IDs()
}

// Prune runs a ledger sweep immediately.
func (r *Reconciler) Prune(ctx context.Context) int {
	return r.ledger.Prune(ctx)
}

// Clan returns the last loaded clan snapshot.
func (r *Reconciler) Clan() (clan.Clan, bool) {
	if r.reloader == nil {
		return clan.Clan{ID: r.clanID}, false
	}
	return r.reloader.Current()
}

// Wait blocks until background reloads triggered by Process finish.
func (r *Reconciler) Wait() {
	if r.reloader != nil {
		r.reloader.Wait()
	}
}
