package services

import (
	"strings"
	"time"

	"github.com/faeln1/clan-notifier/internal/domain/clan"
	"github.com/faeln1/clan-notifier/internal/domain/notification"
)

const (
	DefaultStaleAfter        = 5 * time.Minute
	DefaultWelcomeStaleAfter = time.Minute
)

// Skip reasons reported by RelevanceFilter.
const (
	ReasonAlreadyProcessed  = "already_processed"
	ReasonNotClan           = "not_clan"
	ReasonStale             = "stale"
	ReasonStaleWelcome      = "stale_welcome"
	ReasonBeforeClanCreated = "before_clan_created"
	ReasonOtherClan         = "other_clan"
	ReasonNotAudience       = "not_audience"
)

// ProcessedSet is the read side of the processed-id ledger.
type ProcessedSet interface {
	Contains(id string) bool
}

// ViewContext describes who is looking at which clan.
type ViewContext struct {
	Clan     clan.Clan
	ViewerID string
}

// Verdict is the outcome of running the guards over one notification.
type Verdict struct {
	Process       bool
	MarkProcessed bool
	Reason        string
	Event         clan.EventType
	HasEvent      bool
}

type FilterConfig struct {
	StaleAfter        time.Duration
	WelcomeStaleAfter time.Duration
}

// RelevanceFilter decides whether a notification should reach the dispatcher.
type RelevanceFilter struct {
	cfg FilterConfig
	now func() time.Time
}

func NewRelevanceFilter(cfg FilterConfig, now func() time.Time) *RelevanceFilter {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.WelcomeStaleAfter <= 0 {
		cfg.WelcomeStaleAfter = DefaultWelcomeStaleAfter
	}
	if now == nil {
		now = time.Now
	}
	return &RelevanceFilter{cfg: cfg, now: now}
}

// Evaluate runs the guards in order and stops at the first one that rejects.
func (f *RelevanceFilter) Evaluate(n notification.Notification, view ViewContext, seen ProcessedSet) Verdict {
	if seen != nil && seen.Contains(n.ID) {
		return Verdict{Reason: ReasonAlreadyProcessed}
	}
	if !n.IsClan() {
		return Verdict{Reason: ReasonNotClan}
	}

	age := f.now().Sub(n.CreatedAt)
	if age > f.cfg.StaleAfter {
		return Verdict{MarkProcessed: true, Reason: ReasonStale}
	}
	if strings.Contains(strings.ToLower(n.Title), "welcome") && age > f.cfg.WelcomeStaleAfter {
		return Verdict{MarkProcessed: true, Reason: ReasonStaleWelcome}
	}
	if !view.Clan.CreatedAt.IsZero() && n.CreatedAt.Before(view.Clan.CreatedAt) {
		return Verdict{MarkProcessed: true, Reason: ReasonBeforeClanCreated}
	}
	// not marked: the same notification may matter to another clan view
	if n.Metadata.ClanID != view.Clan.ID {
		return Verdict{Reason: ReasonOtherClan}
	}

	event, ok := ClassifyEvent(n)
	if ok && event.IsJoinRequest() {
		audience := n.Audience()
		isApplicant := audience != "" && audience == view.ViewerID
		if !isApplicant && !view.Clan.IsHead(view.ViewerID) {
			return Verdict{Reason: ReasonNotAudience, Event: event, HasEvent: true}
		}
	}
	return Verdict{Process: true, Event: event, HasEvent: ok}
}
