package services

import (
	"strings"
	"time"

	"github.com/faeln1/clan-notifier/internal/domain/clan"
	"github.com/faeln1/clan-notifier/internal/domain/notification"
	waLog "go.mau.fi/whatsmeow/util/log"
)

type eventRule struct {
	severity    clan.Severity
	reload      bool
	headOnly    bool
	defaultText string
}

var eventRules = map[clan.EventType]eventRule{
	clan.EventMemberJoined:         {severity: clan.SeveritySuccess, reload: true, defaultText: "Welcome to the clan!"},
	clan.EventMemberRoleChanged:    {severity: clan.SeverityInfo, reload: true, defaultText: "Your clan role was updated"},
	clan.EventJoinRequestSubmitted: {severity: clan.SeverityInfo, headOnly: true, defaultText: "New join request received"},
	clan.EventJoinRequestApproved:  {severity: clan.SeveritySuccess, reload: true, defaultText: "Join request approved"},
	clan.EventJoinRequestRejected:  {severity: clan.SeverityError, reload: true, defaultText: "Join request rejected"},
	clan.EventInvitationSent:       {severity: clan.SeverityInfo, defaultText: "Clan invitation sent"},
}

// EventDispatcher turns a classified notification into the UI action the viewer should see.
type EventDispatcher struct {
	log waLog.Logger
	now func() time.Time
}

func NewEventDispatcher(log waLog.Logger, now func() time.Time) *EventDispatcher {
	if log == nil {
		log = waLog.Noop
	}
	if now == nil {
		now = time.Now
	}
	return &EventDispatcher{log: log, now: now}
}

// ActionFor returns the action for event, or false when nothing should be shown.
func (d *EventDispatcher) ActionFor(n notification.Notification, event clan.EventType, view ViewContext) (clan.Action, bool) {
	rule, ok := eventRules[event]
	if !ok {
		d.log.Infof("evento de clã não reconhecido %q (notificação %s)", event, n.ID)
		return clan.Action{}, false
	}
	if rule.headOnly && !view.Clan.IsHead(view.ViewerID) {
		d.log.Debugf("evento %s ignorado: viewer %s não é líder do clã %s", event, view.ViewerID, view.Clan.ID)
		return clan.Action{}, false
	}
	return clan.Action{
		NotificationID: n.ID,
		ClanID:         view.Clan.ID,
		ViewerID:       view.ViewerID,
		Event:          event,
		Severity:       rule.severity,
		Message:        toastMessage(n, rule.defaultText),
		Reload:         rule.reload,
		EmittedAt:      d.now().UTC(),
	}, true
}

func toastMessage(n notification.Notification, fallback string) string {
	if msg := strings.TrimSpace(n.Message); msg != "" {
		return msg
	}
	if title := strings.TrimSpace(n.Title); title != "" {
		return title
	}
	return fallback
}
