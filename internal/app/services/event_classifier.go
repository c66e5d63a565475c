package services

import (
	"strings"

	"github.com/faeln1/clan-notifier/internal/domain/clan"
	"github.com/faeln1/clan-notifier/internal/domain/notification"
)

type titlePattern struct {
	needle string
	event  clan.EventType
}

// Order matters: first match wins.
var titlePatterns = []titlePattern{
	{needle: "welcome", event: clan.EventMemberJoined},
	{needle: "role updated", event: clan.EventMemberRoleChanged},
	{needle: "new join request", event: clan.EventJoinRequestSubmitted},
	{needle: "join request approved", event: clan.EventJoinRequestApproved},
	{needle: "join request rejected", event: clan.EventJoinRequestRejected},
	{needle: "invitation", event: clan.EventInvitationSent},
}

// EventFromTitle infers the clan event from a notification title.
func EventFromTitle(title string) (clan.EventType, bool) {
	lower := strings.ToLower(title)
	for _, p := range titlePatterns {
		if strings.Contains(lower, p.needle) {
			return p.event, true
		}
	}
	return "", false
}

// ClassifyEvent returns the clan event a notification represents. An explicit
// metadata.eventType is authoritative and returned as is; otherwise clan
// notifications fall back to title matching.
func ClassifyEvent(n notification.Notification) (clan.EventType, bool) {
	if explicit := n.Metadata.EventType; explicit != "" {
		return clan.EventType(explicit), true
	}
	if !n.IsClan() {
		return "", false
	}
	return EventFromTitle(n.Title)
}
