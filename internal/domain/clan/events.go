package clan

import "time"

// EventType identifica o evento de clã representado por uma notificação.
type EventType string

const (
	EventMemberJoined         EventType = "member.joined"
	EventMemberRoleChanged    EventType = "member.role_changed"
	EventJoinRequestSubmitted EventType = "join_request.submitted"
	EventJoinRequestApproved  EventType = "join_request.approved"
	EventJoinRequestRejected  EventType = "join_request.rejected"
	EventInvitationSent       EventType = "invitation.sent"
)

// IsJoinRequest informa se o evento pertence ao fluxo de pedidos de entrada.
func (e EventType) IsJoinRequest() bool {
	switch e {
	case EventJoinRequestSubmitted, EventJoinRequestApproved, EventJoinRequestRejected:
		return true
	}
	return false
}

// Severity é o nível visual do toast exibido ao usuário.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityError   Severity = "error"
)

// Action representa o efeito de UI produzido por uma notificação aceita.
type Action struct {
	NotificationID string    `json:"notificationId"`
	ClanID         string    `json:"clanId"`
	ViewerID       string    `json:"viewerId"`
	Event          EventType `json:"event"`
	Severity       Severity  `json:"severity"`
	Message        string    `json:"message"`
	Reload         bool      `json:"reload"`
	EmittedAt      time.Time `json:"emittedAt"`
}
