package notification

import (
	"errors"
	"strings"
	"time"
)

// CategoryClan marks notifications produced by clan activity.
const CategoryClan = "CLAN"

var ErrInvalidNotification = errors.New("invalid notification")

// Metadata carries the optional routing hints attached by the backend.
type Metadata struct {
	ClanID      string `json:"clanId,omitempty"`
	EventType   string `json:"eventType,omitempty"`
	ApplicantID string `json:"applicantId,omitempty"`
	UserID      string `json:"userId,omitempty"`
}

// Notification is a single entry of the live feed delivered by the notification provider.
type Notification struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Title     string    `json:"title"`
	Message   string    `json:"message,omitempty"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsClan reports whether the notification belongs to the clan category.
func (n Notification) IsClan() bool {
	return n.Category == CategoryClan
}

// Audience returns the user the notification is about: the applicant when
// present, otherwise the generic user id.
func (n Notification) Audience() string {
	if id := strings.TrimSpace(n.Metadata.ApplicantID); id != "" {
		return id
	}
	return strings.TrimSpace(n.Metadata.UserID)
}

// Validate rejects entries that cannot be tracked by the processed-id ledger.
func (n Notification) Validate() error {
	if strings.TrimSpace(n.ID) == "" {
		return errors.Join(ErrInvalidNotification, errors.New("missing id"))
	}
	return nil
}
