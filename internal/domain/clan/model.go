package clan

import "time"

// Clan holds the clan snapshot shown to a viewer.
type Clan struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	HeadID      string    `json:"headId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	MemberCount int       `json:"memberCount"`
}

// IsHead reports whether userID leads the clan.
func (c Clan) IsHead(userID string) bool {
	return c.HeadID != "" && c.HeadID == userID
}

// OpenSessionInput is the payload used to start watching a clan on behalf of a viewer.
type OpenSessionInput struct {
	ClanID   string `json:"clanId"`
	ViewerID string `json:"viewerId"`
}

// SessionInfo describes an open viewer session.
type SessionInfo struct {
	ID             string    `json:"id"`
	ClanID         string    `json:"clanId"`
	ViewerID       string    `json:"viewerId"`
	OpenedAt       time.Time `json:"openedAt"`
	ProcessedCount int       `json:"processedCount"`
	Clan           *Clan     `json:"clan,omitempty"`
}
