package model

import (
	"time"
)

// LeadStatus tracks sales follow-up; transitions are driven from the
// dashboard, never by the turn pipeline.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusClosed    LeadStatus = "closed"
)

// Lead is a contact derived from conversation content. Within a bot's
// scope the exact contact value (email or phone) identifies the lead;
// cross-field matching is not performed, so the same person reachable
// by both email and phone may produce two leads.
type Lead struct {
	ID                string     `json:"id"`
	BotID             string     `json:"bot_id"`
	TenantID          string     `json:"tenant_id"`
	ConversationID    string     `json:"conversation_id"`
	VisitorID         string     `json:"visitor_id"`
	Email             string     `json:"email,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Score             int        `json:"score"`
	Status            LeadStatus `json:"status"`
	LastContactAt     time.Time  `json:"last_contact_at"`
	ConversationCount int        `json:"conversation_count"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// HasContact reports whether the lead carries at least one contact
// identifier.
func (l *Lead) HasContact() bool {
	return l.Email != "" || l.Phone != ""
}
