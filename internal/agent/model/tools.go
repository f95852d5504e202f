package model

import "time"

// LeadRecord is what gets handed to the LeadRegistry.
type LeadRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}

// NewLeadRecord builds a record from collected lead fields.
func NewLeadRecord(sessionID string, lead Lead) LeadRecord {
	return LeadRecord{
		SessionID: sessionID,
		Name:      lead.Name,
		Email:     lead.Email,
		Platform:  lead.Platform,
	}
}
