package dto

import "time"

// CreateSessionRequest payload.
type CreateSessionRequest struct {
	Name    string `json:"name"`
	Utility string `json:"utility"`
}

// SessionResponse mirrors one storm session.
type SessionResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Utility   string     `json:"utility"`
	IsActive  bool       `json:"is_active"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// CreateIssueTypeRequest payload.
type CreateIssueTypeRequest struct {
	Name string `json:"name"`
}

// IssueTypeResponse mirrors one catalog entry.
type IssueTypeResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
