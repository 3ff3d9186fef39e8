package auth

// SessionData represents the authenticated session context for a request
type SessionData struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Company   string `json:"company"`
}
