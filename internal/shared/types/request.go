package types

// RunRequest submits a snippet for evaluation.
// Source is deliberately not required: an empty snippet is a valid run
// that yields an empty transcript.
type RunRequest struct {
	Source    string  `json:"source"`
	SessionID *string `json:"session_id,omitempty"`
}

// CheckRequest validates snippet syntax without executing it
type CheckRequest struct {
	Source string `json:"source"`
}

// ImportRequest pulls snippets from a remote page into the catalog
type ImportRequest struct {
	URL string `json:"url" binding:"required"`
}

// ExecuteRequest represents a service tool execution request
type ExecuteRequest struct {
	ToolID    string                 `json:"tool_id" binding:"required"`
	Params    map[string]interface{} `json:"params"`
	SessionID *string                `json:"session_id,omitempty"`
}

// PruneRequest trims the run history
type PruneRequest struct {
	KeepLast int `json:"keep_last"`
	MaxAgeH  int `json:"max_age_hours"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string  `json:"type"`
	Source    string  `json:"source,omitempty"`
	SessionID *string `json:"session_id,omitempty"`
}
