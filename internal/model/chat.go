package model

// ChatMetadata carries optional widget context sent with a turn.
type ChatMetadata struct {
	URL       string `json:"url,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// ChatRequest is the body of the public turn endpoint. The widget speaks
// camelCase JSON, unlike the dashboard API.
type ChatRequest struct {
	Message        string        `json:"message"`
	ConversationID string        `json:"conversationId,omitempty"`
	VisitorID      string        `json:"visitorId,omitempty"`
	Metadata       *ChatMetadata `json:"metadata,omitempty"`
}

// ChatResponse is returned on any turn that produced an assistant reply.
type ChatResponse struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}
