package client

import (
	"context"
	"net/http"

	"ironwall/pkg/models"
)

// HistoryEntry is the chat service's wire shape for one prior message. The
// service expects the assistant side under the role name "model".
type HistoryEntry struct {
	Role  string `json:"role"`
	Parts string `json:"parts"`
}

// WireRole maps an internal message role to the chat service's role name.
func WireRole(r models.MessageRole) string {
	if r == models.MessageRoleAssistant {
		return "model"
	}
	return string(r)
}

type chatRequest struct {
	Message string         `json:"message"`
	History []HistoryEntry `json:"history"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// ChatMessage sends one prompt plus prior history and returns the reply.
func (c *Client) ChatMessage(ctx context.Context, text string, history []HistoryEntry) (string, error) {
	if history == nil {
		history = []HistoryEntry{}
	}
	var out chatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat/message", "", chatRequest{Message: text, History: history}, &out); err != nil {
		return "", err
	}
	return out.Reply, nil
}
