package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/fmcg-dev/fmcg/internal/types"
)

// ChatbotQuery asks the natural-language assistant a question within a
// conversation identified by sessionID
func (c *Client) ChatbotQuery(ctx context.Context, question, sessionID string) (*types.ChatResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, &APIError{Message: "Question is required"}
	}

	req, err := jsonRequest(http.MethodPost, "/chatbot/query", types.ChatRequest{
		Question:  question,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, err
	}
	req.long = true

	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var result types.ChatResult
	if err := decode(body, "result", &result); err != nil {
		return nil, err
	}
	return &result, nil
}
