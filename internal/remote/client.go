package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Rrens/sommelier/internal/domain"
)

// maxErrorBody bounds how much of a failed response ends up in the error
const maxErrorBody = 512

// Client wraps HTTP communication with the Remote Conversation API
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ Mirror = (*Client)(nil)

// NewClient creates a client for the API rooted at baseURL. An empty token
// sends no Authorization header.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListConversations fetches GET /conversations
func (c *Client) ListConversations(ctx context.Context) ([]domain.RemoteConversation, error) {
	var conversations []domain.RemoteConversation
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, &conversations); err != nil {
		return nil, err
	}
	if conversations == nil {
		conversations = []domain.RemoteConversation{}
	}
	return conversations, nil
}

// ListMessages fetches GET /conversations/{id}/messages
func (c *Client) ListMessages(ctx context.Context, conversationID int64) ([]domain.RemoteMessage, error) {
	var messages []domain.RemoteMessage
	path := fmt.Sprintf("/conversations/%d/messages", conversationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.RemoteMessage{}
	}
	return messages, nil
}

// PostMessage sends POST /messages. The acknowledgement body is ignored.
func (c *Client) PostMessage(ctx context.Context, body domain.RemoteMessageCreate) error {
	return c.do(ctx, http.MethodPost, "/messages", body, nil)
}

// Close releases idle connections
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// do sends one request and decodes the payload into out. The payload may be
// the bare value or wrapped in a {success, data} envelope.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: failed to encode request: %w", domain.ErrRemoteUnreachable, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", domain.ErrRemoteUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", domain.ErrRemoteUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", domain.ErrRemoteUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return fmt.Errorf("%w: %s %s returned HTTP %d: %s", domain.ErrRemoteUnreachable, method, path, resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := decodePayload(body, out); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %w", domain.ErrRemoteUnreachable, path, err)
	}
	return nil
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
}

func decodePayload(body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] != '{' {
		return json.Unmarshal(trimmed, out)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return err
	}
	if env.Success == nil {
		return json.Unmarshal(trimmed, out)
	}
	if !*env.Success {
		return fmt.Errorf("remote reported failure: %v", env.Error)
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
