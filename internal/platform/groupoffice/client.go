// Package groupoffice talks to a GroupOffice instance over its JSON-RPC
// endpoint. The service pushes care plan summaries into a notebook as notes;
// each patient keeps the id of their note so later exports update in place.
package groupoffice

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/leo-oli/social-care-omaha/internal/platform/errs"
)

// Client is a thin GroupOffice API client. It authenticates lazily and keeps
// the access token for the lifetime of the process. Exports may sync
// concurrently, so the token lives behind a mutex and is attached to each
// request rather than written into the shared resty client.
type Client struct {
	http       *resty.Client
	username   string
	password   string
	notebookID int
	logger     zerolog.Logger

	mu    sync.Mutex
	token string
}

type rpcRequest struct {
	Using       []string        `json:"using"`
	MethodCalls [][]interface{} `json:"methodCalls"`
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string `json:"accessToken"`
}

type setResponse struct {
	MethodResponses [][]json.RawMessage `json:"methodResponses"`
}

type noteSetResult struct {
	Created map[string]struct {
		ID string `json:"id"`
	} `json:"created"`
	NotCreated map[string]struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"notCreated"`
	NotUpdated map[string]struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"notUpdated"`
}

// NewClient creates a GroupOffice client for the given instance.
func NewClient(baseURL, username, password string, notebookID int, logger zerolog.Logger) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:       http,
		username:   username,
		password:   password,
		notebookID: notebookID,
		logger:     logger,
	}
}

// Configured reports whether a base URL was provided. An unconfigured client
// rejects sync attempts instead of dialing nowhere.
func (c *Client) Configured() bool {
	return c.http.BaseURL != ""
}

// authToken returns the cached access token, logging in on first use. The
// mutex covers the whole exchange so concurrent callers block on one auth
// round trip instead of each making their own.
func (c *Client) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	var auth authResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(authRequest{Username: c.username, Password: c.password}).
		SetResult(&auth).
		Post("/api/auth.php")
	if err != nil {
		return "", errs.Gateway(err, "groupoffice auth request failed")
	}
	if resp.IsError() || auth.AccessToken == "" {
		return "", errs.Gateway(nil, "groupoffice auth rejected (status %d)", resp.StatusCode())
	}

	c.token = auth.AccessToken
	return c.token, nil
}

// CreateNote creates a note in the configured notebook and returns its id.
func (c *Client) CreateNote(ctx context.Context, title, content string) (string, error) {
	if !c.Configured() {
		return "", errs.Gateway(nil, "groupoffice is not configured")
	}

	req := rpcRequest{
		Using: []string{"go:notes"},
		MethodCalls: [][]interface{}{
			{"Note/set", map[string]interface{}{
				"create": map[string]interface{}{
					"note": map[string]interface{}{
						"name":       title,
						"content":    content,
						"noteBookId": c.notebookID,
					},
				},
			}, "0"},
		},
	}

	result, err := c.call(ctx, req)
	if err != nil {
		return "", err
	}
	created, ok := result.Created["note"]
	if !ok || created.ID == "" {
		msg := "no id returned"
		if nc, ok := result.NotCreated["note"]; ok {
			msg = nc.Description
		}
		return "", errs.Gateway(nil, "groupoffice note create failed: %s", msg)
	}

	c.logger.Info().Str("note_id", created.ID).Msg("groupoffice note created")
	return created.ID, nil
}

// UpdateNote replaces the title and content of an existing note.
func (c *Client) UpdateNote(ctx context.Context, noteID, title, content string) error {
	if !c.Configured() {
		return errs.Gateway(nil, "groupoffice is not configured")
	}

	req := rpcRequest{
		Using: []string{"go:notes"},
		MethodCalls: [][]interface{}{
			{"Note/set", map[string]interface{}{
				"update": map[string]interface{}{
					noteID: map[string]interface{}{
						"name":    title,
						"content": content,
					},
				},
			}, "0"},
		},
	}

	result, err := c.call(ctx, req)
	if err != nil {
		return err
	}
	if nu, ok := result.NotUpdated[noteID]; ok {
		return errs.Gateway(nil, "groupoffice note update failed: %s", nu.Description)
	}

	c.logger.Info().Str("note_id", noteID).Msg("groupoffice note updated")
	return nil
}

func (c *Client) call(ctx context.Context, req rpcRequest) (*noteSetResult, error) {
	token, err := c.authToken(ctx)
	if err != nil {
		return nil, err
	}

	var rpc setResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(req).
		SetResult(&rpc).
		Post("/api/jmap.php")
	if err != nil {
		return nil, errs.Gateway(err, "groupoffice request failed")
	}
	if resp.IsError() {
		return nil, errs.Gateway(nil, "groupoffice returned status %d", resp.StatusCode())
	}
	if len(rpc.MethodResponses) == 0 || len(rpc.MethodResponses[0]) < 2 {
		return nil, errs.Gateway(nil, "groupoffice returned an empty response")
	}

	var result noteSetResult
	if err := json.Unmarshal(rpc.MethodResponses[0][1], &result); err != nil {
		return nil, errs.Gateway(err, "groupoffice returned malformed response")
	}
	return &result, nil
}

// Healthcheck verifies the instance is reachable and credentials work.
func (c *Client) Healthcheck(ctx context.Context) error {
	if !c.Configured() {
		return fmt.Errorf("groupoffice is not configured")
	}
	_, err := c.authToken(ctx)
	return err
}
