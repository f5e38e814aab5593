package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"teamchat-service/internal/models"
)

// Directory is the REST collaborator the session fetches from: the user
// directory and the flat historical message log. The log arrives unscoped;
// conversations filter it by computed pair id.
type Directory interface {
	Users(ctx context.Context) ([]models.Contact, error)
	Messages(ctx context.Context) ([]models.ChatMessage, error)
}

// APIClient is the HTTP implementation of Directory.
type APIClient struct {
	baseURL string
	token   string
	org     string
	client  *http.Client
}

// NewAPIClient builds a client for the REST endpoints. org optionally
// scopes the directory to one organization.
func NewAPIClient(baseURL, token, org string) *APIClient {
	return &APIClient{baseURL: baseURL, token: token, org: org, client: http.DefaultClient}
}

// Users fetches the directory.
func (a *APIClient) Users(ctx context.Context) ([]models.Contact, error) {
	endpoint := a.baseURL + "/users"
	if a.org != "" {
		query := url.Values{}
		query.Set("org", a.org)
		endpoint += "?" + query.Encode()
	}
	var resp struct {
		Users []models.Contact `json:"users"`
	}
	if err := a.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// Messages fetches the flat historical log.
func (a *APIClient) Messages(ctx context.Context) ([]models.ChatMessage, error) {
	var resp struct {
		Messages []models.ChatMessage `json:"messages"`
	}
	if err := a.getJSON(ctx, a.baseURL+"/messages", &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (a *APIClient) getJSON(ctx context.Context, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
