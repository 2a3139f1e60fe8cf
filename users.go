package zohocrm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// defaultUserType covers every CRM user; the other vendor types
// (ActiveUsers, DeactiveUsers, AdminUsers, ...) are subsets of it.
const defaultUserType = "AllUsers"

// Users returns the CRM user directory, filtered by a vendor user type
// (default AllUsers).
//
// The directory is fetched once per client and cached for the client's
// lifetime: the user set changes rarely relative to process lifetime, so
// there is no TTL and only a restart repopulates it. Later calls return the
// cached list even when userType differs from the first call's — pass
// AllUsers (or nothing) first so the cache holds the superset.
func (c *Client) Users(ctx context.Context, userType string) ([]Record, error) {
	c.userMu.Lock()
	defer c.userMu.Unlock()

	if c.userCache != nil {
		return c.userCache, nil
	}

	if userType == "" {
		userType = defaultUserType
	}
	body, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/users",
		query:  url.Values{"type": []string{userType}},
	})
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, &FormatError{URL: "users", Hint: "no body in user listing"}
	}

	var envelope struct {
		Users []Record `json:"users"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &FormatError{URL: "users", Hint: err.Error()}
	}
	if envelope.Users == nil {
		return nil, &FormatError{URL: "users", Hint: "no users field in response"}
	}

	c.userCache = envelope.Users
	c.logger.DebugContext(ctx, "populated user directory cache", "users", len(envelope.Users))
	return c.userCache, nil
}

// FindUserByName resolves a user by exact (trimmed) full-name match against
// the cached directory.
//
// An active match returns that user's (name, id). An inactive match or no
// match at all both fall back to the configured default user — callers
// cannot distinguish the two cases from the return value.
func (c *Client) FindUserByName(ctx context.Context, fullName string) (string, string, error) {
	users, err := c.Users(ctx, "")
	if err != nil {
		return "", "", err
	}

	name := strings.TrimSpace(fullName)
	for _, u := range users {
		candidate, _ := u["full_name"].(string)
		if candidate != name {
			continue
		}
		if status, _ := u["status"].(string); status == "active" {
			return name, u.ID(), nil
		}
		c.logger.DebugContext(ctx, "user is inactive in zoho crm", "full_name", name)
		return c.defaultUserName, c.defaultUserID, nil
	}

	c.logger.InfoContext(ctx, "user not found in zoho", "full_name", name)
	return c.defaultUserName, c.defaultUserID, nil
}
