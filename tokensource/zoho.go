package tokensource

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// DefaultAccountsURL is the Zoho accounts server hosting the OAuth2 token
// endpoint. Other data centers use their own hosts (accounts.zoho.eu, ...).
const DefaultAccountsURL = "https://accounts.zoho.com"

// Endpoint returns the OAuth2 endpoint for the given Zoho accounts host.
func Endpoint(accountsURL string) oauth2.Endpoint {
	return oauth2.Endpoint{
		TokenURL:  strings.TrimRight(accountsURL, "/") + "/oauth/v2/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// Credentials are the long-lived secrets of the refresh-token grant.
// Immutable for the client's lifetime.
type Credentials struct {
	RefreshToken string
	ClientID     string
	ClientSecret string
}

func (c Credentials) validate() error {
	if c.RefreshToken == "" {
		return errors.New("missing refresh token")
	}
	if c.ClientID == "" {
		return errors.New("missing client id")
	}
	if c.ClientSecret == "" {
		return errors.New("missing client secret")
	}
	return nil
}

// AccessToken is a parsed Zoho token document. The raw document is retained
// so persistence replaces the vendor JSON wholesale, including fields this
// client does not interpret.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
	APIDomain   string `json:"api_domain,omitempty"`

	raw []byte
}

// ParseAccessToken parses a token document. Returns an error if the document
// is not JSON or lacks the access_token field.
func ParseAccessToken(document []byte) (*AccessToken, error) {
	var tok AccessToken
	if err := json.Unmarshal(document, &tok); err != nil {
		return nil, fmt.Errorf("parsing token document: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("token document has no access_token field")
	}
	tok.raw = document
	return &tok, nil
}

// Raw returns the vendor's original token document.
func (t *AccessToken) Raw() []byte {
	return t.raw
}

// OAuth2 converts the token to its oauth2 representation.
func (t *AccessToken) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
	}
}
