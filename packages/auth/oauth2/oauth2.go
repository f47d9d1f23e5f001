// Package oauth2 fetches OAuth2 access tokens for outgoing requests.
package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/openit/packages/http"
)

// GrantType represents the OAuth2 grant type
type GrantType string

const (
	ClientCredentials GrantType = "client_credentials"
	Password          GrantType = "password"
	RefreshToken      GrantType = "refresh_token"
)

// Config holds OAuth2 configuration
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Username     string // For password grant
	Password     string // For password grant
	GrantType    GrantType
}

// Validate checks that the fields the grant type needs are set.
func (c *Config) Validate() error {
	if c.TokenURL == "" {
		return fmt.Errorf("oauth2: token URL is required")
	}
	switch c.GrantType {
	case "", ClientCredentials:
		if c.ClientID == "" {
			return fmt.Errorf("oauth2: client_credentials needs a client id")
		}
	case Password:
		if c.Username == "" {
			return fmt.Errorf("oauth2: password grant needs a username")
		}
	default:
		return fmt.Errorf("oauth2: unsupported grant type %q", c.GrantType)
	}
	return nil
}

// Token represents an OAuth2 access token
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"-"`
}

// IsExpired checks if the token is expired, allowing 30s of clock skew
func (t *Token) IsExpired() bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(30 * time.Second).After(t.ExpiresAt)
}

// AuthorizationHeader renders the token for the Authorization header.
func (t *Token) AuthorizationHeader() string {
	tokenType := t.TokenType
	if tokenType == "" || strings.EqualFold(tokenType, "bearer") {
		tokenType = "Bearer"
	}
	return tokenType + " " + t.AccessToken
}

// Provider handles OAuth2 token acquisition
type Provider struct {
	config    *Config
	transport http.Transport
	cache     *TokenCache
}

// NewProvider returns a provider posting token requests through transport.
// Tokens are kept in GlobalCache until they expire.
func NewProvider(config *Config, transport http.Transport) *Provider {
	if transport == nil {
		transport = http.NewHTTPTransport()
	}
	return &Provider{
		config:    config,
		transport: transport,
		cache:     GlobalCache,
	}
}

// GetToken returns a cached token or fetches a new one. An expired token
// with a refresh token is refreshed first. A token that can be neither
// refreshed nor replaced is dropped from the cache.
func (p *Provider) GetToken(ctx context.Context) (*Token, error) {
	cached, fresh := p.cache.lookup(p.config)
	if fresh {
		return cached, nil
	}

	var token *Token
	if cached != nil && cached.RefreshToken != "" {
		if token, _ = p.RefreshAccessToken(ctx, cached.RefreshToken); token != nil && token.RefreshToken == "" {
			token.RefreshToken = cached.RefreshToken
		}
	}
	if token == nil {
		var err error
		if token, err = p.fetchToken(ctx); err != nil {
			p.cache.evict(p.config)
			return nil, err
		}
	}

	p.cache.store(p.config, token)
	return token, nil
}

func (p *Provider) fetchToken(ctx context.Context) (*Token, error) {
	params := http.NewParams()
	switch p.config.GrantType {
	case Password:
		params.Set("grant_type", string(Password))
		params.Set("username", p.config.Username)
		params.Set("password", p.config.Password)
	default:
		params.Set("grant_type", string(ClientCredentials))
	}
	if len(p.config.Scopes) > 0 {
		params.Set("scope", strings.Join(p.config.Scopes, " "))
	}
	return p.doTokenRequest(ctx, params)
}

// RefreshAccessToken exchanges a refresh token for a new access token
func (p *Provider) RefreshAccessToken(ctx context.Context, refreshToken string) (*Token, error) {
	params := http.NewParams()
	params.Set("grant_type", string(RefreshToken))
	params.Set("refresh_token", refreshToken)
	return p.doTokenRequest(ctx, params)
}

func (p *Provider) doTokenRequest(ctx context.Context, params *http.Params) (*Token, error) {
	b := http.NewBuilder(http.WithTransport(p.transport)).
		SetURL(p.config.TokenURL).
		SetMethod(http.MethodPost).
		SetParams(params).
		SetHeader("Accept", "application/json").
		SetOption(http.OptTimeout, "30s")
	if p.config.ClientID != "" && p.config.ClientSecret != "" {
		b.SetOption(http.OptUserPwd, p.config.ClientID+":"+p.config.ClientSecret)
	} else if p.config.ClientID != "" {
		b.SetParam("client_id", p.config.ClientID)
	}

	b.Send(ctx)
	if err := b.Err(); err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	resp := b.Result()

	if resp.StatusCode != 200 {
		var errResp struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(resp.Body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("token request failed: %s - %s", errResp.Error, errResp.ErrorDescription)
		}
		return nil, fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, resp.BodyString())
	}

	var token Token
	if err := json.Unmarshal(resp.Body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}
	if token.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	return &token, nil
}
