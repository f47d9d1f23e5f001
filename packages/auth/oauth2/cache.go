package oauth2

import (
	"strings"
	"sync"
)

// tokenKey identifies the credentials a token was issued for.
type tokenKey struct {
	tokenURL string
	clientID string
	username string
	scopes   string
}

func keyFor(cfg *Config) tokenKey {
	return tokenKey{
		tokenURL: cfg.TokenURL,
		clientID: cfg.ClientID,
		username: cfg.Username,
		scopes:   strings.Join(cfg.Scopes, " "),
	}
}

// TokenCache keeps one token per token endpoint, client, user and scope set.
type TokenCache struct {
	mu     sync.Mutex
	tokens map[tokenKey]*Token
}

func NewTokenCache() *TokenCache {
	return &TokenCache{tokens: make(map[tokenKey]*Token)}
}

// lookup returns the cached token for cfg and whether it is still usable.
// An expired token is returned too so its refresh token can be spent.
func (c *TokenCache) lookup(cfg *Config) (*Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	token, ok := c.tokens[keyFor(cfg)]
	if !ok {
		return nil, false
	}
	return token, !token.IsExpired()
}

func (c *TokenCache) store(cfg *Config, token *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[keyFor(cfg)] = token
}

func (c *TokenCache) evict(cfg *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, keyFor(cfg))
}

// GlobalCache is shared by every Provider in the process, so repeated and
// watched sends reuse one token until it expires.
var GlobalCache = NewTokenCache()
