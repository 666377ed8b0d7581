package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	ScopeReadOnly = "https://www.googleapis.com/auth/youtube.readonly"
	ScopeModify   = "https://www.googleapis.com/auth/youtubepartner"
)

// Settings keys, relative to the configured prefix.
const (
	KeyCode      = "code"
	KeyAccess    = "access"
	KeyRefresh   = "refresh"
	KeyScope     = "scope"
	KeyExpiresIn = "expires_in"
	KeyExpiresAt = "expires_at"
)

// Token is the credential state of the local user against one remote account.
type Token struct {
	Code         string        // single-use authorization code from the last consent
	AccessToken  string        // short-lived bearer credential
	RefreshToken string        // long-lived credential, may be empty
	Scopes       []string      // granted capabilities
	Lifetime     time.Duration // validity of the access token when issued
	ExpiresAt    time.Time     // issuance time + Lifetime
}

// NeedsPrompt reports whether consent has never been recorded.
func (t *Token) NeedsPrompt() bool {
	return t.Code == ""
}

// NeedsRefresh reports whether a new access token should be obtained before use.
//
// Tokens are renewed once half their lifetime has elapsed, not at the deadline.
func (t *Token) NeedsRefresh(now time.Time) bool {
	if t.NeedsPrompt() || t.AccessToken == "" {
		return true
	}
	return now.After(t.ExpiresAt.Add(-t.Lifetime / 2))
}

// Expired reports whether the access token is past its deadline.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *Token) CanRead() bool  { return slices.Contains(t.Scopes, ScopeReadOnly) }
func (t *Token) CanWrite() bool { return slices.Contains(t.Scopes, ScopeModify) }

// Grant records a fresh authorization code.
//
// Refresh material and expiry from any previous grant are cleared.
func (t *Token) Grant(code string, scopes []string) {
	t.Code = code
	t.Scopes = scopes
	t.RefreshToken = ""
	t.Lifetime = 0
	t.ExpiresAt = time.Time{}
}

// Issue records an access token returned by the token endpoint at time now.
//
// An empty refresh token keeps the current one.
func (t *Token) Issue(access, refresh string, lifetime time.Duration, now time.Time) {
	t.AccessToken = access
	if refresh != "" {
		t.RefreshToken = refresh
	}
	t.Lifetime = lifetime
	t.ExpiresAt = now.Add(lifetime)
}

// LoadToken reads token material stored under prefix.
func LoadToken(store SettingsStore, prefix string) (*Token, error) {
	values := map[string]string{}
	for _, key := range []string{KeyCode, KeyAccess, KeyRefresh, KeyScope, KeyExpiresIn, KeyExpiresAt} {
		v, err := store.Get(settingKey(prefix, key), "")
		if err != nil {
			return nil, fmt.Errorf("failed to read setting %s: %w", key, err)
		}
		values[key] = v
	}

	t := &Token{
		Code:         values[KeyCode],
		AccessToken:  values[KeyAccess],
		RefreshToken: values[KeyRefresh],
	}

	if s := values[KeyScope]; s != "" {
		t.Scopes = strings.Split(s, ",")
	}

	lifetime, err := parseInt(values[KeyExpiresIn])
	if err != nil {
		return nil, fmt.Errorf("invalid %s setting: %w", KeyExpiresIn, err)
	}
	expiresAt, err := parseInt(values[KeyExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("invalid %s setting: %w", KeyExpiresAt, err)
	}

	t.Lifetime = time.Duration(lifetime) * time.Second
	if expiresAt > 0 {
		t.ExpiresAt = time.Unix(expiresAt, 0)
	}

	return t, nil
}

// Stage writes every field of t to store under prefix. The caller commits.
func (t *Token) Stage(store SettingsStore, prefix string) {
	store.Set(settingKey(prefix, KeyCode), t.Code)
	store.Set(settingKey(prefix, KeyAccess), t.AccessToken)
	store.Set(settingKey(prefix, KeyRefresh), t.RefreshToken)
	store.Set(settingKey(prefix, KeyScope), strings.Join(t.Scopes, ","))
	store.Set(settingKey(prefix, KeyExpiresIn), strconv.FormatInt(int64(t.Lifetime/time.Second), 10))

	var expiresAt int64
	if !t.ExpiresAt.IsZero() {
		expiresAt = t.ExpiresAt.Unix()
	}
	store.Set(settingKey(prefix, KeyExpiresAt), strconv.FormatInt(expiresAt, 10))
}

func settingKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	// Older installs stored floating point seconds.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
