package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/muziek/internal/models"
	"github.com/desertthunder/muziek/internal/server"
	"github.com/desertthunder/muziek/internal/shared"
	"golang.org/x/oauth2"
)

// TokenManagerOpts configures a [TokenManager].
type TokenManagerOpts struct {
	Config     shared.YouTubeConfig
	Prefix     string // settings key prefix, e.g. "yt.oauth2"
	Store      models.SettingsStore
	Browser    shared.BrowserOpener
	HTTPClient *http.Client // used for the token endpoint
	Logger     *log.Logger
	Clock      func() time.Time
}

// TokenManager owns the OAuth2 authorization code flow for one local user.
//
// Callers only use [TokenManager.Headers]: consent is requested through the browser when no code
// was ever recorded, and the access token is renewed once half its lifetime has elapsed. Every
// change to the token is written to the settings store and committed.
type TokenManager struct {
	mu sync.Mutex

	oauth   *oauth2.Config
	addr    string
	modify  bool
	timeout time.Duration

	token   *models.Token
	store   models.SettingsStore
	prefix  string
	browser shared.BrowserOpener
	client  *http.Client
	base    *log.Logger // without the component key, for the callback listener
	logger  *log.Logger
	now     func() time.Time
}

// NewTokenManager loads the stored token and prepares the OAuth2 client.
func NewTokenManager(opts TokenManagerOpts) (*TokenManager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: settings store", shared.ErrMissingArgument)
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	addr, err := opts.Config.CallbackAddr()
	if err != nil {
		return nil, err
	}

	token, err := models.LoadToken(opts.Store, opts.Prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	browser := opts.Browser
	if browser == nil {
		browser = shared.SystemBrowser{}
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &TokenManager{
		oauth: &oauth2.Config{
			ClientID:     opts.Config.ClientID,
			ClientSecret: opts.Config.ClientSecret,
			RedirectURL:  opts.Config.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.Config.AuthURL,
				TokenURL:  opts.Config.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		addr:    addr,
		modify:  opts.Config.RequestModify,
		timeout: opts.Config.PromptTimeout,
		token:   token,
		store:   opts.Store,
		prefix:  opts.Prefix,
		browser: browser,
		client:  client,
		base:    logger,
		logger:  shared.WithLogger(logger, "component", "oauth2"),
		now:     clock,
	}, nil
}

// Headers returns the Authorization and Accept headers for an API request, refreshing the token first when needed.
func (m *TokenManager) Headers(ctx context.Context) (http.Header, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token.NeedsRefresh(m.now()) {
		if err := m.refresh(ctx, true); err != nil {
			return nil, err
		}
	}

	h := http.Header{}
	h.Set("Authorization", "Bearer "+m.token.AccessToken)
	h.Set("Accept", "application/json")
	return h, nil
}

// PromptAccess asks the user for consent in the browser and records the resulting authorization code.
//
// The modify scope is requested in addition to read-only access when modify is true.
func (m *TokenManager) PromptAccess(ctx context.Context, modify bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.promptAccess(ctx, modify)
}

func (m *TokenManager) promptAccess(ctx context.Context, modify bool) error {
	scopes := []string{models.ScopeReadOnly}
	if modify {
		scopes = append(scopes, models.ScopeModify)
	}

	state := shared.GenerateState()
	listener := server.NewCallbackListener(m.addr, state, m.base)
	if err := listener.Start(); err != nil {
		return err
	}

	authURL := m.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("scope", strings.Join(scopes, ",")),
	)

	m.logger.Info("opening web browser", "url", authURL)
	if err := m.browser.Open(authURL); err != nil {
		m.logger.Warn("could not open a browser, visit the URL manually", "url", authURL, "error", err)
	}

	waitCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	m.logger.Info("waiting for OAuth2 callback")
	code, err := listener.Wait(waitCtx)
	if err != nil {
		return err
	}

	m.token.Grant(code, scopes)
	if err := m.persist(); err != nil {
		return err
	}

	m.logger.Info("got authorization code")
	return nil
}

// refresh exchanges the stored code on the first call after consent and the refresh token afterwards.
//
// An OAuth error reported by the token endpoint means the code or refresh token is stale: consent is
// requested again and the exchange retried once. Any other failure leaves the token untouched.
func (m *TokenManager) refresh(ctx context.Context, reprompt bool) error {
	if m.token.NeedsPrompt() {
		if err := m.promptAccess(ctx, m.modify); err != nil {
			return err
		}
	}

	tok, err := m.retrieve(ctx)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if !errors.As(err, &rerr) {
			return fmt.Errorf("failed to reach token endpoint: %w", err)
		}

		if !rejectsGrant(rerr) {
			m.logger.Warn("token endpoint unavailable", "status", endpointStatus(rerr))
			return fmt.Errorf("%w: token endpoint answered %s", shared.ErrServiceUnavailable, endpointStatus(rerr))
		}

		m.logger.Debug("could not get a new token", "reason", reason(rerr))
		if !reprompt {
			return fmt.Errorf("%w: %s", shared.ErrRefreshFailed, reason(rerr))
		}

		if err := m.promptAccess(ctx, m.modify || m.token.CanWrite()); err != nil {
			return err
		}
		return m.refresh(ctx, false)
	}

	now := m.now()
	m.token.Issue(tok.AccessToken, tok.RefreshToken, lifetime(tok, now), now)
	if err := m.persist(); err != nil {
		return err
	}

	m.logger.Info("token refreshed", "expires_at", m.token.ExpiresAt.Format(time.RFC3339))
	return nil
}

func (m *TokenManager) retrieve(ctx context.Context) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.client)

	if m.token.RefreshToken == "" {
		m.logger.Info("exchanging authorization code")
		return m.oauth.Exchange(ctx, m.token.Code)
	}

	m.logger.Info("refreshing access token")
	return m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: m.token.RefreshToken}).Token()
}

func (m *TokenManager) persist() error {
	m.token.Stage(m.store, m.prefix)
	if err := m.store.Commit(); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// NeedsPrompt reports whether consent has never been given.
func (m *TokenManager) NeedsPrompt() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token.NeedsPrompt()
}

// NeedsRefresh reports whether the next [TokenManager.Headers] call will renew the access token.
func (m *TokenManager) NeedsRefresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token.NeedsRefresh(m.now())
}

func (m *TokenManager) CanRead() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token.CanRead()
}

func (m *TokenManager) CanWrite() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token.CanWrite()
}

// Token returns a copy of the current token.
func (m *TokenManager) Token() models.Token {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := *m.token
	t.Scopes = append([]string(nil), m.token.Scopes...)
	return t
}

func lifetime(tok *oauth2.Token, now time.Time) time.Duration {
	if tok.ExpiresIn > 0 {
		return time.Duration(tok.ExpiresIn) * time.Second
	}
	if !tok.Expiry.IsZero() {
		return tok.Expiry.Sub(now).Round(time.Second)
	}
	return 0
}

func reason(err *oauth2.RetrieveError) string {
	if err.ErrorCode != "" {
		return err.ErrorCode
	}
	return err.Error()
}

// rejectsGrant reports whether the endpoint answered with an OAuth error body, as opposed to an
// outage page or proxy error that carries no error code.
func rejectsGrant(err *oauth2.RetrieveError) bool {
	return err.ErrorCode != ""
}

func endpointStatus(err *oauth2.RetrieveError) string {
	if err.Response == nil {
		return "without a response"
	}
	return err.Response.Status
}
