package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/muziek/internal/shared"
)

const (
	CallbackPath = shared.CallbackPath
	StopPath     = "/stop"

	shutdownTimeout = 5 * time.Second
)

var page = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

// CallbackListener is a single-use local HTTP server that captures one OAuth2 redirect.
//
// Callbacks whose state does not match are answered with 500 and ignored, so a stale redirect cannot
// end the attempt. The first callback with a matching state carrying a code or an error, or a
// request to [StopPath], terminates the listener. It never returns to listening afterwards.
type CallbackListener struct {
	addr   string
	state  string
	logger *log.Logger

	mu     sync.Mutex
	code   string
	reason string

	done chan struct{}
	once sync.Once

	ln  net.Listener
	srv *http.Server
}

// NewCallbackListener creates a listener for addr that accepts redirects carrying state.
func NewCallbackListener(addr, state string, logger *log.Logger) *CallbackListener {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CallbackListener{
		addr:   addr,
		state:  state,
		logger: shared.WithLogger(logger, "component", "callback", "attempt", shared.GenerateID()[:8]),
		done:   make(chan struct{}),
	}
}

// Start binds the address and serves requests in the background.
func (l *CallbackListener) Start() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("failed to bind callback listener on %s: %w", l.addr, err)
	}

	router := NewBasicRouter()
	router.Use(RequestLogger(l.logger))
	router.Handle(http.MethodGet, CallbackPath, http.HandlerFunc(l.handleCallback))
	router.Handle(http.MethodGet, StopPath, http.HandlerFunc(l.handleStop))

	l.ln = ln
	l.srv = &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error("callback listener stopped unexpectedly", "error", err)
			l.terminate("", err.Error())
		}
	}()

	l.logger.Debug("listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, which differs from the requested one when port 0 was used.
func (l *CallbackListener) Addr() string {
	if l.ln == nil {
		return l.addr
	}
	return l.ln.Addr().String()
}

// Wait blocks until the listener terminates or ctx is done, then shuts the server down.
//
// It returns the authorization code, or an error matching [shared.ErrAuthorizationAborted] when the
// attempt ended without one. A ctx deadline additionally matches [shared.ErrTimeout].
func (l *CallbackListener) Wait(ctx context.Context) (string, error) {
	defer l.shutdown()

	select {
	case <-l.done:
	case <-ctx.Done():
		l.terminate("", "no callback received")
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w: no callback received", shared.ErrAuthorizationAborted, shared.ErrTimeout)
		}
		return "", fmt.Errorf("%w: %v", shared.ErrAuthorizationAborted, ctx.Err())
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.code == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrAuthorizationAborted, l.reason)
	}
	return l.code, nil
}

// Reason returns why the attempt ended without a code, if it did.
func (l *CallbackListener) Reason() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reason
}

func (l *CallbackListener) handleCallback(w http.ResponseWriter, r *http.Request) {
	if l.terminated() {
		l.reply(w, http.StatusGone, "Already done", "This authorization attempt is over. Please return to the application.")
		return
	}

	query := r.URL.Query()

	if state := query.Get("state"); state != l.state {
		l.logger.Debug("unexpected state", "state", state)
		l.reply(w, http.StatusInternalServerError, "Unexpected state", fmt.Sprintf("Unexpected state: %s", state))
		return
	}

	if reason := query.Get("error"); reason != "" {
		l.logger.Debug("authorization aborted", "reason", reason)
		l.reply(w, http.StatusOK, "Authorization aborted", fmt.Sprintf("Authorization aborted. Reason: %s", reason))
		l.terminate("", reason)
		return
	}

	code := query.Get("code")
	if code == "" {
		l.logger.Debug(`the parameter "code" is missing`)
		l.reply(w, http.StatusInternalServerError, "Missing code", `The parameter "code" is missing.`)
		return
	}

	l.reply(w, http.StatusOK, "Authorization successful", "Your token has been saved. You can close this tab and return to the application.")
	l.terminate(code, "")
}

func (l *CallbackListener) handleStop(w http.ResponseWriter, _ *http.Request) {
	l.reply(w, http.StatusOK, "Stopped", "bye")
	l.terminate("", "listener stopped")
}

// terminate records the outcome of the first terminating request only.
func (l *CallbackListener) terminate(code, reason string) {
	l.once.Do(func() {
		l.mu.Lock()
		l.code, l.reason = code, reason
		l.mu.Unlock()
		close(l.done)
	})
}

func (l *CallbackListener) terminated() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// shutdown runs outside request handlers, so it cannot deadlock against one in flight.
func (l *CallbackListener) shutdown() {
	if l.srv == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	l.logger.Info("stopping server")
	if err := l.srv.Shutdown(ctx); err != nil {
		l.logger.Warn("graceful shutdown failed, closing", "error", err)
		l.srv.Close()
	}
}

func (l *CallbackListener) reply(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Connection", "close")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Execute(w, struct{ Title, Message string }{title, message}); err != nil {
		l.logger.Debug("failed to write page", "title", title, "error", err)
	}
}

// StopListener asks a listener bound to addr to terminate, e.g. from a second process.
func StopListener(ctx context.Context, client *http.Client, addr string) error {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+StopPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: no listener on %s: %v", shared.ErrServiceUnavailable, addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: stop returned status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}
	return nil
}
