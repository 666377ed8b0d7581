package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/muziek/internal/shared"
)

func startListener(t *testing.T, state string) (*CallbackListener, string) {
	t.Helper()

	l := NewCallbackListener("127.0.0.1:0", state, shared.NewLogger(io.Discard))
	if err := l.Start(); err != nil {
		t.Fatalf("failed to start listener: %v", err)
	}
	return l, "http://" + l.Addr()
}

func get(t *testing.T, base, path string, query url.Values) int {
	t.Helper()

	resp, err := http.Get(base + path + "?" + query.Encode())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func TestCallbackListener(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the code from a matching callback", func(t *testing.T) {
		l, base := startListener(t, "s1")

		if code := get(t, base, CallbackPath, url.Values{"state": {"s1"}, "code": {"C1"}}); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}

		got, err := l.Wait(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "C1" {
			t.Errorf("expected code C1, got %s", got)
		}
	})

	t.Run("mismatched state keeps listening", func(t *testing.T) {
		l, base := startListener(t, "s1")

		if code := get(t, base, CallbackPath, url.Values{"state": {"old"}, "code": {"STALE"}}); code != http.StatusInternalServerError {
			t.Fatalf("expected 500 for foreign state, got %d", code)
		}

		if code := get(t, base, CallbackPath, url.Values{"state": {"s1"}, "code": {"C2"}}); code != http.StatusOK {
			t.Fatalf("expected 200 for matching state, got %d", code)
		}

		got, err := l.Wait(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "C2" {
			t.Errorf("expected code C2, got %s", got)
		}
	})

	t.Run("missing code keeps listening", func(t *testing.T) {
		l, base := startListener(t, "s1")

		if code := get(t, base, CallbackPath, url.Values{"state": {"s1"}}); code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", code)
		}

		if code := get(t, base, StopPath, nil); code != http.StatusOK {
			t.Fatalf("expected 200 from stop, got %d", code)
		}

		_, err := l.Wait(ctx)
		if !errors.Is(err, shared.ErrAuthorizationAborted) {
			t.Fatalf("expected ErrAuthorizationAborted, got %v", err)
		}
		if l.Reason() != "listener stopped" {
			t.Errorf("unexpected reason %q", l.Reason())
		}
	})

	t.Run("user denial aborts", func(t *testing.T) {
		l, base := startListener(t, "s1")

		if code := get(t, base, CallbackPath, url.Values{"state": {"s1"}, "error": {"access_denied"}}); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}

		_, err := l.Wait(ctx)
		if !errors.Is(err, shared.ErrAuthorizationAborted) {
			t.Fatalf("expected ErrAuthorizationAborted, got %v", err)
		}
		if l.Reason() != "access_denied" {
			t.Errorf("expected reason access_denied, got %q", l.Reason())
		}
	})

	t.Run("only the first terminating callback counts", func(t *testing.T) {
		l, base := startListener(t, "s1")

		get(t, base, CallbackPath, url.Values{"state": {"s1"}, "code": {"FIRST"}})
		if code := get(t, base, CallbackPath, url.Values{"state": {"s1"}, "code": {"SECOND"}}); code != http.StatusGone {
			t.Errorf("expected 410 after termination, got %d", code)
		}

		if got, _ := l.Wait(ctx); got != "FIRST" {
			t.Errorf("expected FIRST, got %s", got)
		}
	})

	t.Run("stops accepting connections after Wait", func(t *testing.T) {
		l, base := startListener(t, "s1")
		get(t, base, CallbackPath, url.Values{"state": {"s1"}, "code": {"C1"}})

		if _, err := l.Wait(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		client := &http.Client{Timeout: time.Second}
		if resp, err := client.Get(base + CallbackPath); err == nil {
			resp.Body.Close()
			t.Error("expected connection failure after shutdown")
		}
	})

	t.Run("times out", func(t *testing.T) {
		l, _ := startListener(t, "s1")

		tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		_, err := l.Wait(tctx)
		if !errors.Is(err, shared.ErrTimeout) || !errors.Is(err, shared.ErrAuthorizationAborted) {
			t.Fatalf("expected timeout abort, got %v", err)
		}
	})

	t.Run("address already in use", func(t *testing.T) {
		l, _ := startListener(t, "s1")
		defer l.Wait(canceled())

		if err := NewCallbackListener(l.Addr(), "s2", shared.NewLogger(io.Discard)).Start(); err == nil {
			t.Error("expected bind failure on a busy address")
		}
	})
}

func TestStopListener(t *testing.T) {
	t.Run("stops a running listener", func(t *testing.T) {
		l, _ := startListener(t, "s1")

		if err := StopListener(context.Background(), nil, l.Addr()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := l.Wait(context.Background()); !errors.Is(err, shared.ErrAuthorizationAborted) {
			t.Errorf("expected abort after stop, got %v", err)
		}
	})

	t.Run("nothing listening", func(t *testing.T) {
		l, _ := startListener(t, "s1")
		addr := l.Addr()
		l.Wait(canceled())

		err := StopListener(context.Background(), &http.Client{Timeout: time.Second}, addr)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func canceled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// brokenWriter accepts headers but fails every body write, like a client that hung up.
type brokenWriter struct{ *httptest.ResponseRecorder }

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

func TestCallbackListener_Reply(t *testing.T) {
	t.Run("logs pages that could not be written", func(t *testing.T) {
		var logs bytes.Buffer
		logger := shared.NewLogger(&logs)
		shared.SetLogLevel(logger, log.DebugLevel)
		l := NewCallbackListener("127.0.0.1:0", "s1", logger)

		w := brokenWriter{httptest.NewRecorder()}
		l.reply(w, http.StatusOK, "Stopped", "bye")

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
		out := logs.String()
		if !strings.Contains(out, "failed to write page") || !strings.Contains(out, "connection reset by peer") {
			t.Errorf("expected write failure to be logged, got %q", out)
		}
	})
}
