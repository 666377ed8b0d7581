// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/muziek/internal/models"
	"github.com/desertthunder/muziek/internal/shared"
)

// MemorySettings is an in-memory [models.SettingsStore] that records commits.
type MemorySettings struct {
	mu        sync.Mutex
	committed map[string]string
	staged    map[string]string
	Commits   int
	CommitErr error
}

func NewMemorySettings(initial map[string]string) *MemorySettings {
	committed := map[string]string{}
	for k, v := range initial {
		committed[k] = v
	}
	return &MemorySettings{committed: committed, staged: map[string]string{}}
}

func (m *MemorySettings) Get(key, fallback string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.staged[key]
	if !ok {
		v, ok = m.committed[key]
	}
	if !ok || v == "" {
		return fallback, nil
	}
	return v, nil
}

func (m *MemorySettings) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staged[key] = value
}

func (m *MemorySettings) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CommitErr != nil {
		return m.CommitErr
	}
	for k, v := range m.staged {
		if v == "" {
			delete(m.committed, k)
		} else {
			m.committed[k] = v
		}
	}
	clear(m.staged)
	m.Commits++
	return nil
}

// Committed returns the durable value of key.
func (m *MemorySettings) Committed(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.committed[key]
}

// CallbackBrowser plays the user's browser: on Open it follows the authorization URL straight to
// its redirect_uri, answering with the next code, or with Error when set.
type CallbackBrowser struct {
	mu     sync.Mutex
	Codes  []string
	Error  string
	State  string // overrides the state echoed back when non-empty
	Client *http.Client
	opened []string
}

func (b *CallbackBrowser) Open(raw string) error {
	b.mu.Lock()
	b.opened = append(b.opened, raw)
	code := ""
	if len(b.Codes) > 0 {
		code, b.Codes = b.Codes[0], b.Codes[1:]
	}
	b.mu.Unlock()

	u, err := url.Parse(raw)
	if err != nil {
		return err
	}

	q := u.Query()
	params := url.Values{"state": {q.Get("state")}}
	if b.State != "" {
		params.Set("state", b.State)
	}
	if b.Error != "" {
		params.Set("error", b.Error)
	} else if code != "" {
		params.Set("code", code)
	}

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Get(q.Get("redirect_uri") + "?" + params.Encode())
	if err != nil {
		return fmt.Errorf("callback failed: %w", err)
	}
	return resp.Body.Close()
}

// Opened returns every URL passed to Open.
func (b *CallbackBrowser) Opened() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.opened...)
}

// StaticAuthorizer hands out fixed headers and counts calls.
type StaticAuthorizer struct {
	mu    sync.Mutex
	Token string
	Err   error
	Calls int
}

func (a *StaticAuthorizer) Headers(ctx context.Context) (http.Header, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Calls++
	if a.Err != nil {
		return nil, a.Err
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+a.Token)
	h.Set("Accept", "application/json")
	return h, nil
}

// FreeAddr returns a loopback address with a port that was free a moment ago.
func FreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().String()
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// MockPlaylistService is an in-memory playlist catalog.
type MockPlaylistService struct {
	mu        sync.Mutex
	Items     []*models.Playlist
	Songs     map[string][]models.PlaylistEntry // entries by playlist ID
	Err       error
	Added     []string // "playlistID/videoID/note" per AddSong call
	Fetches   int
	nextIndex int
}

func (m *MockPlaylistService) Name() string { return "mock" }

func (m *MockPlaylistService) Playlists(ctx context.Context) ([]*models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetches++
	return m.Items, m.Err
}

func (m *MockPlaylistService) GetPlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.Items {
		if strings.EqualFold(p.Title, name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, name)
}

func (m *MockPlaylistService) Entries(ctx context.Context, p *models.Playlist) ([]models.PlaylistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if entries, ok := p.Entries(); ok {
		return entries, nil
	}
	entries := append([]models.PlaylistEntry(nil), m.Songs[p.ID]...)
	p.SetEntries(entries)
	return entries, nil
}

func (m *MockPlaylistService) CreatePlaylist(ctx context.Context, title, description string, private bool) (*models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.nextIndex++
	privacy := "public"
	if private {
		privacy = "private"
	}
	p := &models.Playlist{ID: fmt.Sprintf("PLmock%d", m.nextIndex), Title: title, Description: description, Privacy: privacy}
	p.SetEntries([]models.PlaylistEntry{})
	m.Items = append(m.Items, p)
	return p, nil
}

func (m *MockPlaylistService) AddSong(ctx context.Context, p *models.Playlist, ref, note string) (models.PlaylistEntry, error) {
	videoID, err := models.ParseVideoID(ref)
	if err != nil {
		return models.PlaylistEntry{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return models.PlaylistEntry{}, m.Err
	}
	entry := models.PlaylistEntry{ID: fmt.Sprintf("item%d", len(m.Added)+1), VideoID: videoID}
	m.Added = append(m.Added, p.ID+"/"+videoID+"/"+note)
	p.AppendEntry(entry)
	return entry, nil
}

func (m *MockPlaylistService) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Items {
		p.InvalidateEntries()
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
