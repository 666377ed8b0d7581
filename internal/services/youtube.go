// YouTube Data API v3 implementation of [PlaylistService]
//
// Resource shapes based on https://developers.google.com/youtube/v3/docs
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/muziek/internal/models"
	"github.com/desertthunder/muziek/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultYTBaseURL = "https://www.googleapis.com/youtube/v3"
	defaultPageSize  = 50
	maxPageSize      = 50
	privacyPrivate   = "private"
	privacyPublic    = "public"
	kindVideo        = "youtube#video"
	reasonNoScope    = "insufficientPermissions"
)

type ytSnippet struct {
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	ChannelTitle string      `json:"channelTitle,omitempty"`
	PlaylistID   string      `json:"playlistId,omitempty"`
	ResourceID   *resourceID `json:"resourceId,omitempty"`
}

type resourceID struct {
	Kind    string `json:"kind"`
	VideoID string `json:"videoId"`
}

type ytStatus struct {
	PrivacyStatus string `json:"privacyStatus"`
}

type ytContentDetails struct {
	Note string `json:"note,omitempty"`
}

// YouTubePlaylist is a playlist resource as returned by the playlists endpoint.
type YouTubePlaylist struct {
	ID      string    `json:"id,omitempty"`
	Snippet ytSnippet `json:"snippet"`
	Status  *ytStatus `json:"status,omitempty"`
}

// YouTubePlaylistItem is a playlistItems resource.
type YouTubePlaylistItem struct {
	ID             string            `json:"id,omitempty"`
	Snippet        ytSnippet         `json:"snippet"`
	ContentDetails *ytContentDetails `json:"contentDetails,omitempty"`
}

type page[T any] struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []T    `json:"items"`
}

// APIError is a request rejected by the platform. It matches [shared.ErrAPIRequest], and
// [shared.ErrInsufficientScope] when the token lacks the required scope.
type APIError struct {
	StatusCode int
	Message    string
	Reasons    []string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("youtube API error (status %d)", e.StatusCode)
	if len(e.Reasons) > 0 {
		msg += ": " + strings.Join(e.Reasons, ", ")
	}
	if e.Message != "" {
		msg += " (" + e.Message + ")"
	}
	return msg
}

func (e *APIError) Unwrap() []error {
	errs := []error{shared.ErrAPIRequest}
	for _, r := range e.Reasons {
		if r == reasonNoScope {
			errs = append(errs, shared.ErrInsufficientScope)
			break
		}
	}
	return errs
}

// YouTubeOpts configures a [YouTubeService].
type YouTubeOpts struct {
	BaseURL           string
	Auth              Authorizer
	HTTPClient        *http.Client
	PageSize          int
	RequestsPerSecond float64 // 0 disables limiting
	Logger            *log.Logger
}

// YouTubeService implements [PlaylistService] for the YouTube Data API.
type YouTubeService struct {
	baseURL    string
	auth       Authorizer
	httpClient *http.Client
	pageSize   int
	limiter    *rate.Limiter
	logger     *log.Logger

	mu        sync.Mutex
	playlists []*models.Playlist
	loaded    bool
}

// NewYouTubeService creates a new YouTube service instance.
func NewYouTubeService(opts YouTubeOpts) (*YouTubeService, error) {
	if opts.Auth == nil {
		return nil, fmt.Errorf("%w: authorizer", shared.ErrMissingArgument)
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &YouTubeService{
		baseURL:    baseURL,
		auth:       opts.Auth,
		httpClient: client,
		pageSize:   pageSize,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     shared.WithLogger(logger, "component", "youtube"),
	}, nil
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube"
}

// doRequest performs an authenticated request. Every call asks the authorizer for fresh headers.
func (y *YouTubeService) doRequest(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	if err := y.limiter.Wait(ctx); err != nil {
		return err
	}

	headers, err := y.auth.Headers(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	apiURL := y.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range headers {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	y.logger.Debug("request", "method", method, "endpoint", endpoint, "page", query.Get("pageToken"))

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Errors  []struct {
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
		apiErr.Message = errResp.Error.Message
		for _, e := range errResp.Error.Errors {
			apiErr.Reasons = append(apiErr.Reasons, e.Reason)
		}
	}

	return apiErr
}

// paginate follows nextPageToken until a page carries none.
func paginate[T any](ctx context.Context, y *YouTubeService, endpoint string, query url.Values) ([]T, error) {
	query.Set("maxResults", strconv.Itoa(y.pageSize))
	query.Del("pageToken")

	var all []T
	for {
		var p page[T]
		if err := y.doRequest(ctx, http.MethodGet, endpoint, query, nil, &p); err != nil {
			return nil, err
		}

		all = append(all, p.Items...)
		if p.NextPageToken == "" {
			return all, nil
		}
		query.Set("pageToken", p.NextPageToken)
	}
}

// Playlists retrieves all playlists of the authenticated user, once.
//
// Calls GET /playlists?mine=true&part=snippet.
func (y *YouTubeService) Playlists(ctx context.Context) ([]*models.Playlist, error) {
	y.mu.Lock()
	defer y.mu.Unlock()

	if y.loaded {
		return y.playlists, nil
	}

	items, err := paginate[YouTubePlaylist](ctx, y, "/playlists", url.Values{"mine": {"true"}, "part": {"snippet"}})
	if err != nil {
		return nil, err
	}

	playlists := make([]*models.Playlist, len(items))
	for i, item := range items {
		playlists[i] = toPlaylist(item)
	}

	y.playlists, y.loaded = playlists, true
	y.logger.Debug("fetched playlists", "count", len(playlists))
	return playlists, nil
}

// GetPlaylist returns the first playlist whose title equals name, ignoring case.
func (y *YouTubeService) GetPlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	playlists, err := y.Playlists(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range playlists {
		if strings.EqualFold(p.Title, name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, name)
}

// Entries retrieves the items of p on first use and caches them on p.
//
// Calls GET /playlistItems?part=snippet&playlistId={id}.
func (y *YouTubeService) Entries(ctx context.Context, p *models.Playlist) ([]models.PlaylistEntry, error) {
	y.mu.Lock()
	defer y.mu.Unlock()

	if entries, ok := p.Entries(); ok {
		return entries, nil
	}

	items, err := paginate[YouTubePlaylistItem](ctx, y, "/playlistItems", url.Values{"part": {"snippet"}, "playlistId": {p.ID}})
	if err != nil {
		return nil, err
	}

	entries := make([]models.PlaylistEntry, 0, len(items))
	for _, item := range items {
		entry, err := toEntry(item)
		if err != nil {
			y.logger.Warn("skipping playlist item", "playlist", p.ID, "item", item.ID, "error", err)
			continue
		}
		entries = append(entries, entry)
	}

	p.SetEntries(entries)
	return entries, nil
}

// CreatePlaylist creates a playlist owned by the authenticated user.
//
// Calls POST /playlists?part=snippet,status. The new playlist is appended to the cached collection when there is one.
func (y *YouTubeService) CreatePlaylist(ctx context.Context, title, description string, private bool) (*models.Playlist, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &models.ValidationError{Field: "playlist title", Value: title}
	}

	privacy := privacyPublic
	if private {
		privacy = privacyPrivate
	}

	body := YouTubePlaylist{
		Snippet: ytSnippet{Title: title, Description: description},
		Status:  &ytStatus{PrivacyStatus: privacy},
	}

	y.mu.Lock()
	defer y.mu.Unlock()

	var created YouTubePlaylist
	query := url.Values{"part": {"snippet,status"}}
	if err := y.doRequest(ctx, http.MethodPost, "/playlists", query, body, &created); err != nil {
		return nil, err
	}

	p := toPlaylist(created)
	p.SetEntries([]models.PlaylistEntry{})
	if y.loaded {
		y.playlists = append(y.playlists, p)
	}

	y.logger.Info("created playlist", "id", p.ID, "title", p.Title)
	return p, nil
}

// AddSong appends a video to p.
//
// The reference is validated before any request is made. Calls POST /playlistItems?part=snippet[,contentDetails].
func (y *YouTubeService) AddSong(ctx context.Context, p *models.Playlist, ref, note string) (models.PlaylistEntry, error) {
	videoID, err := models.ParseVideoID(ref)
	if err != nil {
		return models.PlaylistEntry{}, err
	}

	body := YouTubePlaylistItem{
		Snippet: ytSnippet{
			PlaylistID: p.ID,
			ResourceID: &resourceID{Kind: kindVideo, VideoID: videoID},
		},
	}
	part := "snippet"
	if note != "" {
		body.ContentDetails = &ytContentDetails{Note: note}
		part += ",contentDetails"
	}

	y.mu.Lock()
	defer y.mu.Unlock()

	var created YouTubePlaylistItem
	if err := y.doRequest(ctx, http.MethodPost, "/playlistItems", url.Values{"part": {part}}, body, &created); err != nil {
		return models.PlaylistEntry{}, err
	}

	if created.Snippet.ResourceID == nil {
		created.Snippet.ResourceID = body.Snippet.ResourceID
	}
	entry, err := toEntry(created)
	if err != nil {
		return models.PlaylistEntry{}, err
	}

	p.AppendEntry(entry)
	y.logger.Info("added song", "playlist", p.Title, "video", entry.VideoID)
	return entry, nil
}

// Invalidate drops the cached playlists and their entries.
func (y *YouTubeService) Invalidate() {
	y.mu.Lock()
	defer y.mu.Unlock()

	for _, p := range y.playlists {
		p.InvalidateEntries()
	}
	y.playlists, y.loaded = nil, false
}

func toPlaylist(item YouTubePlaylist) *models.Playlist {
	p := &models.Playlist{
		ID:          item.ID,
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
		Owner:       item.Snippet.ChannelTitle,
	}
	if item.Status != nil {
		p.Privacy = item.Status.PrivacyStatus
	}
	return p
}

func toEntry(item YouTubePlaylistItem) (models.PlaylistEntry, error) {
	var videoID string
	if item.Snippet.ResourceID != nil {
		videoID = item.Snippet.ResourceID.VideoID
	}
	return models.NewPlaylistEntry(item.ID, videoID, item.Snippet.Title)
}
