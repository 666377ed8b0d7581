// Package services implements delegated access to a YouTube account and the playlist client built on it.
//
// # Token Manager
//
// [TokenManager] runs the OAuth2 authorization code grant for a desktop application. Consent is
// collected through the user's browser and the redirect is captured by a single-use loopback
// listener (see the server package). The manager moves through these states:
//
//	unauthorized -> pending (browser open, listener waiting) -> authorized
//	authorized -> refreshing -> authorized
//
// The first exchange after consent uses grant_type=authorization_code; later ones use the refresh
// token. Tokens are renewed at half their lifetime. If the token endpoint rejects the grant, the
// user is prompted once more and the exchange retried a single time before [shared.ErrRefreshFailed]
// is returned.
//
// All token material is written to a [models.SettingsStore] under a key prefix and committed after
// every change.
//
// # YouTube Implementation
//
// [YouTubeService] calls the YouTube Data API v3 with headers from an [Authorizer]. List endpoints
// are followed through nextPageToken until exhausted. Playlists and entries are cached until
// [YouTubeService.Invalidate]; creating a playlist or adding a song updates the caches in place.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrInvalidInput] : malformed video reference, raised before any request
//   - [shared.ErrAuthorizationAborted] : consent denied, or the callback never arrived
//   - [shared.ErrRefreshFailed] : the token endpoint rejected a fresh grant
//   - [shared.ErrAPIRequest] : the platform rejected a request ([APIError] carries the reasons)
//   - [shared.ErrInsufficientScope] : the token lacks the scope the request needs
//   - [shared.ErrPlaylistNotFound] : no playlist has the requested title
package services
