// Package models defines the domain types shared by the YouTube integration.
//
//   - [Token] : OAuth2 credential state for the local user, with its refresh policy
//   - [Playlist] : a remote playlist and its lazily fetched entries
//   - [PlaylistEntry] : one video in a playlist
//   - [SettingsStore] : the key/value persistence contract token material is written through
//
// Video references are normalized with [ParseVideoID], which rejects anything that is not an
// 11 character platform identifier before a request is ever made.
package models
