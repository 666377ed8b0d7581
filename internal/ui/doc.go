// Package ui implements an interactive terminal browser for YouTube playlists using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [PlaylistListView] : Browse the account's playlists (n creates one, r reloads)
//  2. [EntryListView] : Browse the songs of a playlist (a adds one, o opens it in the browser)
//  3. [InputView] : Prompt for a playlist title or a video URL/identifier
//
// Remote calls run as [tea.Cmd] functions and report back through the Msg union type. Creating
// playlists and adding songs are only offered when the token carries the modify scope.
//
// Keyboard navigation uses the bubbles list bindings plus enter, esc, and q, with contextual help displayed via charmbracelet/bubbles/help.
package ui
