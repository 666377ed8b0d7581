// Package tasks runs long playlist operations with real-time progress reporting.
//
// # Backup
//
// [Exporter.Backup] writes each playlist of the authorized account to its own file in one directory,
// in any [formatter.Format], and finishes with a manifest.json summarizing the run:
//
//   - Playlists and their entries are fetched one after another from a single goroutine
//   - Rendering and file writes are spread over a small worker pool
//   - A playlist that fails is recorded in the manifest; the rest still complete
//
// # Progress Reporting
//
// Progress is sent on an optional channel as [ProgressUpdate] values carrying a [Phase],
// step counters and a display message. Sends never block: when the channel is full the update is dropped.
package tasks
