// Package repositories implements the persistent key/value settings behind [models.SettingsStore].
//
// Two backends are available, selected by the settings.backend config key:
//   - [SettingsRepository] : the settings table in the SQLite database, staged writes committed in one transaction
//   - [KeyringSettings] : the operating system keyring via go-keyring, one secret per key
//
// Both stage writes in memory until Commit. Setting a key to "" deletes it on commit.
package repositories
