package models

// SettingsStore is a key/value store with staged writes.
//
// Set stages a value; nothing is durable until Commit. Setting an empty value removes the key.
type SettingsStore interface {
	Get(key, fallback string) (string, error) // Get returns the staged or committed value, or fallback when absent
	Set(key, value string)                    // Set stages a value for the next Commit
	Commit() error                            // Commit persists every staged value
}
