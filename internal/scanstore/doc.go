// Package scanstore persists the active session and its scan records in
// SQLite. Persistence is session-scoped: starting a session for a new flight
// wipes whatever the previous session left behind.
package scanstore
