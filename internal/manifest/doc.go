// Package manifest models the disembarking-passenger manifest for a flight
// call and fetches snapshots from the ground-operations API. Snapshots are
// immutable: a refresh replaces the whole value, never mutates it in place.
package manifest
