// Package notifications delivers operator push notifications through ntfy.
// When no topic is configured the service degrades to a noop so callers
// never need to nil-check.
package notifications
