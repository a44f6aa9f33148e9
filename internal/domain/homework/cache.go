// internal/domain/homework/cache.go
package homework

// StatusCache remembers the last status the bot has notified about.
// The zero value means nothing has been observed yet.
type StatusCache struct {
	Last Status
}

// Seen reports whether s is the status already remembered.
func (c StatusCache) Seen(s Status) bool {
	return c.Last != "" && c.Last == s
}

// With returns a cache holding s.
func (c StatusCache) With(s Status) StatusCache {
	return StatusCache{Last: s}
}
