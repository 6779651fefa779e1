// Package netx wraps TCP connections so that probe code can read byte
// counters, kernel TCP_INFO data and socket UUIDs where the platform
// supports them.
package netx
