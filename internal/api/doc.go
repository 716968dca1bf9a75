// Package api defines the wire format of the daemon's HTTP API and a client
// for it. DTOs use camelCase JSON for browser consumers; timestamps are
// RFC3339 with milliseconds.
package api
