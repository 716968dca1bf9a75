// Package notifications posts job outcomes to an ntfy topic. With no topic
// configured every call is a no-op.
package notifications
