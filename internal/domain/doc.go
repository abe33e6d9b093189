// Package domain contains the core types shared across the server:
// channels, invites, sessions, messages, and voice presence.
package domain
