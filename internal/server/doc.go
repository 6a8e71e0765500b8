// Package server implements the SecureRoom chat relay: clients join named
// rooms over a WebSocket, exchange messages and typing indicators, and see
// room presence.
//
// The implementation is organized into specialized files for the session
// registry, the wire protocol, hub fan-out, per-connection pumps,
// configuration, and HTTP wiring to keep the codebase maintainable and
// testable as the project grows.
package server
