// Package server implements the tapwars game server: a single hub goroutine
// that owns the session registry and serializes every game action, the
// WebSocket client pumps that feed it, and the HTTP endpoints around them.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, the session registry, game actions, moderation,
// broadcast fanout, the income tick, routing and HTTP handlers.
package server
