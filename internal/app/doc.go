// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle, decoupled
// from any specific entrypoint like a CLI or server.
//
// An App replays a stream of bundles through one selected model and writes
// every result bundle to its output. It can reload an HCL settings file while
// running and serves /health and /metrics when a port is configured.
package app
