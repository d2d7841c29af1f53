// Package server implements the HTTP and WebSocket transport for the
// Spindle chat coordinator.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, routing, metrics, and HTTP handlers to keep the
// codebase maintainable and testable as the project grows.
package server
