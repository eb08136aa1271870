// Package dev provides the local registry server behind `scenes dev`.
//
// The server consists of:
//
//   - Watcher: fsnotify watch of the manifest, the scene tree and the
//     vocabulary override, reported in debounced batches
//   - Server: a chi router serving generated artifacts from the output
//     directory, with health and Prometheus endpoints
//   - ReloadServer: notifies connected clients of rebuilds via WebSocket
//
// Every batch of changes reruns the pipeline. Scene sources named in the
// batch are dropped from the source cache first; the manifest is reread on
// every run.
//
// # Usage
//
//	srv, err := dev.NewServer(dev.ServerOptions{Config: cfg})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
//
// # Reload Protocol
//
// Clients connect to /_scenes/reload. Messages are JSON-encoded:
//
//	{"type": "rebuild", "items": ["pricing-01"], "errors": 0, "warnings": 1}
//	{"type": "error", "error": "Validation complete: 2 error(s), 0 warning(s)", "errors": 2, "warnings": 0}
package dev
