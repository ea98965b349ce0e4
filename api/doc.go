// Package api documents the LanMirror control API.
//
// The control server listens on loopback only (default 127.0.0.1:9091) and
// exposes:
//
//	GET  /health, /healthz        liveness
//	GET  /ready                   200 while the mirror is running, else 503
//	GET  /version                 build information
//	GET  /metrics                 Prometheus exposition
//	GET  /api/v1/status           current mirror status
//	GET  /api/v1/status/stream    WebSocket stream of status transitions
//	POST /api/v1/server/start     start the mirror (optional ?port=n)
//	POST /api/v1/server/stop      stop the mirror
//
// JSON responses use the envelope
//
//	{"success": bool, "data": ..., "error": {"code", "message"}, "timestamp": ...}
//
// Handlers live in the handlers subpackage.
package api
