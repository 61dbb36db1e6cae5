// Package api hosts the HTTP surface of the serve command. Routes:
//   - GET /healthz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/status for the catalog joined with the persisted stock state.
//   - POST /v1/runs to start a manual check.
package api
