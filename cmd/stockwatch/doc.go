// Package main hosts the stockwatch entrypoint.
//
// stockwatch watches a catalog of shop products and posts a Discord alert when a product
// comes back in stock or sells out. Each product's availability is read from the shop's
// machine-readable product endpoint ("<product url>.js"); a product counts as available
// when any of its variants is.
//
// Commands:
//   - check: probe every product once, alert on transitions and probe failures, persist the
//     confirmed state, and send the daily summary when the trigger allows it. Designed for
//     a scheduled CI job.
//   - report: send the summary of the persisted state without probing.
//   - serve: run checks on an interval and expose /healthz, /metrics, /v1/status and
//     POST /v1/runs.
//
// Configuration comes from an optional YAML file (--config) and STOCKWATCH_* environment
// variables; DISCORD_WEBHOOK_URL and GITHUB_EVENT_NAME are accepted as aliases for the
// webhook URL and the trigger event.
//
// Exit codes: 0 on success (including an empty catalog or a missing webhook for check);
// 1 on invalid configuration, unreadable catalog, unreadable or unwritable state, or a
// report that cannot be delivered.
package main
