// Package services implements the exporter core: candidate selection, the
// per-PID sync decision engine, the retrying dispatcher and the verb-level
// orchestrator. Services depend only on domain types and ports.
package services
