// Package domain contains the core types of the exporter: source and
// destination document representations, sync actions and outcomes, the
// managed-ISSN allow-list and run settings.
//
// The package is pure: no I/O, no clients, no stores. Adapters depend on
// it, never the other way round.
package domain
