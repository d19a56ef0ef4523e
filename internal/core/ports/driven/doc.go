// Package driven defines the outbound ports of the exporter core: the
// source catalogue client, the destination index client, the PID-mapping
// store and the result writer. Adapters implement these interfaces; the
// core never imports an adapter.
package driven
