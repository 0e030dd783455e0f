// Package observe provides observability primitives for the server
// supervisor.
//
// It is a pure instrumentation library: no lifecycle logic, no transport, no
// I/O beyond exporter setup. The lifecycle controller and its collaborators
// receive an Observer at construction time and never touch global telemetry
// state directly.
package observe
