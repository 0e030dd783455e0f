// Package health maintains the registry of named health probes and their
// per-probe health records.
//
// Each probe is raced against a fixed check timeout. Failed checks advance a
// sticky per-probe error count that only a healthy result resets; once the
// count reaches the configured limit the probe's status escalates from
// degraded to unhealthy. Probes marked critical participate in the lifecycle
// controller's startup validation.
package health
