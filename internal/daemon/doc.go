// Package daemon coordinates the long-running bleep process.
//
// It wires configuration, the job store, the workflow manager, the watch
// folder and the HTTP API into a single lifecycle with flock-based locking to
// prevent multiple instances. Stale per-job work directories from earlier
// runs are reclaimed at startup.
//
// Keep orchestration here; censoring steps live in the pipeline package and
// job bookkeeping in workflow.
package daemon
