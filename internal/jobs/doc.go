// Package jobs persists censoring jobs in SQLite so the daemon can queue
// work, report progress, and recover after a restart.
//
// Jobs move queued → processing → completed | failed | canceled. A processing
// job whose heartbeat goes stale is returned to queued by the workflow
// manager.
package jobs
