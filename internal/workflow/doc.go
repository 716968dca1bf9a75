// Package workflow runs queued censoring jobs.
//
// The Manager polls the job store, claims up to the configured number of
// jobs at a time, acquires each source, and hands it to the pipeline. Progress
// is persisted to the store and published to the progress hub for live
// clients. Heartbeats keep claimed jobs alive; jobs whose heartbeat goes stale
// are returned to the queue.
package workflow
