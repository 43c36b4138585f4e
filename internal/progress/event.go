// Package progress defines the event stream emitted by the crawl session and
// the hub that fans events out to reporting sinks.
package progress

import "time"

// Stage denotes the milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StageSessionStart  Stage = "SESSION_START"
	StageSessionDone   Stage = "SESSION_DONE"
	StageTaskDone      Stage = "TASK_DONE"
	StageTaskFailed    Stage = "TASK_FAILED"
	StageTaskSkipped   Stage = "TASK_SKIPPED"
	StageTaskRetried   Stage = "TASK_RETRIED"
	StageRecordEmitted Stage = "RECORD_EMITTED"
)

// Event captures one milestone of crawl progress.
type Event struct {
	// RunID identifies the session run emitting the event.
	RunID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage is the milestone kind.
	Stage Stage
	// PageType scopes task events to a router branch.
	PageType string
	// URL is the task URL, when applicable.
	URL string
	// Host scopes fetch-level events to a host label.
	Host string
	// Outcome carries the failure kind for TASK_FAILED events.
	Outcome string
	// Note attaches low-volume context such as error text.
	Note string
}
