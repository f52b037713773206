// Package events defines the event subjects published on the optional event
// bus (the Status Channel and Container Supervisor's "optional NATS/memory
// fan-out" per §4.8) so external subscribers can react to session lifecycle
// transitions without tailing state directories themselves.
package events

// Event types for session lifecycle transitions (§4.2, §4.5).
const (
	SessionStarted   = "session.started"
	SessionFinished  = "session.finished"
	SessionCancelled = "session.cancelled"
	SessionCrashed   = "session.crashed"
	SessionRecovered = "session.recovered"
	SessionArchived  = "session.archived"
)

// Event types for the Status Channel (§4.8).
const (
	StatusUpdated = "status.updated"
)

// Event types for the Container Supervisor's phase machine (§4.5).
const (
	ContainerPhaseChanged = "container.phase_changed"
)

// BuildSessionSubject returns the subject used for all events concerning a
// single named session, so subscribers can filter with a NATS wildcard
// (e.g. "session.my-feature.>") without parsing event payloads.
func BuildSessionSubject(sessionName, eventType string) string {
	return "session." + sessionName + "." + eventType
}
