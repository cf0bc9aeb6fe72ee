package journal

import "time"

// Kind identifies which workflow produced a run record.
type Kind string

const (
	KindRender   Kind = "render"
	KindRestore  Kind = "restore"
	KindSnapshot Kind = "snapshot"
	KindSpell    Kind = "spell"
)

var allKinds = []Kind{
	KindRender,
	KindRestore,
	KindSnapshot,
	KindSpell,
}

var kindSet = func() map[Kind]struct{} {
	set := make(map[Kind]struct{}, len(allKinds))
	for _, kind := range allKinds {
		set[kind] = struct{}{}
	}
	return set
}()

// KnownKind reports whether kind names a workflow the journal records.
func KnownKind(kind Kind) bool {
	_, ok := kindSet[kind]
	return ok
}

// Kinds returns every workflow kind in display order.
func Kinds() []Kind {
	kinds := make([]Kind, len(allKinds))
	copy(kinds, allKinds)
	return kinds
}

// Status represents the lifecycle of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// InterruptedReason is the error message set on runs that never reached a
// terminal status, typically after a crash or Ctrl-C.
const InterruptedReason = "interrupted before completion"

// Artifact describes one output file produced by a run.
type Artifact struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Bytes  int64  `json:"bytes"`
}

// Run is a single journal entry covering one workflow invocation.
type Run struct {
	ID              int64
	UUID            string
	Kind            Kind
	Status          Status
	Detail          string
	ErrorMessage    string
	Artifacts       []Artifact
	StartedAt       time.Time
	FinishedAt      *time.Time
	DurationSeconds float64
}

// Finished reports whether the run reached a terminal status.
func (r *Run) Finished() bool {
	return r != nil && (r.Status == StatusSucceeded || r.Status == StatusFailed)
}

// HealthSummary aggregates run counts per lifecycle state.
type HealthSummary struct {
	Total     int
	Running   int
	Succeeded int
	Failed    int
}
