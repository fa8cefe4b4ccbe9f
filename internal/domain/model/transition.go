package model

import "fmt"

// Transition is one legal edge of the queue state graph. Its fields are
// unexported, so the only values that exist are the ones declared below;
// callers cannot assemble an arbitrary (from, to) pair.
type Transition struct {
	name string
	from QueueStatus
	to   QueueStatus
}

// The complete queue state graph.
var (
	TransitionStartProcessing   = Transition{"start_processing", QueueStatusPending, QueueStatusProcessing}
	TransitionMarkUploaded      = Transition{"mark_uploaded", QueueStatusProcessing, QueueStatusUploaded}
	TransitionMarkReadyToPrint  = Transition{"mark_ready_to_print", QueueStatusUploaded, QueueStatusReadyToPrint}
	TransitionStartMerging      = Transition{"start_merging", QueueStatusReadyToPrint, QueueStatusMerging}
	TransitionMarkDone          = Transition{"mark_done", QueueStatusMerging, QueueStatusDone}
	TransitionAnnotateMergeFail = Transition{"annotate_merge_error", QueueStatusMerging, QueueStatusMerging}
	TransitionMarkFailed        = Transition{"mark_failed", QueueStatusProcessing, QueueStatusFailed}
	TransitionCancel            = Transition{"cancel", QueueStatusPending, QueueStatusCanceled}
)

var transitionTable = []Transition{
	TransitionStartProcessing,
	TransitionMarkUploaded,
	TransitionMarkReadyToPrint,
	TransitionStartMerging,
	TransitionMarkDone,
	TransitionAnnotateMergeFail,
	TransitionMarkFailed,
	TransitionCancel,
}

// Transitions returns a copy of the state graph.
func Transitions() []Transition {
	out := make([]Transition, len(transitionTable))
	copy(out, transitionTable)
	return out
}

// LookupTransition returns the edge from -> to if the graph has one.
func LookupTransition(from, to QueueStatus) (Transition, bool) {
	for _, t := range transitionTable {
		if t.from == from && t.to == to {
			return t, true
		}
	}
	return Transition{}, false
}

// Name is the stable identifier used in logs and metrics.
func (t Transition) Name() string { return t.name }

// From is the status the item must currently hold.
func (t Transition) From() QueueStatus { return t.from }

// To is the status written on success.
func (t Transition) To() QueueStatus { return t.to }

// Valid is false only for the zero value.
func (t Transition) Valid() bool { return t.name != "" }

// SetsError reports whether the edge records an error message on the item.
func (t Transition) SetsError() bool {
	return t == TransitionMarkFailed || t == TransitionAnnotateMergeFail
}

func (t Transition) String() string {
	return fmt.Sprintf("%s(%s->%s)", t.name, t.from, t.to)
}
