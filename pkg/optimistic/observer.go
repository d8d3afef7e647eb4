package optimistic

import (
	"time"

	"github.com/google/uuid"
)

// Outcome names what happened to an intent.
type Outcome string

const (
	OutcomeApplied    Outcome = "applied"
	OutcomeNoop       Outcome = "noop"
	OutcomeRejected   Outcome = "rejected"
	OutcomeCommitted  Outcome = "committed"
	OutcomeRolledBack Outcome = "rolled_back"
	OutcomeAbandoned  Outcome = "abandoned"
)

// Event is reported to an Observer for every intent and every settled
// operation.
type Event struct {
	Collection string
	Op         uuid.UUID // zero for noop and rejected intents
	Action     Action
	Target     string
	Outcome    Outcome
	Err        error
	Duration   time.Duration // from Apply to settlement
	Pending    int           // queued operations after the event
}

// Observer receives mutation events. Metrics and tracing hook in here.
// Observe is called without the mutator lock held and must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// Observers fans events out to several observers.
type Observers []Observer

func (o Observers) Observe(e Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(e)
		}
	}
}
