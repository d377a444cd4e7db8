package extraction

import (
	"log"
	"strings"
	"time"
)

// Transition is emitted each time a run changes state
type Transition struct {
	From    State
	To      State
	Attempt int // one-based

	Prompt      string
	RawResponse string
	ValidEvents int
	Rejected    []Rejection
	Err         error
	Elapsed     time.Duration // since the run started

	// AttemptElapsed is the time since the current attempt's prompt was sent
	AttemptElapsed time.Duration

	UsedFallback bool
	Unclassified []string
}

// Observer receives state transitions. Observers must not block.
type Observer interface {
	OnTransition(t Transition)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Transition)

func (f ObserverFunc) OnTransition(t Transition) { f(t) }

// LogObserver writes run diagnostics to the standard logger
type LogObserver struct {
	// ExcerptLength bounds how much of a raw response is logged on failure
	ExcerptLength int
}

// NewLogObserver creates a LogObserver with a 500 character excerpt
func NewLogObserver() *LogObserver {
	return &LogObserver{ExcerptLength: 500}
}

func (l *LogObserver) OnTransition(t Transition) {
	switch t.To {
	case StateAwaitingResponse:
		log.Printf("[RETRY] Attempt %d: requesting generation (prompt %d chars)", t.Attempt, len(t.Prompt))
	case StateValidating:
		if t.UsedFallback {
			log.Printf("[EXTRACT] Attempt %d: no sections yielded events, scanned whole document", t.Attempt)
		}
		if len(t.Unclassified) > 0 {
			log.Printf("[EXTRACT] Attempt %d: unclassified sections: %s", t.Attempt, strings.Join(t.Unclassified, "; "))
		}
	case StateRetrying:
		log.Printf("[RETRY] Only found %d valid events. Retrying...", t.ValidEvents)
		l.logRejections(t)
	case StateAccepted:
		log.Printf("[RETRY] Attempt %d accepted with %d valid events in %v", t.Attempt, t.ValidEvents, t.Elapsed)
		l.logRejections(t)
	case StateFailed:
		log.Printf("[RETRY] Run failed on attempt %d: %v", t.Attempt, t.Err)
		log.Printf("[RETRY] Prompt was: %s", l.excerpt(t.Prompt))
		if t.RawResponse != "" {
			log.Printf("[RETRY] Raw response excerpt: %s", l.excerpt(t.RawResponse))
		}
		l.logRejections(t)
	}
}

func (l *LogObserver) logRejections(t Transition) {
	for _, r := range t.Rejected {
		log.Printf("[VALIDATE] Rejected %q in %s: %d/4 required fields, missing %s",
			r.Event.Name, r.Category, r.PresentFields, strings.Join(r.Missing, ", "))
	}
}

func (l *LogObserver) excerpt(s string) string {
	n := l.ExcerptLength
	if n <= 0 {
		n = 500
	}
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
