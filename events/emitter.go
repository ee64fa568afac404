package events

import (
	"sync"

	"go.uber.org/zap"
)

// Emitter publishes events to external observers. Emission is best-effort;
// emitters must not fail the surrounding operation.
type Emitter interface {
	Emit(event Event)
}

// NopEmitter discards every event.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}

// LogEmitter writes each event to the structured log.
type LogEmitter struct {
	logger *zap.Logger
}

func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

func (e *LogEmitter) Emit(event Event) {
	e.logger.Info("event emitted",
		zap.String("event", event.Name()),
		zap.Any("payload", event))
}

// Recorder captures emitted events for inspection in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything emitted so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Name() == name {
			out = append(out, ev)
		}
	}
	return out
}
