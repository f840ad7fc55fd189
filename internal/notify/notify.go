// Package notify delivers fire-and-forget UI events. The only current
// consumer is the chat client, which locks input while compaction runs.
package notify

// Events emitted by the compaction orchestrator.
const (
	EventCompactionStarted = "compaction_started"
	EventCompactionEnded   = "compaction_ended"
)

// Notifier emits an event to whoever is listening. Absence of listeners
// must never affect correctness; implementations are best-effort.
type Notifier interface {
	Emit(event string, payload any)
}

// Nop is a Notifier that discards every event.
type Nop struct{}

// Emit implements Notifier.
func (Nop) Emit(string, any) {}

// Compile-time interface check.
var _ Notifier = Nop{}
