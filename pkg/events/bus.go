// Package events implements the process-wide pub/sub bus that decouples
// capability managers from transports.
package events

import (
	"reflect"
	"sync"

	"github.com/standardbeagle/mcpcore/pkg/log"
)

// Standard event-type strings published by capability managers. Literal and
// bit-exact: transports match on these.
const (
	ToolsListChanged      = "notifications/tools/list_changed"
	ResourcesListChanged  = "notifications/resources/list_changed"
	ResourcesUpdated      = "notifications/resources/updated"
	PromptsListChanged    = "notifications/prompts/list_changed"
	Message               = "notifications/message"
	Progress              = "notifications/progress"
	Cancelled             = "notifications/cancelled"
	Shutdown              = "notifications/shutdown"
)

// Callback receives a published payload. Panics inside a callback are
// recovered and logged; they never propagate to the publisher.
type Callback func(payload any)

// HandlerID identifies one Subscribe registration, returned so the caller
// can Unsubscribe it later without retaining the original callback value.
type HandlerID uint64

type subscription struct {
	id       HandlerID
	fn       Callback
	fnPtr    uintptr
	fnIsFunc bool
}

type pendingEvent struct {
	payload any
}

// Bus is a single process-wide pub/sub object. Construct one per test case
// or one for the life of the process; never a package-level var, so tests
// can isolate state (see spec's "construct-once object passed by reference"
// guidance).
type Bus struct {
	mu      sync.Mutex
	subs    map[string][]subscription
	pending map[string][]pendingEvent
	nextID  HandlerID
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{
		subs:    make(map[string][]subscription),
		pending: make(map[string][]pendingEvent),
	}
}

func callbackIdentity(fn Callback) (uintptr, bool) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return 0, false
	}
	return v.Pointer(), true
}

// Subscribe registers fn for eventType. Subscribing the same (eventType, fn)
// pair twice is idempotent — fn identity is compared via its function
// pointer, matching Go's standard "functions aren't comparable but their
// code pointers are" idiom. On registration, any pending events for
// eventType are drained and delivered in publish order before Subscribe
// returns.
func (b *Bus) Subscribe(eventType string, fn Callback) HandlerID {
	b.mu.Lock()
	ptr, isFunc := callbackIdentity(fn)
	if isFunc {
		for _, s := range b.subs[eventType] {
			if s.fnIsFunc && s.fnPtr == ptr {
				b.mu.Unlock()
				return s.id
			}
		}
	}
	b.nextID++
	id := b.nextID
	b.subs[eventType] = append(b.subs[eventType], subscription{id: id, fn: fn, fnPtr: ptr, fnIsFunc: isFunc})

	drained := b.pending[eventType]
	delete(b.pending, eventType)
	b.mu.Unlock()

	for _, pe := range drained {
		invoke(eventType, fn, pe.payload)
	}
	return id
}

// Unsubscribe removes one registration by id. No-op if absent.
func (b *Bus) Unsubscribe(eventType string, id HandlerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[eventType]
	for i, s := range list {
		if s.id == id {
			b.subs[eventType] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// UnsubscribeAll removes every registration for eventType.
func (b *Bus) UnsubscribeAll(eventType string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, eventType)
}

// Publish dispatches payload to every current subscriber of eventType. If
// there are none, the event is queued as pending and delivered to the next
// Subscribe call for that event type, preserving FIFO order per event-type.
func (b *Bus) Publish(eventType string, payload any) {
	b.mu.Lock()
	subs := b.subs[eventType]
	if len(subs) == 0 {
		b.pending[eventType] = append(b.pending[eventType], pendingEvent{payload: payload})
		b.mu.Unlock()
		return
	}
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	b.mu.Unlock()

	for _, s := range snapshot {
		invoke(eventType, s.fn, payload)
	}
}

func invoke(eventType string, fn Callback, payload any) {
	defer func() {
		if r := recover(); r != nil {
			log.WithComponent("events").Error().
				Str("event_type", eventType).
				Interface("panic", r).
				Msg("event subscriber panicked")
		}
	}()
	fn(payload)
}

// HasSubscribers reports whether eventType currently has at least one
// subscriber.
func (b *Bus) HasSubscribers(eventType string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[eventType]) > 0
}

// GetSubscriberCount returns the number of current subscribers for
// eventType.
func (b *Bus) GetSubscriberCount(eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[eventType])
}

// GetPendingCount returns the number of queued-but-undelivered events for
// eventType.
func (b *Bus) GetPendingCount(eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending[eventType])
}

// ClearPending discards any queued events for eventType without delivering
// them.
func (b *Bus) ClearPending(eventType string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, eventType)
}

// ClearAllPending discards every queued event across all event types.
func (b *Bus) ClearAllPending() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = make(map[string][]pendingEvent)
}
