package observer

import (
	"sync"

	"github.com/drip/core/event"
	"github.com/drip/internal/logger"
	"go.uber.org/zap"
)

func obslogger() *zap.SugaredLogger {
	return logger.Named("observer")
}

// Observer receives committed events. Update is called with the state lock
// held, so implementations must hand the event off without blocking.
type Observer interface {
	Update(ev event.Event)
	GetID() string
}

// Hub fans events out to registered observers. It implements event.Sink.
type Hub struct {
	mu        sync.RWMutex
	observers map[string]Observer
}

func NewHub() *Hub {
	return &Hub{observers: make(map[string]Observer)}
}

func (h *Hub) Register(o Observer) {
	h.mu.Lock()
	h.observers[o.GetID()] = o
	n := len(h.observers)
	h.mu.Unlock()
	obslogger().Debugw("Observer registered", "id", o.GetID(), "observers", n)
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	delete(h.observers, id)
	n := len(h.observers)
	h.mu.Unlock()
	obslogger().Debugw("Observer unregistered", "id", id, "observers", n)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

func (h *Hub) Publish(ev event.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, o := range h.observers {
		o.Update(ev)
	}
}

// Func adapts a function to Observer.
type Func struct {
	ID string
	Fn func(event.Event)
}

func (f Func) Update(ev event.Event) { f.Fn(ev) }
func (f Func) GetID() string         { return f.ID }

// LogObserver writes every event to the named logger.
type LogObserver struct{}

func (LogObserver) GetID() string { return "log" }

func (LogObserver) Update(ev event.Event) {
	obslogger().Infow("Event", "name", ev.Name(), "source", ev.Source(), "data", ev)
}
