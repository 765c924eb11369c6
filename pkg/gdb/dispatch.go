package gdb

import (
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Subscription is one observer's view of the session's event stream. Events
// arrive on C in the order they were published; a subscriber that falls
// behind loses only its oldest raw-output events, never a state transition.
type Subscription struct {
	name     string
	out      chan Event
	quit     chan struct{}
	quitOnce sync.Once

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	max    int
	closed bool

	dropped *atomic.Uint64
}

// C returns the channel events are delivered on. It is closed when the
// subscription is cancelled or the session ends.
func (s *Subscription) C() <-chan Event { return s.out }

// Name returns the observer name given at subscription time.
func (s *Subscription) Name() string { return s.name }

// Dropped returns how many raw-output events were discarded because this
// observer's queue was full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// push enqueues an event, evicting the oldest raw-output event if the queue
// is at capacity. State-transition and terminal events are never evicted; if
// nothing is evictable the queue grows past its bound rather than wedging
// the read loop or losing a transition.
func (s *Subscription) push(ev Event) (droppedOne bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if len(s.queue) >= s.max {
		for i, queued := range s.queue {
			if _, raw := queued.(OutputEvent); raw {
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				s.dropped.Inc()
				droppedOne = true
				break
			}
		}
	}
	s.queue = append(s.queue, ev)
	s.cond.Signal()
	return droppedOne
}

// close stops accepting events; deliver drains what is queued and then
// closes the output channel.
func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cond.Signal()
}

// abort additionally gives up on anything still queued. Used when the
// observer itself walks away.
func (s *Subscription) abort() {
	s.mu.Lock()
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()
	s.quitOnce.Do(func() { close(s.quit) })
}

// deliver runs on a dedicated goroutine, decoupling the session's read loop
// from however slowly the observer consumes.
func (s *Subscription) deliver() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			close(s.out)
			return
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- ev:
		case <-s.quit:
			close(s.out)
			return
		}
	}
}

// dispatcher fans events out to observers in registration order.
type dispatcher struct {
	log logrus.FieldLogger

	mu       sync.Mutex
	subs     []*Subscription
	queueMax int
	closed   bool
}

func newDispatcher(queueMax int, log logrus.FieldLogger) *dispatcher {
	return &dispatcher{queueMax: queueMax, log: log}
}

func (d *dispatcher) subscribe(name string) *Subscription {
	sub := &Subscription{
		name:    name,
		out:     make(chan Event),
		quit:    make(chan struct{}),
		max:     d.queueMax,
		dropped: atomic.NewUint64(0),
	}
	sub.cond = sync.NewCond(&sub.mu)
	go sub.deliver()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		sub.close()
		return sub
	}
	d.subs = append(d.subs, sub)
	return sub
}

// unsubscribe removes the observer and closes its channel. Idempotent.
func (d *dispatcher) unsubscribe(sub *Subscription) {
	d.mu.Lock()
	for i, s := range d.subs {
		if s == sub {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			break
		}
	}
	d.mu.Unlock()
	sub.abort()
}

// publish delivers the event to every observer in registration order without
// blocking the caller on any of them.
func (d *dispatcher) publish(ev Event) {
	d.mu.Lock()
	subs := make([]*Subscription, len(d.subs))
	copy(subs, d.subs)
	d.mu.Unlock()

	for _, sub := range subs {
		if sub.push(ev) {
			d.log.WithFields(logrus.Fields{
				"observer": sub.name,
				"dropped":  sub.Dropped(),
			}).Warn("observer queue full, dropped oldest raw-output event")
		}
	}
}

func (d *dispatcher) close() {
	d.mu.Lock()
	subs := d.subs
	d.subs = nil
	d.closed = true
	d.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
