package events

import (
	"fmt"
	"hash/fnv"
	"runtime"
	"sync"
	"sync/atomic"

	"segfetch/internal/logger"
)

// Handler receives events of the kind it subscribed to.
type Handler func(Event)

type subscription struct {
	id uint64
	fn Handler
}

// Bus is an in-process publish/subscribe channel. Handlers for a kind run in
// subscription order on a pool of dispatcher goroutines. All events that share
// a fileId are routed to the same dispatcher, so their relative order is kept.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]subscription
	nextID   uint64

	workers []*dispatcher
	wg      sync.WaitGroup
	closed  atomic.Bool
}

// NewBus starts a bus with the given number of dispatchers (<=0 picks one per CPU).
func NewBus(workers int) *Bus {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	b := &Bus{
		handlers: make(map[Kind][]subscription),
		workers:  make([]*dispatcher, workers),
	}
	for i := range b.workers {
		d := newDispatcher()
		b.workers[i] = d
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			d.run(b.deliver)
		}()
	}
	return b
}

// Subscribe registers h for events of kind. The returned func removes it.
func (b *Bus) Subscribe(kind Kind, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[kind] = append(b.handlers[kind], subscription{id: id, fn: h})
	b.mu.Unlock()

	return func() { b.unsubscribe(kind, id) }
}

// SubscribeAll registers h for every kind.
func (b *Bus) SubscribeAll(h Handler) func() {
	unsubs := []func(){
		b.Subscribe(KindStart, h),
		b.Subscribe(KindProgress, h),
		b.Subscribe(KindFinish, h),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (b *Bus) unsubscribe(kind Kind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[kind]
	for i, s := range subs {
		if s.id == id {
			b.handlers[kind] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish queues e for delivery and returns immediately.
func (b *Bus) Publish(e Event) {
	if e == nil {
		return
	}
	if b.closed.Load() {
		logger.Debug("event dropped after bus close", logger.Fields{"kind": e.Kind(), "file_id": e.ID()})
		return
	}
	d := b.workers[b.route(e.ID())]
	if !d.push(e) {
		logger.Debug("event dropped after bus close", logger.Fields{"kind": e.Kind(), "file_id": e.ID()})
	}
}

// Close stops accepting events, delivers everything already queued and waits
// for the dispatchers to exit. It is safe to call more than once.
func (b *Bus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		b.wg.Wait()
		return
	}
	for _, d := range b.workers {
		d.close()
	}
	b.wg.Wait()
}

func (b *Bus) route(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % uint32(len(b.workers)))
}

func (b *Bus) deliver(e Event) {
	b.mu.RLock()
	subs := b.handlers[e.Kind()]
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	b.mu.RUnlock()

	for _, s := range snapshot {
		b.invoke(s.fn, e)
	}
}

func (b *Bus) invoke(fn Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panicked", logger.Fields{
				"kind":    e.Kind(),
				"file_id": e.ID(),
				"panic":   fmt.Sprint(r),
			})
		}
	}()
	fn(e)
}

// dispatcher owns an unbounded FIFO drained by a single goroutine.
type dispatcher struct {
	mu      sync.Mutex
	queue   []Event
	closing bool
	wake    chan struct{}
}

func newDispatcher() *dispatcher {
	return &dispatcher{wake: make(chan struct{}, 1)}
}

func (d *dispatcher) push(e Event) bool {
	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, e)
	d.mu.Unlock()
	d.signal()
	return true
}

func (d *dispatcher) close() {
	d.mu.Lock()
	d.closing = true
	d.mu.Unlock()
	d.signal()
}

func (d *dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run(deliver func(Event)) {
	for {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		closing := d.closing
		d.mu.Unlock()

		for _, e := range batch {
			deliver(e)
		}

		if len(batch) == 0 {
			if closing {
				return
			}
			<-d.wake
		}
	}
}
