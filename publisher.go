package wodstrat

import "sync"

type subscriber[T any] struct {
	id int
	fn func(T)
}

type pendingItem[T any] struct {
	value  T
	target int
}

// publisher delivers values to subscribers in the order they were queued.
// Listeners run without any lock held and may queue more values; those
// are delivered by the outer flush once the current value is done.
type publisher[T any] struct {
	mu       sync.Mutex
	pending  []pendingItem[T]
	flushing bool
	subs     []subscriber[T]
	nextID   int
	clone    func(T) T
}

func newPublisher[T any](clone func(T) T) *publisher[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &publisher[T]{clone: clone}
}

func (p *publisher[T]) enqueue(v T) {
	p.mu.Lock()
	p.pending = append(p.pending, pendingItem[T]{value: v})
	p.mu.Unlock()
}

// subscribe registers fn and queues current for it alone
func (p *publisher[T]) subscribe(fn func(T), current T) func() {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subs = append(p.subs, subscriber[T]{id: id, fn: fn})
	p.pending = append(p.pending, pendingItem[T]{value: current, target: id})
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			for i, s := range p.subs {
				if s.id == id {
					p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (p *publisher[T]) flush() {
	p.mu.Lock()
	if p.flushing {
		p.mu.Unlock()
		return
	}
	p.flushing = true

	for len(p.pending) > 0 {
		item := p.pending[0]
		p.pending = p.pending[1:]
		subs := make([]subscriber[T], len(p.subs))
		copy(subs, p.subs)
		p.mu.Unlock()

		for _, s := range subs {
			if item.target != 0 && item.target != s.id {
				continue
			}
			s.fn(p.clone(item.value))
		}

		p.mu.Lock()
	}

	p.flushing = false
	p.mu.Unlock()
}
