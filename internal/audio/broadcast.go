package audio

import "sync"

// Broadcast is the Stream implementation shared by every capture backend.
// The backend publishes blocks; Stop runs the backend release hook once and
// closes all subscriber channels.
type Broadcast struct {
	format  Format
	release func() error

	mu     sync.Mutex
	subs   map[int]chan []int16
	nextID int
	closed bool
	done   chan struct{}
	stopFn sync.Once
	err    error
}

var _ Stream = (*Broadcast)(nil)

// NewBroadcast creates a stream of the given format. release may be nil.
func NewBroadcast(format Format, release func() error) *Broadcast {
	return &Broadcast{
		format:  format,
		release: release,
		subs:    make(map[int]chan []int16),
		done:    make(chan struct{}),
	}
}

func (b *Broadcast) Format() Format {
	return b.format
}

func (b *Broadcast) Subscribe(buffer int) (<-chan []int16, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan []int16, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Publish hands a copy of samples to every subscriber
func (b *Broadcast) Publish(samples []int16) {
	if len(samples) == 0 {
		return
	}
	block := make([]int16, len(samples))
	copy(block, samples)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- block:
		default:
			// Drop if subscriber is behind (backpressure)
		}
	}
}

func (b *Broadcast) Done() <-chan struct{} {
	return b.done
}

func (b *Broadcast) Stop() error {
	b.stopFn.Do(func() {
		if b.release != nil {
			b.err = b.release()
		}

		b.mu.Lock()
		b.closed = true
		for id, ch := range b.subs {
			delete(b.subs, id)
			close(ch)
		}
		b.mu.Unlock()

		close(b.done)
	})
	return b.err
}
