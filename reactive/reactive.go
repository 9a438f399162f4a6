package reactive

import "sync"

type subscriber[T any] struct {
	c         chan T
	container *Observable[T]
}

// Cancel removes the subscriber from the container and closes its channel.
// Not calling Cancel on an abandoned subscriber leaks it.
func (s *subscriber[T]) Cancel() {
	s.container.delete(s)
	close(s.c)
}

// Channel returns the channel the subscriber receives published values on.
func (s *subscriber[T]) Channel() <-chan T {
	return s.c
}

// Observable is a container of subscribers working in a single producer
// multiple consumer pattern.
type Observable[T any] struct {
	mux         sync.RWMutex
	subscribers map[*subscriber[T]]struct{}
	size        int
}

// New creates an Observable holding a buffered channel per subscriber.
// size is the buffer size of each channel.
func New[T any](size int) *Observable[T] {
	return &Observable[T]{
		subscribers: make(map[*subscriber[T]]struct{}),
		size:        size,
	}
}

// Subscribe registers a new subscriber in the container.
func (o *Observable[T]) Subscribe() *subscriber[T] {
	s := &subscriber[T]{
		c:         make(chan T, o.size),
		container: o,
	}
	o.mux.Lock()
	defer o.mux.Unlock()
	o.subscribers[s] = struct{}{}
	return s
}

// Publish delivers the value to all current subscribers.
func (o *Observable[T]) Publish(v T) {
	o.mux.RLock()
	defer o.mux.RUnlock()
	for s := range o.subscribers {
		s.c <- v
	}
}

func (o *Observable[T]) delete(s *subscriber[T]) {
	o.mux.Lock()
	defer o.mux.Unlock()
	delete(o.subscribers, s)
}
