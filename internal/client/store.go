package client

import "sync"

// Store は State を保持し、Dispatch されたイベントで更新します。
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

// NewStore は初期状態の Store を作成します。
func NewStore() *Store {
	return &Store{state: InitialState(), listeners: make(map[int]func(State))}
}

// State は現在の状態を返します。
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch はイベントを適用し、購読者に新しい状態を通知します。
func (s *Store) Dispatch(e Event) {
	s.mu.Lock()
	s.state = Reduce(s.state, e)
	state := s.state
	listeners := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}

// Subscribe は状態が変わるたびに呼ばれる関数を登録し、解除用の関数を返します。
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
