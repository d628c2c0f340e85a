package workflow

import (
	"sync"

	"mailquill/models"
	"mailquill/utils"
)

// Persister saves the parts of State that outlive the process.
type Persister interface {
	SaveHistory(clientID string, items []models.HistoryItem) error
	SaveDarkMode(clientID string, dark bool) error
}

// Store owns one client's State. Dispatch is serialised; subscribers get the
// latest state after every successful change and may miss intermediate ones.
type Store struct {
	mu       sync.Mutex
	clientID string
	state    State
	persist  Persister
	subs     map[int]chan State
	nextSub  int
	closed   bool
}

// NewStore creates a store starting from initial. persist may be nil.
func NewStore(clientID string, initial State, persist Persister) *Store {
	return &Store{
		clientID: clientID,
		state:    initial,
		persist:  persist,
		subs:     make(map[int]chan State),
	}
}

// ClientID returns the client this store belongs to.
func (s *Store) ClientID() string {
	return s.clientID
}

// State returns the current state. Slices in the result are shared and must
// not be modified.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Busy reports whether a generation or subject run is in progress.
func (s *Store) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Generation.Running() || s.state.SubjectPhase.Running()
}

// Dispatch reduces a into the current state. Refused actions leave the state
// unchanged and return the reducer's error. Persistence failures are logged;
// the in-memory state stays authoritative.
func (s *Store) Dispatch(a Action) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Reduce(s.state, a)
	if err != nil {
		return s.state, err
	}
	s.state = next
	s.save(a, next)
	s.broadcast(next)
	return next, nil
}

func (s *Store) save(a Action, st State) {
	if s.persist == nil {
		return
	}
	log := utils.Log.WithField("client", s.clientID)

	switch a.(type) {
	case GenerationSucceeded, RemoveHistory, ClearHistory:
		if err := s.persist.SaveHistory(s.clientID, st.History); err != nil {
			log.Error("Error saving history after %s: %v", a.actionName(), err)
		}
	case SetDarkMode:
		if err := s.persist.SaveDarkMode(s.clientID, st.DarkMode); err != nil {
			log.Error("Error saving dark mode: %v", err)
		}
	}
}

// broadcast sends st to every subscriber, replacing any state still
// waiting in a subscriber's buffer.
func (s *Store) broadcast(st State) {
	for _, ch := range s.subs {
		select {
		case ch <- st:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

// Subscribe returns a channel that receives state after each change and a
// function to cancel the subscription. The channel is closed on cancel or
// when the store is closed.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close ends all subscriptions. Dispatch keeps working on a closed store.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
