package workflow

import (
	"fmt"
	"time"

	"mailquill/storage"
	"mailquill/utils"
)

// StateStorage loads and saves per-client state.
type StateStorage interface {
	Persister
	Load(clientID string) (storage.ClientState, error)
}

// Registry hands out one Store per client, loading persisted state on first
// use. Stores idle for longer than the configured timeout are dropped and
// their subscribers closed; the next request reloads from storage. Stores
// with a run in progress are kept.
type Registry struct {
	storage      StateStorage
	historyLimit int
	stores       *utils.MemoryCache[*Store]
}

// NewRegistry creates a registry backed by st.
func NewRegistry(st StateStorage, historyLimit int, idle time.Duration) *Registry {
	return newRegistry(st, historyLimit, utils.NewMemoryCache(idle, dropStore))
}

func newRegistry(st StateStorage, historyLimit int, stores *utils.MemoryCache[*Store]) *Registry {
	return &Registry{
		storage:      st,
		historyLimit: historyLimit,
		stores:       stores.KeepWhile((*Store).Busy),
	}
}

func dropStore(clientID string, s *Store) {
	utils.Log.Debug("Dropping idle state for client %s", clientID)
	s.Close()
}

// Get returns the store for clientID.
func (r *Registry) Get(clientID string) (*Store, error) {
	return r.stores.GetOrCreate(clientID, func() (*Store, error) {
		persisted, err := r.storage.Load(clientID)
		if err != nil {
			return nil, fmt.Errorf("loading state for %s: %w", clientID, err)
		}
		st := NewState()
		st.History = persisted.History
		st.DarkMode = persisted.DarkMode
		st.HistoryLimit = r.historyLimit
		return NewStore(clientID, st, r.storage), nil
	})
}

// Touch marks clientID's store as in use. It reports false when no store is
// held for the client.
func (r *Registry) Touch(clientID string) bool {
	_, ok := r.stores.Get(clientID)
	return ok
}

// Active returns the number of stores held in memory.
func (r *Registry) Active() int {
	return r.stores.Size()
}

// Close stops idle eviction.
func (r *Registry) Close() {
	r.stores.Close()
}
