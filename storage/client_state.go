package storage

import (
	"encoding/json"
	"fmt"

	"mailquill/models"
	"mailquill/utils"

	"go.etcd.io/bbolt"
)

// Keys inside a client's bucket.
const (
	HistoryKey  = "emailHistory"
	DarkModeKey = "darkMode"
)

// ClientState is what a client has persisted.
type ClientState struct {
	History  []models.HistoryItem
	DarkMode bool
}

// ClientStateStorage keeps each client's history and preferences in its own
// bucket. Every save rewrites the whole value.
type ClientStateStorage struct {
	db *bbolt.DB
}

// NewClientStateStorage wraps an open database created by InitDB.
func NewClientStateStorage(db *bbolt.DB) *ClientStateStorage {
	return &ClientStateStorage{db: db}
}

// Close closes the database connection
func (s *ClientStateStorage) Close() error {
	return s.db.Close()
}

// Load returns the persisted state for clientID. Values that fail to decode
// are logged and replaced by defaults; only database errors are returned.
func (s *ClientStateStorage) Load(clientID string) (ClientState, error) {
	var state ClientState
	log := utils.Log.WithField("client", clientID)

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(clientsBucket)).Bucket([]byte(clientID))
		if b == nil {
			return nil
		}

		if data := b.Get([]byte(HistoryKey)); data != nil {
			var items []models.HistoryItem
			if err := json.Unmarshal(data, &items); err != nil {
				log.Error("Error loading email history: %v", err)
			} else {
				state.History = items
			}
		}

		if data := b.Get([]byte(DarkModeKey)); data != nil {
			var dark bool
			if err := json.Unmarshal(data, &dark); err != nil {
				log.Error("Error loading dark mode flag: %v", err)
			} else {
				state.DarkMode = dark
			}
		}
		return nil
	})
	if err != nil {
		return ClientState{}, fmt.Errorf("loading client state: %w", err)
	}
	return state, nil
}

// SaveHistory replaces the stored history for clientID.
func (s *ClientStateStorage) SaveHistory(clientID string, items []models.HistoryItem) error {
	if items == nil {
		items = []models.HistoryItem{}
	}
	return s.put(clientID, HistoryKey, items)
}

// SaveDarkMode replaces the stored dark-mode flag for clientID.
func (s *ClientStateStorage) SaveDarkMode(clientID string, dark bool) error {
	return s.put(clientID, DarkModeKey, dark)
}

func (s *ClientStateStorage) put(clientID, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.putRaw(clientID, key, data)
}

func (s *ClientStateStorage) putRaw(clientID, key string, data []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket([]byte(clientsBucket)).CreateBucketIfNotExists([]byte(clientID))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}
