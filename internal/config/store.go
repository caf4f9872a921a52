// internal/config/store.go
package config

import (
	"encoding/json"
	"fmt"

	bbolt "go.etcd.io/bbolt"
)

var (
	bucketGuilds  = []byte("guilds")
	bucketPlayers = []byte("players")
)

// Store is the durable side of the bot: guild configuration and player
// registration snapshots, kept in a single bbolt file.
type Store struct {
	bolt *bbolt.DB
}

// Open opens or creates the database file and ensures all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketGuilds, bucketPlayers} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("config: create buckets: %w", err)
	}
	return &Store{bolt: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// LoadConfig reads every guild configuration from the store.
func (s *Store) LoadConfig() (Config, error) {
	cfg := Config{}
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketGuilds).ForEach(func(k, v []byte) error {
			var gc GuildConfig
			if err := json.Unmarshal(v, &gc); err != nil {
				return fmt.Errorf("decode guild %s: %w", k, err)
			}
			cfg[string(k)] = &gc
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("config: load: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the full guild configuration in one transaction. Called
// after every structural change.
func (s *Store) SaveConfig(cfg Config) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketGuilds)
		for id, gc := range cfg {
			data, err := json.Marshal(gc)
			if err != nil {
				return fmt.Errorf("encode guild %s: %w", id, err)
			}
			if err := b.Put([]byte(id), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutPlayer stores one player registration snapshot, keyed by member id.
// The snapshot encoding belongs to the registry; the store treats it as bytes.
func (s *Store) PutPlayer(id string, data []byte) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPlayers).Put([]byte(id), data)
	})
}

// ForEachPlayer calls fn for every stored player snapshot.
func (s *Store) ForEachPlayer(fn func(id string, data []byte) error) error {
	return s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPlayers).ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}
