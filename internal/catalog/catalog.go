// Package catalog keeps a record of the captures made by the service.
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

var ErrRecordingNotFound = errors.New("catalog: recording not found")

// Recording describes one capture file.
type Recording struct {
	ID        uuid.UUID `json:"ID"`
	Path      string    `json:"Path"`
	StartedAt time.Time `json:"StartedAt"`
	StoppedAt time.Time `json:"StoppedAt"`
	Frames    uint64    `json:"Frames"`
	Bytes     uint64    `json:"Bytes"`
	Error     string    `json:"Error,omitempty"`
}

// InProgress reports whether the recording has not been stopped yet.
func (r *Recording) InProgress() bool {
	return r.StoppedAt.IsZero()
}

type Store interface {
	UpsertRecording(r *Recording) error
	LoadRecording(id uuid.UUID) (*Recording, error)
	ListRecordings() ([]*Recording, error)
	DeleteRecording(id uuid.UUID) error
	Close() error
}

var recordingsBucketName = []byte("recordings")

type BoltStore struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the bolt database at path.
func Open(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "catalog: could not create catalog directory")
	}

	db, err := bbolt.Open(path, 0644, &bbolt.Options{Timeout: time.Second})

	if err != nil {
		return nil, errors.Wrapf(err, "catalog: could not open %s", path)
	}

	return NewBoltStore(db)
}

func NewBoltStore(db *bbolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordingsBucketName)

		return err
	})

	if err != nil {
		return nil, errors.Wrap(err, "catalog: could not initialise buckets")
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) UpsertRecording(r *Recording) error {
	data, err := json.Marshal(r)

	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(recordingsBucketName).Put([]byte(r.ID.String()), data)
	})
}

func (s *BoltStore) LoadRecording(id uuid.UUID) (*Recording, error) {
	var recording *Recording

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(recordingsBucketName).Get([]byte(id.String()))

		if data == nil {
			return ErrRecordingNotFound
		}

		recording = new(Recording)

		return json.Unmarshal(data, recording)
	})

	return recording, err
}

// ListRecordings returns every recording, most recent first.
func (s *BoltStore) ListRecordings() ([]*Recording, error) {
	recordings := make([]*Recording, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(recordingsBucketName).ForEach(func(k, v []byte) error {
			var recording Recording

			if err := json.Unmarshal(v, &recording); err != nil {
				return errors.Wrapf(err, "catalog: could not decode recording %s", k)
			}

			recordings = append(recordings, &recording)

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(recordings, func(i, j int) bool {
		return recordings[i].StartedAt.After(recordings[j].StartedAt)
	})

	return recordings, nil
}

func (s *BoltStore) DeleteRecording(id uuid.UUID) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(recordingsBucketName)

		if bucket.Get([]byte(id.String())) == nil {
			return ErrRecordingNotFound
		}

		return bucket.Delete([]byte(id.String()))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
