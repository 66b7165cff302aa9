// Package manifest records what each profile's last build produced.
//
// Registries live for one invocation only. After a profile's pass the
// libraries, programs and test programs it registered are summarised into
// an Entry and stored in a BoltDB file under the build directory, keyed by
// profile name. `buildenv manifest` reads it back.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.etcd.io/bbolt"
)

const (
	// FileName is the database created inside the build directory
	FileName = ".buildenv.db"

	bucketName = "profiles"
)

// Manifest is an open manifest database
type Manifest struct {
	db   *bbolt.DB
	path string
}

// Open opens (creating if needed) the manifest in buildDir
func Open(buildDir string) (*Manifest, error) {
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "failed to create build directory")
	}

	path := filepath.Join(buildDir, FileName)
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, eris.Wrapf(err, "failed to open manifest %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, eris.Wrap(err, "failed to create manifest bucket")
	}

	return &Manifest{db: db, path: path}, nil
}

// Path returns the database file
func (m *Manifest) Path() string {
	return m.path
}

func (m *Manifest) Close() error {
	if m.db != nil {
		return m.db.Close()
	}

	return nil
}

// Get returns the entry for profile, or nil if there is none
func (m *Manifest) Get(profile string) (*Entry, error) {
	var entry *Entry

	err := m.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(profile))
		if data == nil {
			return nil
		}

		entry = &Entry{}
		return json.Unmarshal(data, entry)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read manifest entry %s", profile)
	}

	return entry, nil
}

// Store replaces the entry for e.Profile
func (m *Manifest) Store(e *Entry) error {
	if e.Profile == "" {
		return eris.New("manifest entry needs a profile name")
	}

	data, err := json.Marshal(e)
	if err != nil {
		return eris.Wrap(err, "failed to encode manifest entry")
	}

	err = m.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(e.Profile), data)
	})
	if err != nil {
		return eris.Wrapf(err, "failed to store manifest entry %s", e.Profile)
	}

	return nil
}

// List returns every entry ordered by profile name
func (m *Manifest) List() ([]*Entry, error) {
	entries := make([]*Entry, 0)

	err := m.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return eris.Wrapf(err, "corrupt manifest entry %s", string(k))
			}

			entries = append(entries, &e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Delete removes the entry for profile
func (m *Manifest) Delete(profile string) error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(profile))
	})
}

// Clear removes every entry
func (m *Manifest) Clear() error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}

		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// Len returns the number of stored profiles
func (m *Manifest) Len() (int, error) {
	var count int

	err := m.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})

	return count, err
}
