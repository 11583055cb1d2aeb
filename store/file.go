// Package store implements carcomms.Store on a JSON file and in memory.
package store

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/retrofit-labs/carcomms"
)

type fileStore struct {
	filename string
	lock     sync.RWMutex
}

// NewFile returns a store that keeps every namespace in one JSON document.
// Blobs are base64 encoded by the JSON encoder.
func NewFile(filename string) carcomms.Store {
	return &fileStore{filename: filename}
}

func (fs *fileStore) Get(namespace, key string) ([]byte, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	db, err := fs.loadExisting()
	if err != nil {
		return nil, err
	}

	b, ok := db[namespace][key]
	if !ok {
		return nil, carcomms.ErrNotFound
	}

	return b, nil
}

func (fs *fileStore) Put(namespace, key string, b []byte) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	db, err := fs.loadExisting()
	if err != nil {
		return err
	}

	ns := db[namespace]
	if ns == nil {
		ns = map[string][]byte{}
		db[namespace] = ns
	}
	ns[key] = append([]byte(nil), b...)

	return fs.storeDB(db)
}

func (fs *fileStore) loadExisting() (map[string]map[string][]byte, error) {
	_, err := os.Stat(fs.filename)
	if os.IsNotExist(err) {
		return map[string]map[string][]byte{}, nil
	}

	in, err := ioutil.ReadFile(fs.filename)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read %s", fs.filename)
	}

	var db map[string]map[string][]byte
	err = jsoniter.Unmarshal(in, &db)
	if err != nil {
		return nil, errors.Wrapf(err, "can't decode %s", fs.filename)
	}
	if db == nil {
		db = map[string]map[string][]byte{}
	}

	return db, nil
}

// storeDB writes through a temporary file so a power cut never leaves a
// truncated document behind.
func (fs *fileStore) storeDB(db map[string]map[string][]byte) error {
	out, err := jsoniter.Marshal(db)
	if err != nil {
		return err
	}

	tmp := fs.filename + ".tmp"
	if dir := filepath.Dir(fs.filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "can't create %s", dir)
		}
	}
	if err := ioutil.WriteFile(tmp, out, 0644); err != nil {
		return errors.Wrapf(err, "can't write %s", tmp)
	}

	return errors.Wrapf(os.Rename(tmp, fs.filename), "can't replace %s", fs.filename)
}
