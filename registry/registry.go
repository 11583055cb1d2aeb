// Package registry keeps the ordered list of remembered bluetooth devices.
//
// Every mutation changes the in-memory list under a short lock and then
// writes the whole list to the store outside it. Saves are sequenced so an
// older list never overwrites a newer one.
package registry

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/retrofit-labs/carcomms"
)

const (
	Namespace = "bt_devices"
	Key       = "devices"

	// UnknownName is used for devices whose name was never resolved.
	UnknownName = "Unknown"
)

var ErrUnknownDevice = errors.New("unknown device")

// Device is one remembered peer.
type Device struct {
	Addr carcomms.Addr
	Name string
}

// Snapshot is a copy of the registry state.
type Snapshot struct {
	Devices []Device
	// Favourite is an index into Devices, or -1.
	Favourite int
	// Connected is zero when nothing is connected.
	Connected carcomms.Addr
}

// Registry is safe for concurrent use.
type Registry struct {
	store  carcomms.Store
	logger carcomms.Logger

	mu  sync.Mutex
	rec record
	seq uint64

	saveMu   sync.Mutex
	savedSeq uint64
	onSave   func(Snapshot)
}

// Open loads the registry from s. A missing or unreadable record is
// replaced by an empty one, which is persisted immediately.
func Open(s carcomms.Store) (*Registry, error) {
	r := &Registry{
		store:  s,
		logger: carcomms.GetLogger().ChildLogger(map[string]interface{}{"pkg": "registry"}),
		rec:    emptyRecord(),
	}

	rec, err := r.load()
	switch {
	case err == nil:
		r.rec = rec
		return r, nil
	case errors.Is(err, carcomms.ErrNotFound):
		r.logger.Info("no saved device list, creating one")
	case errors.Is(err, errCorrupt):
		r.logger.Warnf("discarding saved device list: %v", err)
	default:
		return nil, err
	}

	_, err = r.mutate(func(*record) (bool, error) { return true, nil })
	return r, err
}

var errCorrupt = errors.New("corrupt device list")

func (r *Registry) load() (record, error) {
	b, err := r.store.Get(Namespace, Key)
	if err != nil {
		if errors.Is(err, carcomms.ErrNotFound) {
			return record{}, err
		}
		return record{}, errors.Wrap(err, "can't load device list")
	}

	rec, err := unmarshalRecord(b)
	if err != nil {
		return record{}, errors.Wrap(errCorrupt, err.Error())
	}
	return rec, nil
}

// SetLogger overrides the logger.
func (r *Registry) SetLogger(l carcomms.Logger) {
	r.logger = l
}

// SetSaveHandler installs f, called with the saved state after every
// successful save.
func (r *Registry) SetSaveHandler(f func(Snapshot)) {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()
	r.onSave = f
}

// Reload replaces the in-memory list with the stored one.
func (r *Registry) Reload() error {
	rec, err := r.load()
	switch {
	case err == nil:
	case errors.Is(err, carcomms.ErrNotFound):
		rec = emptyRecord()
	case errors.Is(err, errCorrupt):
		r.logger.Warnf("ignoring saved device list: %v", err)
		rec = emptyRecord()
	default:
		return err
	}

	r.mu.Lock()
	r.rec = rec
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	// saves queued before the reload must not overwrite it
	r.saveMu.Lock()
	if seq > r.savedSeq {
		r.savedSeq = seq
	}
	r.saveMu.Unlock()
	return nil
}

// mutate applies f under the state lock and persists the result if f
// reports a change.
func (r *Registry) mutate(f func(rec *record) (bool, error)) (bool, error) {
	r.mu.Lock()
	changed, err := f(&r.rec)
	if err != nil || !changed {
		r.mu.Unlock()
		return false, err
	}
	r.seq++
	seq := r.seq
	b := r.rec.marshal()
	snap := r.rec.snapshot()
	r.mu.Unlock()

	return true, r.persist(seq, b, snap)
}

func (r *Registry) persist(seq uint64, b []byte, snap Snapshot) error {
	r.saveMu.Lock()
	if seq <= r.savedSeq {
		r.saveMu.Unlock()
		return nil
	}
	err := r.store.Put(Namespace, Key, b)
	if err == nil {
		r.savedSeq = seq
	}
	onSave := r.onSave
	r.saveMu.Unlock()

	if err != nil {
		return errors.Wrap(err, "can't save device list")
	}

	r.logger.Debugf("saved %d devices", len(snap.Devices))
	if onSave != nil {
		onSave(snap)
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rec.snapshot()
}

// Devices returns the devices in order.
func (r *Registry) Devices() []Device {
	return r.Snapshot().Devices
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rec.count
}

// Connected returns the connected device address, if any.
func (r *Registry) Connected() (carcomms.Addr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rec.connected, !r.rec.connected.IsZero()
}

// FavouriteIndex returns the favourite's index or -1.
func (r *Registry) FavouriteIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rec.favourite
}

// IndexOf returns the position of a.
func (r *Registry) IndexOf(a carcomms.Addr) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.rec.indexOf(a)
	return i, i >= 0
}

// Name returns the stored name of a.
func (r *Registry) Name(a carcomms.Addr) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.rec.indexOf(a)
	if i < 0 {
		return "", false
	}
	return r.rec.devices[i].Name, true
}
