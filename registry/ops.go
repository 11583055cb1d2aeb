package registry

import (
	"github.com/pkg/errors"

	"github.com/retrofit-labs/carcomms"
	"github.com/retrofit-labs/carcomms/sliceops"
)

// AddOrUpdate renames a known device or appends a new one. An empty name
// keeps the stored name, or becomes UnknownName for a new device. It
// returns false, without error, when the list is full.
func (r *Registry) AddOrUpdate(a carcomms.Addr, name string) (bool, error) {
	var full bool
	_, err := r.mutate(func(rec *record) (bool, error) {
		if !rec.addOrUpdate(a, name) {
			full = true
			return false, nil
		}
		return true, nil
	})
	if full {
		r.logger.Warnf("device list full, not adding %v", a)
		return false, nil
	}
	return err == nil, err
}

// MoveUp swaps a with its predecessor. Devices at index 0 or 1 stay put so
// the head of the list is only changed by Favourite.
func (r *Registry) MoveUp(a carcomms.Addr) error {
	return r.change(a, func(rec *record, i int) bool {
		return rec.moveUp(i)
	})
}

// MoveDown swaps a with its successor. The last device and the favourite stay put.
func (r *Registry) MoveDown(a carcomms.Addr) error {
	return r.change(a, func(rec *record, i int) bool {
		if i == rec.count-1 || i == rec.favourite {
			return false
		}
		rec.swap(i, i+1)
		return true
	})
}

// Favourite moves a to the head of the list, keeping the order of the
// others, and marks it as the favourite.
func (r *Registry) Favourite(a carcomms.Addr) error {
	return r.change(a, func(rec *record, i int) bool {
		if i == 0 && rec.favourite == 0 {
			return false
		}
		sliceops.Bubble(rec.devices[:], i, rec.fixFavourite)
		rec.favourite = 0
		return true
	})
}

// Delete forgets a. Later devices shift down one place; the freed last
// slot keeps its old bytes.
func (r *Registry) Delete(a carcomms.Addr) error {
	return r.change(a, func(rec *record, i int) bool {
		switch {
		case rec.favourite == i:
			rec.favourite = -1
		case rec.favourite > i:
			rec.favourite--
		}
		if rec.connected == a {
			rec.connected = carcomms.Addr{}
		}

		rec.count = sliceops.Remove(rec.devices[:], rec.count, i)
		return true
	})
}

// MarkConnected records a as the connected device. Unknown devices are
// added; a known device moves up one place.
func (r *Registry) MarkConnected(a carcomms.Addr, name string) error {
	var full bool
	_, err := r.mutate(func(rec *record) (bool, error) {
		if !rec.addOrUpdate(a, name) {
			full = true
			return false, nil
		}
		rec.connected = a
		rec.moveUp(rec.indexOf(a))
		return true, nil
	})
	if full {
		r.logger.Warnf("device list full, %v connected but not remembered", a)
	}
	return err
}

// ClearConnected forgets the connected device.
func (r *Registry) ClearConnected() error {
	_, err := r.mutate(func(rec *record) (bool, error) {
		if rec.connected.IsZero() {
			return false, nil
		}
		rec.connected = carcomms.Addr{}
		return true, nil
	})
	return err
}

// ClearConnectedIf forgets the connected device only if it is a.
func (r *Registry) ClearConnectedIf(a carcomms.Addr) (bool, error) {
	return r.mutate(func(rec *record) (bool, error) {
		if rec.connected.IsZero() || rec.connected != a {
			return false, nil
		}
		rec.connected = carcomms.Addr{}
		return true, nil
	})
}

// PromoteFavourite swaps the favourite into slot 0 if it is elsewhere.
func (r *Registry) PromoteFavourite() error {
	_, err := r.mutate(func(rec *record) (bool, error) {
		if rec.favourite <= 0 {
			return false, nil
		}
		rec.swap(rec.favourite, 0)
		return true, nil
	})
	return err
}

func (r *Registry) change(a carcomms.Addr, f func(rec *record, i int) bool) error {
	_, err := r.mutate(func(rec *record) (bool, error) {
		i := rec.indexOf(a)
		if i < 0 {
			return false, errors.Wrapf(ErrUnknownDevice, "%v", a)
		}
		return f(rec, i), nil
	})
	if errors.Is(err, ErrUnknownDevice) {
		r.logger.Warnf("%v", err)
	}
	return err
}

func (rec *record) addOrUpdate(a carcomms.Addr, name string) bool {
	name = truncName(name)

	if i := rec.indexOf(a); i >= 0 {
		if name != "" {
			rec.devices[i].Name = name
		}
		return true
	}

	if rec.count >= MaxDevices {
		return false
	}
	if name == "" {
		name = UnknownName
	}
	rec.devices[rec.count] = Device{Addr: a, Name: name}
	rec.count++
	return true
}

func (rec *record) moveUp(i int) bool {
	if i <= 1 {
		return false
	}
	rec.swap(i, i-1)
	return true
}

// swap exchanges two slots; the favourite index follows its device.
// connected is an address and needs no fixing.
func (rec *record) swap(i, j int) {
	sliceops.Swap(rec.devices[:], i, j)
	rec.fixFavourite(i, j)
}

func (rec *record) fixFavourite(i, j int) {
	switch rec.favourite {
	case i:
		rec.favourite = j
	case j:
		rec.favourite = i
	}
}
