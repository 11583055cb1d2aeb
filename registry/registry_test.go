package registry

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/retrofit-labs/carcomms"
	"github.com/retrofit-labs/carcomms/store"
)

func addr(last byte) carcomms.Addr {
	return carcomms.Addr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, last}
}

func openFilled(t *testing.T, n int) (*Registry, *store.Memory) {
	s := store.NewMemory()
	r, err := Open(s)
	if err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	for i := 1; i <= n; i++ {
		ok, err := r.AddOrUpdate(addr(byte(i)), string(rune('A'+i-1)))
		if !ok || err != nil {
			t.Fatalf("AddOrUpdate(%d) = %v, %v", i, ok, err)
		}
	}
	return r, s
}

func order(r *Registry) []byte {
	var out []byte
	for _, d := range r.Devices() {
		out = append(out, d.Addr[5])
	}
	return out
}

func TestOpenCreatesEmptyRecord(t *testing.T) {
	s := store.NewMemory()
	r, err := Open(s)
	if err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	if r.Count() != 0 || r.FavouriteIndex() != -1 {
		t.Fatalf("expected empty registry but got %+v", r.Snapshot())
	}

	b, err := s.Get(Namespace, Key)
	if err != nil {
		t.Fatalf("expected record to be persisted but got %s", err)
	}
	if len(b) != RecordSize || RecordSize != 198 {
		t.Fatalf("expected %d byte record but got %d", RecordSize, len(b))
	}
	if b[MaxDevices*6+MaxDevices*NameSize+1] != noFavourite {
		t.Fatalf("expected no favourite marker")
	}
}

func TestOpenDiscardsCorruptRecord(t *testing.T) {
	s := store.NewMemory()
	s.Put(Namespace, Key, []byte{1, 2, 3})

	r, err := Open(s)
	if err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	if r.Count() != 0 {
		t.Fatalf("expected empty registry")
	}
	if b, _ := s.Get(Namespace, Key); len(b) != RecordSize {
		t.Fatalf("expected corrupt record to be replaced")
	}
}

func TestPersistRoundTrip(t *testing.T) {
	r, s := openFilled(t, 3)
	r.Favourite(addr(2))
	r.MarkConnected(addr(3), "")

	r2, err := Open(s)
	if err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	if !reflect.DeepEqual(r.Snapshot(), r2.Snapshot()) {
		t.Fatalf("expected %+v but got %+v", r.Snapshot(), r2.Snapshot())
	}
}

func TestAddOrUpdate(t *testing.T) {
	r, s := openFilled(t, 5)
	puts := s.Puts()

	ok, err := r.AddOrUpdate(addr(6), "F")
	if ok || err != nil {
		t.Fatalf("expected full registry to refuse, got %v %v", ok, err)
	}
	if r.Count() != 5 || s.Puts() != puts {
		t.Fatalf("expected no change when full")
	}

	ok, _ = r.AddOrUpdate(addr(3), "Renamed")
	if !ok {
		t.Fatalf("expected rename to succeed when full")
	}
	if n, _ := r.Name(addr(3)); n != "Renamed" {
		t.Fatalf("expected Renamed but got %s", n)
	}
	if i, _ := r.IndexOf(addr(3)); i != 2 {
		t.Fatalf("expected rename in place at 2 but got %d", i)
	}

	r.AddOrUpdate(addr(3), "")
	if n, _ := r.Name(addr(3)); n != "Renamed" {
		t.Fatalf("expected empty name to keep Renamed but got %s", n)
	}
}

func TestAddDefaultsAndTruncatesName(t *testing.T) {
	r, _ := openFilled(t, 0)
	r.AddOrUpdate(addr(1), "")
	if n, _ := r.Name(addr(1)); n != UnknownName {
		t.Fatalf("expected %s but got %s", UnknownName, n)
	}

	long := "0123456789012345678901234567890123456789"
	r.AddOrUpdate(addr(2), long)
	if n, _ := r.Name(addr(2)); n != long[:NameSize-1] {
		t.Fatalf("expected name truncated to %d but got %q", NameSize-1, n)
	}
}

func TestNoDuplicates(t *testing.T) {
	r, _ := openFilled(t, 2)
	r.AddOrUpdate(addr(1), "again")
	if r.Count() != 2 {
		t.Fatalf("expected 2 devices but got %d", r.Count())
	}
}

func TestMoveUp(t *testing.T) {
	r, _ := openFilled(t, 4)

	r.MoveUp(addr(1))
	r.MoveUp(addr(2))
	if got := order(r); !reflect.DeepEqual(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("expected index 0 and 1 to stay put but got %v", got)
	}

	r.MoveUp(addr(4))
	if got := order(r); !reflect.DeepEqual(got, []byte{1, 2, 4, 3}) {
		t.Fatalf("expected [1 2 4 3] but got %v", got)
	}
}

func TestMoveDown(t *testing.T) {
	r, _ := openFilled(t, 4)

	r.MoveDown(addr(4))
	if got := order(r); !reflect.DeepEqual(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("expected last to stay put but got %v", got)
	}

	r.MoveDown(addr(2))
	if got := order(r); !reflect.DeepEqual(got, []byte{1, 3, 2, 4}) {
		t.Fatalf("expected [1 3 2 4] but got %v", got)
	}

	r.Favourite(addr(2))
	r.MoveDown(addr(2))
	if got := order(r); !reflect.DeepEqual(got, []byte{2, 1, 3, 4}) {
		t.Fatalf("expected favourite to stay put but got %v", got)
	}
}

func TestFavourite(t *testing.T) {
	r, _ := openFilled(t, 4)

	if err := r.Favourite(addr(3)); err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	if got := order(r); !reflect.DeepEqual(got, []byte{3, 1, 2, 4}) {
		t.Fatalf("expected [3 1 2 4] but got %v", got)
	}
	if r.FavouriteIndex() != 0 {
		t.Fatalf("expected favourite at 0 but got %d", r.FavouriteIndex())
	}

	r.Favourite(addr(4))
	if got := order(r); !reflect.DeepEqual(got, []byte{4, 3, 1, 2}) {
		t.Fatalf("expected [4 3 1 2] but got %v", got)
	}
	if r.FavouriteIndex() != 0 {
		t.Fatalf("expected favourite at 0 but got %d", r.FavouriteIndex())
	}
}

func TestSwapRetargetsFavourite(t *testing.T) {
	r, _ := openFilled(t, 4)
	r.Favourite(addr(1))

	// swapping slot 1 with slot 2 leaves the favourite alone
	r.MoveUp(addr(3))
	if r.FavouriteIndex() != 0 {
		t.Fatalf("expected favourite to stay at 0 but got %d", r.FavouriteIndex())
	}

	r.mutate(func(rec *record) (bool, error) {
		rec.swap(0, 3)
		return true, nil
	})
	if r.FavouriteIndex() != 3 || r.Devices()[3].Addr != addr(1) {
		t.Fatalf("expected favourite to follow its device to 3 but got %d", r.FavouriteIndex())
	}
}

func TestDelete(t *testing.T) {
	r, _ := openFilled(t, 4)
	r.Favourite(addr(4)) // [4 1 2 3]
	r.MarkConnected(addr(2), "")

	if err := r.Delete(addr(1)); err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	if got := order(r); !reflect.DeepEqual(got, []byte{4, 2, 3}) {
		t.Fatalf("expected [4 2 3] but got %v", got)
	}
	if r.FavouriteIndex() != 0 {
		t.Fatalf("expected favourite kept at 0 but got %d", r.FavouriteIndex())
	}

	r.Delete(addr(2))
	if _, ok := r.Connected(); ok {
		t.Fatalf("expected connected cleared when its device is deleted")
	}

	r.Delete(addr(4))
	if r.FavouriteIndex() != -1 {
		t.Fatalf("expected favourite cleared but got %d", r.FavouriteIndex())
	}
	if got := order(r); !reflect.DeepEqual(got, []byte{3}) {
		t.Fatalf("expected [3] but got %v", got)
	}

	// the freed slot is past count and keeps the device shifted out of it
	if r.rec.devices[1].Addr != addr(3) {
		t.Fatalf("expected trailing slot left as is but got %+v", r.rec.devices[1])
	}
	b := r.rec.marshal()
	if got := carcomms.Addr(b[6:12]); got != addr(3) {
		t.Fatalf("expected stale slot persisted but got %v", got)
	}
	if len(r.Devices()) != 1 {
		t.Fatalf("expected 1 live device but got %d", len(r.Devices()))
	}
}

func TestDeleteShiftsFavouriteDown(t *testing.T) {
	r, _ := openFilled(t, 3)
	r.mutate(func(rec *record) (bool, error) {
		rec.favourite = 2
		return true, nil
	})

	r.Delete(addr(1))
	if r.FavouriteIndex() != 1 || r.Devices()[1].Addr != addr(3) {
		t.Fatalf("expected favourite to shift to 1 but got %d", r.FavouriteIndex())
	}
}

func TestDeleteLastSlot(t *testing.T) {
	r, _ := openFilled(t, 5)
	r.Delete(addr(5))
	if got := order(r); !reflect.DeepEqual(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("expected [1 2 3 4] but got %v", got)
	}
	ok, _ := r.AddOrUpdate(addr(9), "new")
	if !ok {
		t.Fatalf("expected room after delete")
	}
}

func TestUnknownDevice(t *testing.T) {
	r, s := openFilled(t, 2)
	puts := s.Puts()

	for name, f := range map[string]func(carcomms.Addr) error{
		"MoveUp":    r.MoveUp,
		"MoveDown":  r.MoveDown,
		"Favourite": r.Favourite,
		"Delete":    r.Delete,
	} {
		if err := f(addr(9)); !errors.Is(err, ErrUnknownDevice) {
			t.Fatalf("%s: expected ErrUnknownDevice but got %v", name, err)
		}
	}
	if s.Puts() != puts {
		t.Fatalf("expected no saves for unknown devices")
	}
}

func TestMarkConnected(t *testing.T) {
	r, _ := openFilled(t, 3)

	r.MarkConnected(addr(3), "")
	if a, ok := r.Connected(); !ok || a != addr(3) {
		t.Fatalf("expected %v connected but got %v", addr(3), a)
	}
	if got := order(r); !reflect.DeepEqual(got, []byte{1, 3, 2}) {
		t.Fatalf("expected connected device moved up once, got %v", got)
	}
	if n, _ := r.Name(addr(3)); n != "C" {
		t.Fatalf("expected stored name kept but got %s", n)
	}

	r.MarkConnected(addr(7), "")
	if got := order(r); !reflect.DeepEqual(got, []byte{1, 3, 7, 2}) {
		t.Fatalf("expected unknown device added and moved up, got %v", got)
	}
	if n, _ := r.Name(addr(7)); n != UnknownName {
		t.Fatalf("expected %s but got %s", UnknownName, n)
	}

	if ok, _ := r.ClearConnectedIf(addr(1)); ok {
		t.Fatalf("expected non-matching clear to do nothing")
	}
	if ok, _ := r.ClearConnectedIf(addr(7)); !ok {
		t.Fatalf("expected matching clear")
	}
	if _, ok := r.Connected(); ok {
		t.Fatalf("expected nothing connected")
	}
}

func TestMarkConnectedWhenFull(t *testing.T) {
	r, _ := openFilled(t, 5)
	r.MarkConnected(addr(9), "stranger")
	if _, ok := r.Connected(); ok {
		t.Fatalf("expected unremembered device not to be marked connected")
	}
}

func TestPromoteFavourite(t *testing.T) {
	r, _ := openFilled(t, 4)
	r.mutate(func(rec *record) (bool, error) {
		rec.favourite = 2
		return true, nil
	})

	r.PromoteFavourite()
	if got := order(r); !reflect.DeepEqual(got, []byte{3, 2, 1, 4}) {
		t.Fatalf("expected favourite swapped to 0, got %v", got)
	}
	if r.FavouriteIndex() != 0 {
		t.Fatalf("expected favourite at 0 but got %d", r.FavouriteIndex())
	}
}

func TestSaveHandlerAndFailure(t *testing.T) {
	r, s := openFilled(t, 1)

	var snaps []Snapshot
	r.SetSaveHandler(func(sn Snapshot) { snaps = append(snaps, sn) })

	r.AddOrUpdate(addr(2), "B")
	if len(snaps) != 1 || len(snaps[0].Devices) != 2 {
		t.Fatalf("expected one save notification with 2 devices but got %v", snaps)
	}

	s.FailPuts(errors.New("nvs full"))
	if _, err := r.AddOrUpdate(addr(3), "C"); err == nil {
		t.Fatalf("expected save error")
	}
	if r.Count() != 3 {
		t.Fatalf("expected in-memory change to survive a failed save")
	}
	if len(snaps) != 1 {
		t.Fatalf("expected no notification for a failed save")
	}
}

func TestReload(t *testing.T) {
	r, s := openFilled(t, 2)

	other, _ := Open(s)
	other.Delete(addr(1))

	if err := r.Reload(); err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	if got := order(r); !reflect.DeepEqual(got, []byte{2}) {
		t.Fatalf("expected reloaded [2] but got %v", got)
	}
}

func TestConcurrentMutations(t *testing.T) {
	r, s := openFilled(t, 0)

	var wg sync.WaitGroup
	for i := 1; i <= MaxDevices; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.AddOrUpdate(addr(byte(i)), "")
		}(i)
	}
	wg.Wait()

	r2, _ := Open(s)
	if r2.Count() != MaxDevices {
		t.Fatalf("expected the last save to hold %d devices but got %d", MaxDevices, r2.Count())
	}
}
