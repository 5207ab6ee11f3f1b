package baseline

import (
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	const fen = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	want := Record{Network: "test-net", Score: -42}
	if err := store.Put(fen, want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := store.Get(fen)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("stored record not found")
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	_, ok, err = store.Get("some other fen")
	if err != nil {
		t.Fatalf("Get missing failed: %v", err)
	}
	if ok {
		t.Error("missing key reported as found")
	}
}

func TestStoreForEach(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	recs := map[string]Record{
		"fen-a": {Network: "n", Score: 1},
		"fen-b": {Network: "n", Score: 2},
		"fen-c": {Network: "n", Score: 3},
	}
	for fen, rec := range recs {
		if err := store.Put(fen, rec); err != nil {
			t.Fatalf("Put %s failed: %v", fen, err)
		}
	}

	seen := map[string]Record{}
	err = store.ForEach(func(fen string, rec Record) error {
		seen[fen] = rec
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach failed: %v", err)
	}
	if len(seen) != len(recs) {
		t.Fatalf("visited %d records, want %d", len(seen), len(recs))
	}
	for fen, want := range recs {
		if seen[fen] != want {
			t.Errorf("%s: got %+v, want %+v", fen, seen[fen], want)
		}
	}
}
