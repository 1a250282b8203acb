package index

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/outletiq/reco-backend/pkg/e"
)

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) PutArtifact(_ context.Context, name string, data []byte) error {
	s.objects[name] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) GetArtifact(_ context.Context, name string) ([]byte, error) {
	data, ok := s.objects[name]
	if !ok {
		return nil, fmt.Errorf("artifact %s not found", name)
	}
	return data, nil
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	src := testIndex(t, 3)
	vectors := [][]float32{
		{0.1, 0.2, 0.3},
		{0.9, 0.8, 0.7},
		{0.5, 0.5, 0.5},
	}
	ids := []string{"p-1", "p-2", "p-3"}
	if err := src.Add(vectors, ids); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := src.Save(ctx, store); err != nil {
		t.Fatalf("save: %v", err)
	}

	dst := testIndex(t, 3)
	if err := dst.Load(ctx, store); err != nil {
		t.Fatalf("load: %v", err)
	}

	query := []float32{0.1, 0.2, 0.31}
	want, err := src.Search(query, 3, "")
	if err != nil {
		t.Fatalf("search src: %v", err)
	}
	got, err := dst.Search(query, 3, "")
	if err != nil {
		t.Fatalf("search dst: %v", err)
	}

	if len(want) != len(got) {
		t.Fatalf("result count mismatch: %d vs %d", len(want), len(got))
	}
	for n := range want {
		if want[n] != got[n] {
			t.Fatalf("result %d differs: %+v vs %+v", n, want[n], got[n])
		}
	}
}

func TestLoadFailsClosedOnMismatch(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	src := testIndex(t, 2)
	if err := src.Add([][]float32{{1, 0}, {0, 1}}, []string{"a", "b"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := src.Save(ctx, store); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Портим счётчик в артефакте с ID: заявляем 1 запись вместо 2
	idData := store.objects[IDsArtifact]
	binary.LittleEndian.PutUint32(idData[4:8], 1)

	dst := testIndex(t, 2)
	if err := dst.Add([][]float32{{5, 5}}, []string{"kept"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := dst.Load(ctx, store); !errors.Is(err, e.ErrIndexArtifactMismatch) {
		t.Fatalf("expected ErrIndexArtifactMismatch, got %v", err)
	}

	// Прежний снапшот остаётся активным
	results, err := dst.Search([]float32{5, 5}, 1, "")
	if err != nil {
		t.Fatalf("search after failed load: %v", err)
	}
	if len(results) != 1 || results[0].ProductID != "kept" {
		t.Fatalf("previous snapshot lost after failed load: %+v", results)
	}
}

func TestLoadRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	src := testIndex(t, 4)
	if err := src.Add([][]float32{{1, 2, 3, 4}}, []string{"a"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := src.Save(ctx, store); err != nil {
		t.Fatalf("save: %v", err)
	}

	dst := testIndex(t, 8)
	if err := dst.Load(ctx, store); !errors.Is(err, e.ErrVectorDimensionMismatch) {
		t.Fatalf("expected ErrVectorDimensionMismatch, got %v", err)
	}
	if dst.Len() != 0 {
		t.Fatalf("failed load must keep index empty, got %d", dst.Len())
	}
}

func TestLoadMissingArtifact(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	src := testIndex(t, 2)
	if err := src.Add([][]float32{{1, 0}}, []string{"a"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := src.Save(ctx, store); err != nil {
		t.Fatalf("save: %v", err)
	}
	delete(store.objects, IDsArtifact)

	dst := testIndex(t, 2)
	if err := dst.Load(ctx, store); err == nil {
		t.Fatal("load must fail when one of the linked artifacts is missing")
	}
	if dst.Len() != 0 {
		t.Fatalf("failed load must keep index empty, got %d", dst.Len())
	}
}

func TestSaveEmptyIndex(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	src := testIndex(t, 2)
	if err := src.Save(ctx, store); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	dst := testIndex(t, 2)
	if err := dst.Load(ctx, store); err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if dst.Len() != 0 {
		t.Fatalf("expected empty index, got %d", dst.Len())
	}
}
