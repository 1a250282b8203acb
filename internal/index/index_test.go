package index

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/outletiq/reco-backend/pkg/e"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)        {}
func (nopLogger) Infof(string, ...any)         {}
func (nopLogger) Warnf(string, ...any)         {}
func (nopLogger) Errorf(error, string, ...any) {}

func testIndex(t *testing.T, dim int) *FlatIndex {
	t.Helper()
	return New(dim, nopLogger{})
}

func TestAddValidation(t *testing.T) {
	idx := testIndex(t, 4)

	if err := idx.Add([][]float32{{1, 2, 3, 4}}, []string{"a", "b"}); !errors.Is(err, e.ErrVectorsIDsMismatch) {
		t.Fatalf("expected ErrVectorsIDsMismatch, got %v", err)
	}
	if err := idx.Add([][]float32{{1, 2, 3}}, []string{"a"}); !errors.Is(err, e.ErrVectorDimensionMismatch) {
		t.Fatalf("expected ErrVectorDimensionMismatch, got %v", err)
	}
	// Ошибка валидации не должна добавить ничего
	if idx.Len() != 0 {
		t.Fatalf("index should stay empty after failed add, got %d", idx.Len())
	}

	if err := idx.Add([][]float32{{1, 2, 3, 4}, {4, 3, 2, 1}}, []string{"a", "b"}); err != nil {
		t.Fatalf("valid add failed: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 vectors, got %d", idx.Len())
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := testIndex(t, 2)

	_, err := idx.Search([]float32{1, 0}, 5, "")
	if !errors.Is(err, e.ErrIndexEmpty) {
		t.Fatalf("expected ErrIndexEmpty, got %v", err)
	}
}

func TestSearchNearAndDistant(t *testing.T) {
	idx := testIndex(t, 3)

	// Три почти одинаковых вектора и один далёкий
	vectors := [][]float32{
		{1.0, 0.0, 0.0},
		{0.99, 0.01, 0.0},
		{0.98, 0.0, 0.02},
		{0.0, 0.0, 1.0},
	}
	ids := []string{"near-1", "near-2", "near-3", "distant"}
	if err := idx.Add(vectors, ids); err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := idx.Search(vectors[0], 2, "near-1")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, m := range results {
		if m.ProductID == "near-1" {
			t.Fatalf("excluded id returned: %+v", m)
		}
		if m.ProductID == "distant" {
			t.Fatalf("distant vector ranked above near-identical ones")
		}
	}

	results, err = idx.Search(vectors[0], 3, "near-1")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[2].ProductID != "distant" {
		t.Fatalf("expected distant last, got %s", results[2].ProductID)
	}
}

func TestSearchSimilarityProperties(t *testing.T) {
	idx := testIndex(t, 8)

	rng := rand.New(rand.NewSource(7))
	var vectors [][]float32
	var ids []string
	for n := 0; n < 50; n++ {
		v := make([]float32, 8)
		for j := range v {
			v[j] = rng.Float32()
		}
		vectors = append(vectors, v)
		ids = append(ids, string(rune('a'+n%26))+string(rune('0'+n/26)))
	}
	if err := idx.Add(vectors, ids); err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := idx.Search(vectors[0], 10, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) > 10 {
		t.Fatalf("more than k results: %d", len(results))
	}
	for n, m := range results {
		if m.Similarity <= 0 || m.Similarity > 1 {
			t.Fatalf("similarity out of (0,1]: %f", m.Similarity)
		}
		if n > 0 && results[n-1].Similarity < m.Similarity {
			t.Fatalf("results not sorted by similarity desc at %d", n)
		}
	}
	// Точное совпадение — similarity 1.0 и первый результат
	if results[0].Similarity != 1.0 {
		t.Fatalf("exact match similarity = %f, want 1.0", results[0].Similarity)
	}
}

func TestSearchExcludeKeepsEnoughCandidates(t *testing.T) {
	idx := testIndex(t, 2)

	var vectors [][]float32
	var ids []string
	for n := 0; n < 15; n++ {
		vectors = append(vectors, []float32{float32(n), float32(n)})
		ids = append(ids, string(rune('a'+n)))
	}
	if err := idx.Add(vectors, ids); err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := idx.Search(vectors[3], 10, ids[3])
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 10 {
		t.Fatalf("exclusion reduced results below k: got %d, want 10", len(results))
	}
}

func TestSearchFewerThanK(t *testing.T) {
	idx := testIndex(t, 2)
	if err := idx.Add([][]float32{{1, 0}, {0, 1}}, []string{"a", "b"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := idx.Search([]float32{1, 0}, 10, "")
	if err != nil {
		t.Fatalf("search should not error when index holds fewer vectors: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestRemove(t *testing.T) {
	idx := testIndex(t, 2)
	if err := idx.Add([][]float32{{1, 0}, {0, 1}, {1, 1}}, []string{"a", "b", "c"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	removed, err := idx.Remove("missing")
	if err != nil {
		t.Fatalf("remove of absent id must be a no-op: %v", err)
	}
	if removed {
		t.Fatal("removed reported true for absent id")
	}
	if idx.Len() != 3 {
		t.Fatalf("no-op remove changed index size: %d", idx.Len())
	}

	removed, err = idx.Remove("b")
	if err != nil || !removed {
		t.Fatalf("remove failed: removed=%v err=%v", removed, err)
	}

	results, err := idx.Search([]float32{0, 1}, 3, "")
	if err != nil {
		t.Fatalf("search after remove: %v", err)
	}
	for _, m := range results {
		if m.ProductID == "b" {
			t.Fatal("removed id still searchable")
		}
	}
	if len(results) != 2 {
		t.Fatalf("remaining index corrupted: got %d results", len(results))
	}
}

func TestReset(t *testing.T) {
	idx := testIndex(t, 2)
	if err := idx.Add([][]float32{{1, 0}}, []string{"a"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	idx.Reset()
	if idx.Len() != 0 {
		t.Fatalf("reset left %d vectors", idx.Len())
	}
	if idx.Dimension() != 2 {
		t.Fatalf("reset changed dimension: %d", idx.Dimension())
	}
}

// Читатели никогда не должны видеть наполовину заполненный снапшот:
// каждый поиск обязан вернуть результат, согласованный с каким-то одним
// полным состоянием индекса.
func TestConcurrentSearchDuringReplace(t *testing.T) {
	idx := testIndex(t, 4)

	build := func(n int) ([][]float32, []string) {
		vectors := make([][]float32, n)
		ids := make([]string, n)
		for j := 0; j < n; j++ {
			vectors[j] = []float32{float32(j), 1, 2, 3}
			ids[j] = string(rune('a' + j%26))
		}
		return vectors, ids
	}

	vectors, ids := build(20)
	if err := idx.Replace(vectors, ids); err != nil {
		t.Fatalf("replace: %v", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			query := []float32{5, 1, 2, 3}
			for {
				select {
				case <-done:
					return
				default:
				}
				results, err := idx.Search(query, 5, "")
				if err != nil {
					t.Errorf("search during replace: %v", err)
					return
				}
				// оба снапшота содержат >= 10 векторов, k всегда достижимо
				if len(results) != 5 {
					t.Errorf("torn snapshot observed: %d results", len(results))
					return
				}
			}
		}()
	}

	for n := 0; n < 100; n++ {
		size := 10 + n%15
		vectors, ids := build(size)
		if err := idx.Replace(vectors, ids); err != nil {
			t.Fatalf("replace: %v", err)
		}
	}
	close(done)
	wg.Wait()
}
