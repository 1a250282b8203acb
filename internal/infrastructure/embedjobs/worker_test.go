package embedjobs

import (
	"context"
	"errors"
	"testing"

	"github.com/outletiq/reco-backend/internal/domain"
	"github.com/outletiq/reco-backend/internal/index"
	"github.com/outletiq/reco-backend/internal/usecase"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)        {}
func (nopLogger) Infof(string, ...any)         {}
func (nopLogger) Warnf(string, ...any)         {}
func (nopLogger) Errorf(error, string, ...any) {}

type fakeTaskRepo struct {
	pending   []*usecase.EmbeddingTask
	processed []int64
	failed    map[int64]string
}

func (f *fakeTaskRepo) Create(_ context.Context, task *usecase.EmbeddingTask) (*usecase.EmbeddingTask, error) {
	f.pending = append(f.pending, task)
	return task, nil
}

func (f *fakeTaskRepo) GetAndMarkAsProcessing(_ context.Context, limit int) ([]*usecase.EmbeddingTask, error) {
	if len(f.pending) == 0 {
		return nil, nil
	}
	n := limit
	if n > len(f.pending) {
		n = len(f.pending)
	}
	batch := f.pending[:n]
	f.pending = f.pending[n:]
	return batch, nil
}

func (f *fakeTaskRepo) MarkAsProcessed(_ context.Context, id int64) error {
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeTaskRepo) MarkAsFailed(_ context.Context, id int64, reason string) error {
	if f.failed == nil {
		f.failed = make(map[int64]string)
	}
	f.failed[id] = reason
	return nil
}

type fakeVectorizer struct {
	failURL string
}

func (f *fakeVectorizer) Vectorize(_ context.Context, imageURL string) (*usecase.VectorizeRes, error) {
	if imageURL == f.failURL {
		return nil, errors.New("extractor timeout")
	}
	return usecase.NewVectorizeRes([]float32{1, 2}, "clip-v1"), nil
}

type fakeEmbeddingStore struct {
	embeddings map[string]*domain.Embedding
}

func newFakeEmbeddingStore() *fakeEmbeddingStore {
	return &fakeEmbeddingStore{embeddings: make(map[string]*domain.Embedding)}
}

func (f *fakeEmbeddingStore) Upsert(_ context.Context, emb *domain.Embedding) error {
	f.embeddings[emb.ProductID] = emb
	return nil
}

func (f *fakeEmbeddingStore) Get(_ context.Context, productID string) (*domain.Embedding, error) {
	return f.embeddings[productID], nil
}

func (f *fakeEmbeddingStore) FetchAll(context.Context) ([]domain.Embedding, error) {
	all := make([]domain.Embedding, 0, len(f.embeddings))
	for _, emb := range f.embeddings {
		all = append(all, *emb)
	}
	return all, nil
}

func (f *fakeEmbeddingStore) Delete(_ context.Context, productID string) error {
	delete(f.embeddings, productID)
	return nil
}

func pendingTask(id int64, productID string, imageURL string) *usecase.EmbeddingTask {
	task := usecase.NewEmbeddingTask("task-"+productID, productID, imageURL)
	task.ID = id
	return task
}

func TestProcessBatchContinuesPastFailedTask(t *testing.T) {
	taskRepo := &fakeTaskRepo{pending: []*usecase.EmbeddingTask{
		pendingTask(1, "p1", "https://img.example/p1.jpg"),
		pendingTask(2, "p2", "https://img.example/broken.jpg"),
		pendingTask(3, "p3", "https://img.example/p3.jpg"),
	}}
	store := newFakeEmbeddingStore()
	idx := index.New(2, nopLogger{})
	w := NewWorker(taskRepo, store, &fakeVectorizer{failURL: "https://img.example/broken.jpg"}, idx, nopLogger{}, "")

	hasMore, err := w.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !hasMore {
		t.Fatal("non-empty batch must report hasMore")
	}

	if len(taskRepo.processed) != 2 {
		t.Fatalf("expected 2 processed tasks, got %v", taskRepo.processed)
	}
	if len(taskRepo.failed) != 1 {
		t.Fatalf("expected 1 failed task, got %v", taskRepo.failed)
	}
	if reason, ok := taskRepo.failed[2]; !ok || reason == "" {
		t.Fatalf("task 2 must be marked failed with a reason, got %v", taskRepo.failed)
	}

	if len(store.embeddings) != 2 {
		t.Fatalf("expected embeddings for p1 and p3, got %d", len(store.embeddings))
	}
	if _, ok := store.embeddings["p2"]; ok {
		t.Fatal("failed task must not store an embedding")
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 vectors in index, got %d", idx.Len())
	}

	// Очередь пуста: следующий батч ничего не берёт
	hasMore, err = w.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if hasMore {
		t.Fatal("empty queue must report no more work")
	}
}

func TestProcessBatchReplacesExistingVector(t *testing.T) {
	taskRepo := &fakeTaskRepo{pending: []*usecase.EmbeddingTask{
		pendingTask(1, "p1", "https://img.example/p1-v2.jpg"),
	}}
	store := newFakeEmbeddingStore()
	idx := index.New(2, nopLogger{})
	if err := idx.Add([][]float32{{9, 9}}, []string{"p1"}); err != nil {
		t.Fatalf("seed index: %v", err)
	}
	w := NewWorker(taskRepo, store, &fakeVectorizer{}, idx, nopLogger{}, "")

	if _, err := w.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}

	// Перевекторизация не плодит дубликаты
	if idx.Len() != 1 {
		t.Fatalf("expected single vector after revectorization, got %d", idx.Len())
	}
	if len(taskRepo.processed) != 1 {
		t.Fatalf("expected task processed, got %v", taskRepo.processed)
	}
}
