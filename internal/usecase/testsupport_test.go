package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/outletiq/reco-backend/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)        {}
func (nopLogger) Infof(string, ...any)         {}
func (nopLogger) Warnf(string, ...any)         {}
func (nopLogger) Errorf(error, string, ...any) {}

type fakeInteractionRepo struct {
	matrix   *InteractionMatrix
	weights  []WeightedScore
	counts   []WeightedScore
	recent   []domain.Interaction
	appended []*domain.Interaction
	err      error
}

func (f *fakeInteractionRepo) Append(_ context.Context, inter *domain.Interaction) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, inter)
	return nil
}

func (f *fakeInteractionRepo) SessionProductWeights(context.Context, time.Time) (*InteractionMatrix, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.matrix == nil {
		return &InteractionMatrix{Weights: map[string]map[string]float64{}}, nil
	}
	return f.matrix, nil
}

func (f *fakeInteractionRepo) ProductWeights(context.Context, time.Time, string, string) ([]WeightedScore, error) {
	return f.weights, f.err
}

func (f *fakeInteractionRepo) ProductEventCounts(context.Context, time.Time, string, int) ([]WeightedScore, error) {
	return f.counts, f.err
}

func (f *fakeInteractionRepo) RecentBySession(context.Context, string, time.Time, int) ([]domain.Interaction, error) {
	return f.recent, f.err
}

type fakeSimilarityRepo struct {
	entries map[string]*domain.SimilarityCacheEntry
	upserts []*domain.SimilarityCacheEntry
}

func newFakeSimilarityRepo() *fakeSimilarityRepo {
	return &fakeSimilarityRepo{entries: make(map[string]*domain.SimilarityCacheEntry)}
}

func (f *fakeSimilarityRepo) UpsertEntry(_ context.Context, entry *domain.SimilarityCacheEntry) error {
	f.entries[entry.ProductID] = entry
	f.upserts = append(f.upserts, entry)
	return nil
}

func (f *fakeSimilarityRepo) GetEntry(_ context.Context, productID string, _ domain.Algorithm) (*domain.SimilarityCacheEntry, error) {
	return f.entries[productID], nil
}

type fakeCatalogRepo struct {
	products   map[string]ProductInfo
	discounted []ProductInfo
	requested  [][]string
	err        error
}

func (f *fakeCatalogRepo) Upsert(_ context.Context, product *domain.Product) (*domain.Product, error) {
	return product, f.err
}

func (f *fakeCatalogRepo) GetProducts(_ context.Context, ids []string) (map[string]ProductInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.requested = append(f.requested, ids)
	result := make(map[string]ProductInfo)
	for _, id := range ids {
		if info, ok := f.products[id]; ok {
			result[id] = info
		}
	}
	return result, nil
}

func (f *fakeCatalogRepo) ListByDiscount(context.Context, string, string, int, []string) ([]ProductInfo, error) {
	return f.discounted, f.err
}

type fakeCacheRepo struct {
	mu   sync.Mutex
	data map[string]ProductInfo
	sets [][]ProductInfo
	err  error
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{data: make(map[string]ProductInfo)}
}

func (f *fakeCacheRepo) GetProducts(_ context.Context, ids []string) (map[string]ProductInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	result := make(map[string]ProductInfo)
	for _, id := range ids {
		if info, ok := f.data[id]; ok {
			result[id] = info
		}
	}
	return result, nil
}

func (f *fakeCacheRepo) SetProducts(_ context.Context, products []ProductInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sets = append(f.sets, products)
	for _, info := range products {
		f.data[info.ID] = info
	}
	return nil
}

func (f *fakeCacheRepo) DeleteProducts(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.data, id)
	}
	return nil
}

func (f *fakeCacheRepo) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sets)
}

type fakeEmbeddingStore struct {
	embeddings map[string]*domain.Embedding
	upserts    []*domain.Embedding
	err        error
}

func newFakeEmbeddingStore() *fakeEmbeddingStore {
	return &fakeEmbeddingStore{embeddings: make(map[string]*domain.Embedding)}
}

func (f *fakeEmbeddingStore) Upsert(_ context.Context, emb *domain.Embedding) error {
	if f.err != nil {
		return f.err
	}
	f.embeddings[emb.ProductID] = emb
	f.upserts = append(f.upserts, emb)
	return nil
}

func (f *fakeEmbeddingStore) Get(_ context.Context, productID string) (*domain.Embedding, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.embeddings[productID], nil
}

func (f *fakeEmbeddingStore) FetchAll(context.Context) ([]domain.Embedding, error) {
	if f.err != nil {
		return nil, f.err
	}
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

type fakeVectorizer struct {
	vector []float32
	model  string
	calls  int
	err    error
}

func (f *fakeVectorizer) Vectorize(context.Context, string) (*VectorizeRes, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return NewVectorizeRes(f.vector, f.model), nil
}

type fakeProducer struct {
	mu        sync.Mutex
	published []*domain.Interaction
}

func (f *fakeProducer) PublishInteraction(_ context.Context, inter *domain.Interaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, inter)
	return nil
}

func (f *fakeProducer) publishedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

type memArtifactStore struct {
	artifacts map[string][]byte
}

func newMemArtifactStore() *memArtifactStore {
	return &memArtifactStore{artifacts: make(map[string][]byte)}
}

func (s *memArtifactStore) PutArtifact(_ context.Context, name string, data []byte) error {
	s.artifacts[name] = data
	return nil
}

func (s *memArtifactStore) GetArtifact(_ context.Context, name string) ([]byte, error) {
	data, ok := s.artifacts[name]
	if !ok {
		return nil, fmt.Errorf("artifact %s not found", name)
	}
	return data, nil
}

func inStock(id, category, brand string) ProductInfo {
	return ProductInfo{
		ID:       id,
		Title:    "product " + id,
		Category: category,
		Brand:    brand,
		Price:    1000,
		InStock:  true,
		ImageURL: "https://img.example/" + id + ".jpg",
	}
}
