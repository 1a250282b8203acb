package qdrant

import (
	"context"
	"time"

	"github.com/outletiq/reco-backend/internal/cfg"
	"github.com/outletiq/reco-backend/internal/domain"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

const scrollBatchSize = 1000

// EmbeddingRepo — долговременное хранилище эмбеддингов в Qdrant.
// Один товар — одна точка: ID точки детерминированно выводится из ID товара,
// поэтому повторная векторизация перезаписывает точку, а не плодит дубликаты.
type EmbeddingRepo struct {
	client *qdrant.Client
	cfg    *cfg.QdrantCfg
}

func NewEmbeddingRepo(client *qdrant.Client, cfg *cfg.QdrantCfg) *EmbeddingRepo {
	return &EmbeddingRepo{
		client: client,
		cfg:    cfg,
	}
}

// pointID детерминированно строит UUID точки из ID товара (UUID v5).
func pointID(productID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("product:"+productID)).String()
}

// Upsert сохраняет или обновляет эмбеддинг товара.
func (q *EmbeddingRepo) Upsert(ctx context.Context, emb *domain.Embedding) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(pointID(emb.ProductID)),
		Vectors: qdrant.NewVectors(emb.Vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			"product_id":    emb.ProductID,
			"model_version": emb.ModelVersion,
			"image_url":     emb.ImageURL,
			"created_at":    emb.CreatedAt.Unix(),
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Get возвращает эмбеддинг товара или (nil, nil), если точки нет.
func (q *EmbeddingRepo) Get(ctx context.Context, productID string) (*domain.Embedding, error) {
	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(pointID(productID))},
		WithVectors:    qdrant.NewWithVectors(true),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if len(points) == 0 {
		return nil, nil
	}

	return retrievedToEmbedding(points[0]), nil
}

// FetchAll выгружает все эмбеддинги коллекции батчами для перестройки индекса.
func (q *EmbeddingRepo) FetchAll(ctx context.Context) ([]domain.Embedding, error) {
	result := make([]domain.Embedding, 0)
	var offset *qdrant.PointId
	seen := make(map[string]struct{})

	for {
		points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: q.cfg.QdrantCollectionName,
			Limit:          qdrant.PtrOf(uint32(scrollBatchSize)),
			Offset:         offset,
			WithVectors:    qdrant.NewWithVectors(true),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		if len(points) == 0 {
			break
		}

		added := 0
		for _, point := range points {
			id := point.Id.GetUuid()
			// offset включает стартовую точку, пропускаем уже виденные
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			result = append(result, *retrievedToEmbedding(point))
			added++
		}
		if added == 0 || len(points) < scrollBatchSize {
			break
		}
		offset = points[len(points)-1].Id
	}

	return result, nil
}

// Delete удаляет эмбеддинг товара.
func (q *EmbeddingRepo) Delete(ctx context.Context, productID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(pointID(productID))),
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func retrievedToEmbedding(point *qdrant.RetrievedPoint) *domain.Embedding {
	emb := &domain.Embedding{}

	if v := point.GetVectors().GetVector(); v != nil {
		emb.Vector = v.Data
	}

	payload := point.GetPayload()
	if val, ok := payload["product_id"]; ok {
		emb.ProductID = val.GetStringValue()
	}
	if val, ok := payload["model_version"]; ok {
		emb.ModelVersion = val.GetStringValue()
	}
	if val, ok := payload["image_url"]; ok {
		emb.ImageURL = val.GetStringValue()
	}
	if val, ok := payload["created_at"]; ok {
		emb.CreatedAt = time.Unix(val.GetIntegerValue(), 0).UTC()
	}

	return emb
}
