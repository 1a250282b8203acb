package minio

import (
	"bytes"
	"context"
	"io"

	"github.com/outletiq/reco-backend/internal/cfg"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// ArtifactRepo хранит бинарные артефакты снапшота индекса в MinIO.
// Объекты перезаписываются на месте: актуален всегда последний снапшот.
type ArtifactRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewArtifactRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *ArtifactRepo {
	return &ArtifactRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// PutArtifact загружает артефакт под фиксированным именем.
func (a *ArtifactRepo) PutArtifact(ctx context.Context, name string, data []byte) error {
	reader := bytes.NewReader(data)

	_, err := a.mc.PutObject(ctx, a.cfg.BucketName, name, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// GetArtifact читает артефакт целиком.
func (a *ArtifactRepo) GetArtifact(ctx context.Context, name string) ([]byte, error) {
	obj, err := a.mc.GetObject(ctx, a.cfg.BucketName, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return data, nil
}
