package index

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/outletiq/reco-backend/pkg/e"
)

// Имена связанных артефактов снапшота.
const (
	VectorsArtifact = "vectors.bin"
	IDsArtifact     = "ids.bin"
)

const (
	vectorsMagic uint32 = 0x4F495658 // "OIVX"
	idsMagic     uint32 = 0x4F494944 // "OIID"
)

// ArtifactStore — хранилище артефактов индекса (MinIO в продакшене, память в тестах).
type ArtifactStore interface {
	PutArtifact(ctx context.Context, name string, data []byte) error
	GetArtifact(ctx context.Context, name string) ([]byte, error)
}

// Save сериализует текущий снапшот в два связанных артефакта: бинарный блоб
// векторов (row-major float32 LE) и список ID той же длины.
func (i *FlatIndex) Save(ctx context.Context, store ArtifactStore) error {
	const op = "FlatIndex.Save"

	snap := i.snap.Load()

	if err := store.PutArtifact(ctx, VectorsArtifact, encodeVectors(snap, i.dim)); err != nil {
		return e.Wrap(op, err)
	}
	if err := store.PutArtifact(ctx, IDsArtifact, encodeIDs(snap)); err != nil {
		return e.Wrap(op, err)
	}

	i.logger.Infof("index: saved snapshot with %d vectors", snap.len())
	return nil
}

// Load восстанавливает индекс из сохранённых артефактов. Оба артефакта
// валидируются на согласованность (размерность, количество строк) до
// публикации; при любой ошибке текущий снапшот остаётся активным.
func (i *FlatIndex) Load(ctx context.Context, store ArtifactStore) error {
	const op = "FlatIndex.Load"

	vecData, err := store.GetArtifact(ctx, VectorsArtifact)
	if err != nil {
		return e.Wrap(op, err)
	}
	idData, err := store.GetArtifact(ctx, IDsArtifact)
	if err != nil {
		return e.Wrap(op, err)
	}

	vectors, dim, err := decodeVectors(vecData)
	if err != nil {
		return e.Wrap(op, err)
	}
	ids, err := decodeIDs(idData)
	if err != nil {
		return e.Wrap(op, err)
	}

	if dim != i.dim {
		return e.Wrap(op, fmt.Errorf("%w: artifact dim %d, index dim %d", e.ErrVectorDimensionMismatch, dim, i.dim))
	}
	if len(vectors)/i.dim != len(ids) || len(vectors)%i.dim != 0 {
		return e.Wrap(op, fmt.Errorf("%w: %d vector rows vs %d ids", e.ErrIndexArtifactMismatch, len(vectors)/i.dim, len(ids)))
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.snap.Store(newSnapshot(vectors, ids))

	i.logger.Infof("index: loaded snapshot with %d vectors", len(ids))
	return nil
}

func encodeVectors(snap *snapshot, dim int) []byte {
	buf := make([]byte, 12+4*len(snap.vectors))
	binary.LittleEndian.PutUint32(buf[0:4], vectorsMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(dim))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(snap.len()))
	off := 12
	for _, v := range snap.vectors {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
		off += 4
	}
	return buf
}

func decodeVectors(data []byte) ([]float32, int, error) {
	if len(data) < 12 {
		return nil, 0, fmt.Errorf("%w: vectors artifact truncated", e.ErrIndexArtifactMismatch)
	}
	if binary.LittleEndian.Uint32(data[0:4]) != vectorsMagic {
		return nil, 0, fmt.Errorf("%w: bad vectors magic", e.ErrIndexArtifactMismatch)
	}
	dim := int(binary.LittleEndian.Uint32(data[4:8]))
	count := int(binary.LittleEndian.Uint32(data[8:12]))

	want := 12 + 4*dim*count
	if dim <= 0 && count > 0 || len(data) != want {
		return nil, 0, fmt.Errorf("%w: vectors artifact size %d, expected %d", e.ErrIndexArtifactMismatch, len(data), want)
	}

	vectors := make([]float32, dim*count)
	off := 12
	for n := range vectors {
		vectors[n] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
	}
	return vectors, dim, nil
}

func encodeIDs(snap *snapshot) []byte {
	size := 8
	for _, id := range snap.ids {
		size += 4 + len(id)
	}
	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint32(buf, idsMagic)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(snap.len()))
	for _, id := range snap.ids {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(id)))
		buf = append(buf, id...)
	}
	return buf
}

func decodeIDs(data []byte) ([]string, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: ids artifact truncated", e.ErrIndexArtifactMismatch)
	}
	if binary.LittleEndian.Uint32(data[0:4]) != idsMagic {
		return nil, fmt.Errorf("%w: bad ids magic", e.ErrIndexArtifactMismatch)
	}
	count := int(binary.LittleEndian.Uint32(data[4:8]))

	ids := make([]string, 0, count)
	off := 8
	for n := 0; n < count; n++ {
		if off+4 > len(data) {
			return nil, fmt.Errorf("%w: ids artifact truncated at entry %d", e.ErrIndexArtifactMismatch, n)
		}
		l := int(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
		if off+l > len(data) {
			return nil, fmt.Errorf("%w: ids artifact truncated at entry %d", e.ErrIndexArtifactMismatch, n)
		}
		ids = append(ids, string(data[off:off+l]))
		off += l
	}
	if off != len(data) {
		return nil, fmt.Errorf("%w: trailing bytes in ids artifact", e.ErrIndexArtifactMismatch)
	}
	return ids, nil
}
