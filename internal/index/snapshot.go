package index

import "time"

// snapshot — неизменяемое состояние индекса: плотный массив векторов (row-major)
// и параллельный список ID товаров. Позиции стабильны только внутри снапшота.
type snapshot struct {
	vectors []float32 // n*dim, row-major
	ids     []string
	builtAt time.Time
}

func newSnapshot(vectors []float32, ids []string) *snapshot {
	return &snapshot{
		vectors: vectors,
		ids:     ids,
		builtAt: time.Now().UTC(),
	}
}

func emptySnapshot() *snapshot {
	return newSnapshot(nil, nil)
}

func (s *snapshot) len() int {
	return len(s.ids)
}

// row возвращает срез вектора на позиции i без копирования.
func (s *snapshot) row(i, dim int) []float32 {
	return s.vectors[i*dim : (i+1)*dim]
}
