package index

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/logger"
)

// excludeBuffer — запас кандидатов при поиске с исключением, чтобы после
// фильтрации гарантированно осталось k результатов.
const excludeBuffer = 10

// Match — один результат поиска ближайших соседей.
type Match struct {
	ProductID  string
	Distance   float64 // квадрат евклидова расстояния
	Similarity float64 // 1 / (1 + distance), диапазон (0, 1]
}

// Stats — статистика индекса для мониторинга.
type Stats struct {
	VectorCount int
	Dimension   int
	BuiltAt     time.Time
}

// FlatIndex — точный векторный индекс с полным перебором (brute force, L2).
//
// Чтение идёт по опубликованному снапшоту без блокировок: мутации строят новый
// снапшот в стороне и публикуют его атомарной заменой указателя. Читатели,
// начавшие поиск до замены, продолжают работать со своим снапшотом.
//
// Поиск стоит O(n*dim) на запрос; индекс рассчитан на каталоги до ~10^5
// товаров, на больших объёмах нужен другой тип индекса.
type FlatIndex struct {
	dim    int
	mu     sync.Mutex // сериализует мутации; чтения не блокирует
	snap   atomic.Pointer[snapshot]
	logger logger.Logger
}

func New(dim int, logger logger.Logger) *FlatIndex {
	idx := &FlatIndex{
		dim:    dim,
		logger: logger,
	}
	idx.snap.Store(emptySnapshot())
	return idx
}

func (i *FlatIndex) Dimension() int {
	return i.dim
}

func (i *FlatIndex) Len() int {
	return i.snap.Load().len()
}

// Add дописывает векторы в индекс. Операция атомарна: при любой ошибке
// валидации не добавляется ничего. Дубликаты ID не отслеживаются — за
// дедупликацию отвечает вызывающая сторона, штатный путь перестройки
// формирует индекс заново.
func (i *FlatIndex) Add(vectors [][]float32, ids []string) error {
	const op = "FlatIndex.Add"

	if len(vectors) != len(ids) {
		return e.Wrap(op, e.ErrVectorsIDsMismatch)
	}
	for _, v := range vectors {
		if len(v) != i.dim {
			return e.Wrap(op, e.ErrVectorDimensionMismatch)
		}
	}
	if len(vectors) == 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	cur := i.snap.Load()
	flat := make([]float32, 0, len(cur.vectors)+len(vectors)*i.dim)
	flat = append(flat, cur.vectors...)
	for _, v := range vectors {
		flat = append(flat, v...)
	}

	newIDs := make([]string, 0, len(cur.ids)+len(ids))
	newIDs = append(newIDs, cur.ids...)
	newIDs = append(newIDs, ids...)

	i.snap.Store(newSnapshot(flat, newIDs))
	i.logger.Infof("index: added %d vectors (total: %d)", len(vectors), len(newIDs))
	return nil
}

// Replace перестраивает индекс целиком из переданных векторов и публикует
// новый снапшот одной атомарной заменой. Используется фоновой перестройкой.
func (i *FlatIndex) Replace(vectors [][]float32, ids []string) error {
	const op = "FlatIndex.Replace"

	if len(vectors) != len(ids) {
		return e.Wrap(op, e.ErrVectorsIDsMismatch)
	}
	flat := make([]float32, 0, len(vectors)*i.dim)
	for _, v := range vectors {
		if len(v) != i.dim {
			return e.Wrap(op, e.ErrVectorDimensionMismatch)
		}
		flat = append(flat, v...)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.snap.Store(newSnapshot(flat, append([]string(nil), ids...)))
	i.logger.Infof("index: rebuilt with %d vectors", len(ids))
	return nil
}

// Search возвращает до k ближайших соседей запроса по квадрату L2-расстояния,
// отсортированных по возрастанию расстояния. excludeID исключает товар из
// выдачи (обычно сам запрашиваемый товар); при исключении кандидаты
// добираются с запасом, чтобы k результатов пережили фильтрацию.
// Возвращает меньше k, если в индексе меньше векторов.
func (i *FlatIndex) Search(query []float32, k int, excludeID string) ([]Match, error) {
	const op = "FlatIndex.Search"

	if len(query) != i.dim {
		return nil, e.Wrap(op, e.ErrVectorDimensionMismatch)
	}

	snap := i.snap.Load()
	if snap.len() == 0 {
		return nil, e.Wrap(op, e.ErrIndexEmpty)
	}
	if k <= 0 {
		return []Match{}, nil
	}

	searchK := k
	if excludeID != "" {
		searchK = k + excludeBuffer
	}

	type scored struct {
		pos  int
		dist float64
	}
	scoreds := make([]scored, snap.len())
	for pos := 0; pos < snap.len(); pos++ {
		scoreds[pos] = scored{pos: pos, dist: squaredL2(query, snap.row(pos, i.dim))}
	}
	sort.Slice(scoreds, func(a, b int) bool { return scoreds[a].dist < scoreds[b].dist })

	if searchK > len(scoreds) {
		searchK = len(scoreds)
	}

	results := make([]Match, 0, k)
	for _, s := range scoreds[:searchK] {
		id := snap.ids[s.pos]
		if excludeID != "" && id == excludeID {
			continue
		}
		results = append(results, Match{
			ProductID:  id,
			Distance:   s.dist,
			Similarity: 1 / (1 + s.dist),
		})
		if len(results) >= k {
			break
		}
	}

	return results, nil
}

// Remove убирает товар из индекса перестройкой снапшота без него.
// Плоский индекс не поддерживает удаление на месте, поэтому операция стоит
// O(n) и предназначена для редких точечных удалений, не для массовой чистки.
// Возвращает false, если товара в индексе не было (остальной индекс не трогается).
func (i *FlatIndex) Remove(id string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	cur := i.snap.Load()
	found := false
	for _, pid := range cur.ids {
		if pid == id {
			found = true
			break
		}
	}
	if !found {
		return false, nil
	}

	flat := make([]float32, 0, len(cur.vectors))
	ids := make([]string, 0, len(cur.ids))
	for pos, pid := range cur.ids {
		if pid == id {
			continue
		}
		flat = append(flat, cur.row(pos, i.dim)...)
		ids = append(ids, pid)
	}

	i.snap.Store(newSnapshot(flat, ids))
	i.logger.Infof("index: removed product %s (total: %d)", id, len(ids))
	return true, nil
}

// Reset очищает индекс до пустого состояния той же размерности.
func (i *FlatIndex) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.snap.Store(emptySnapshot())
}

func (i *FlatIndex) Stats() Stats {
	snap := i.snap.Load()
	return Stats{
		VectorCount: snap.len(),
		Dimension:   i.dim,
		BuiltAt:     snap.builtAt,
	}
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for n := range a {
		d := float64(a[n]) - float64(b[n])
		sum += d * d
	}
	return sum
}
