package embedjobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/outletiq/reco-backend/internal/domain"
	"github.com/outletiq/reco-backend/internal/index"
	"github.com/outletiq/reco-backend/internal/usecase"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/logger"
	"github.com/jackc/pgx/v5"
)

const (
	notifyChannel = "embedding_tasks_pending"
	batchSize     = 10
)

// Worker обрабатывает очередь задач векторизации: забирает батч задач из БД,
// извлекает вектор по изображению, сохраняет эмбеддинг и добавляет его в
// индекс. Просыпается по NOTIFY из транзакции регистрации товара, при старте
// выгребает накопившиеся задачи.
//
// Ошибка одной задачи помечает только её: остальной батч продолжает
// обрабатываться.
type Worker struct {
	taskRepo       usecase.EmbeddingTaskRepository
	embeddingStore usecase.EmbeddingStore
	vectorizer     usecase.VectorizerInfra
	flatIndex      *index.FlatIndex
	logger         logger.Logger
	stop           chan struct{}
	wg             sync.WaitGroup
	dbConnStr      string
}

func NewWorker(
	taskRepo usecase.EmbeddingTaskRepository,
	embeddingStore usecase.EmbeddingStore,
	vectorizer usecase.VectorizerInfra,
	flatIndex *index.FlatIndex,
	logger logger.Logger,
	dbConnStr string,
) *Worker {
	return &Worker{
		taskRepo:       taskRepo,
		embeddingStore: embeddingStore,
		vectorizer:     vectorizer,
		flatIndex:      flatIndex,
		logger:         logger,
		stop:           make(chan struct{}),
		dbConnStr:      dbConnStr,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()

	// Запускаем слушатель уведомлений
	go func() {
		defer w.wg.Done()
		w.listenTaskNotifications(ctx)
	}()
}

func (w *Worker) Stop() {
	close(w.stop)
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	// Обрабатываем "остатки" при старте
	w.logger.Infof("Draining pending embedding tasks on startup...")
	w.drain(ctx)

	<-ctx.Done()
	w.logger.Infof("Embedding worker stopped by context cancellation")
}

func (w *Worker) listenTaskNotifications(ctx context.Context) {
	var conn *pgx.Conn
	var err error

	connect := func() error {
		conn, err = pgx.Connect(ctx, w.dbConnStr)
		if err != nil {
			return e.Wrap("failed to connect for LISTEN", err)
		}

		_, err = conn.Exec(ctx, "LISTEN "+notifyChannel)
		if err != nil {
			conn.Close(ctx)
			return e.Wrap("failed to LISTEN", err)
		}

		w.logger.Infof("Subscribed to '%s' channel", notifyChannel)
		return nil
	}

	if err := connect(); err != nil {
		w.logger.Warnf("Initial connect failed: %v", err)
		return
	}
	defer conn.Close(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		default:
			ctxWithTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
			notif, err := conn.WaitForNotification(ctxWithTimeout)
			cancel()

			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					// Страховка от потерянных NOTIFY
					w.drain(ctx)
					continue
				}
				if errors.Is(err, context.Canceled) {
					continue
				}
				w.logger.Warnf("Connection lost: %v. Reconnecting...", err)
				conn.Close(ctx)

				time.Sleep(2 * time.Second)
				if err := connect(); err != nil {
					w.logger.Warnf("Reconnect failed: %v", err)
					time.Sleep(5 * time.Second)
				}
				continue
			}

			if notif != nil && notif.Channel == notifyChannel {
				w.logger.Debugf("Received task notification, draining embedding tasks")
				w.drain(ctx)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		hasMore, err := w.ProcessBatch(ctx)
		if err != nil {
			w.logger.Warnf("Batch processing failed: %v", err)
			return
		}
		if !hasMore {
			return
		}
	}
}

// ProcessBatch забирает и обрабатывает один батч задач.
// Возвращает true, если в очереди могли остаться ещё задачи.
func (w *Worker) ProcessBatch(ctx context.Context) (bool, error) {
	tasks, err := w.taskRepo.GetAndMarkAsProcessing(ctx, batchSize)
	if err != nil {
		return false, err
	}

	if len(tasks) == 0 {
		return false, nil
	}

	stats := usecase.EmbedBatchStats{}
	for _, task := range tasks {
		if err := w.processTask(ctx, task); err != nil {
			stats.Failed++
			w.logger.Warnf("Task %s failed for product %s: %v", task.TaskID, task.ProductID, err)
			if err := w.taskRepo.MarkAsFailed(ctx, task.ID, err.Error()); err != nil {
				w.logger.Warnf("mark failed failed: %v", err)
			}
			continue
		}
		stats.Processed++
		if err := w.taskRepo.MarkAsProcessed(ctx, task.ID); err != nil {
			w.logger.Warnf("mark processed failed: %v", err)
		}
	}

	w.logger.Infof("Embedding batch done: %d processed, %d failed", stats.Processed, stats.Failed)
	return true, nil
}

func (w *Worker) processTask(ctx context.Context, task *usecase.EmbeddingTask) error {
	res, err := w.vectorizer.Vectorize(ctx, task.ImageURL)
	if err != nil {
		return e.Wrap("vectorize", err)
	}
	if len(res.Vector) == 0 {
		return e.Wrap("vectorize", e.ErrEmptyVectors)
	}

	emb := domain.NewEmbedding(task.ProductID, res.Vector, res.ModelVersion, task.ImageURL)
	if err := w.embeddingStore.Upsert(ctx, emb); err != nil {
		return e.Wrap("store embedding", err)
	}

	// Перевекторизация существующего товара: убираем старый вектор,
	// чтобы не плодить дубликаты в индексе
	if _, err := w.flatIndex.Remove(task.ProductID); err != nil {
		return e.Wrap("index remove", err)
	}
	if err := w.flatIndex.Add([][]float32{res.Vector}, []string{task.ProductID}); err != nil {
		return e.Wrap("index add", err)
	}

	return nil
}
