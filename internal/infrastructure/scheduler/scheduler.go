package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/outletiq/reco-backend/internal/cfg"
	"github.com/outletiq/reco-backend/internal/usecase"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/jitter"
	"github.com/outletiq/reco-backend/pkg/logger"
)

// Scheduler запускает фоновые перестройки CF-кэша и векторного индекса по
// таймеру. Интервалы берутся из конфигурации, к каждому тику добавляется
// джиттер, чтобы инстансы не перестраивались синхронно.
type Scheduler struct {
	builder usecase.BuilderUC
	cfg     *cfg.RecommenderCfg
	logger  logger.Logger
	stop    chan struct{}
	wg      sync.WaitGroup
}

func New(builder usecase.BuilderUC, cfg *cfg.RecommenderCfg, logger logger.Logger) *Scheduler {
	return &Scheduler{
		builder: builder,
		cfg:     cfg,
		logger:  logger,
		stop:    make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	if s.cfg.CFRebuildInterval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(ctx, "similarity cache", s.cfg.CFRebuildInterval, s.rebuildSimilarity)
		}()
	}

	if s.cfg.IndexRebuildInterval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(ctx, "vector index", s.cfg.IndexRebuildInterval, s.rebuildIndex)
		}()
	}
}

func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, rebuild func(context.Context) error) {
	const jitterFactor = 0.1

	timer := time.NewTimer(jitter.Duration(interval, jitterFactor))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-timer.C:
			if err := rebuild(ctx); err != nil {
				s.logger.Warnf("Scheduled %s rebuild failed: %v", name, err)
			}
			timer.Reset(jitter.Duration(interval, jitterFactor))
		}
	}
}

func (s *Scheduler) rebuildSimilarity(ctx context.Context) error {
	stats, err := s.builder.BuildSimilarityCache(ctx, s.cfg.CFWindowDays, s.cfg.MinInteractions)
	if err != nil {
		// Пустой лог взаимодействий — штатно для свежего инстанса
		if errors.Is(err, e.ErrInsufficientData) {
			s.logger.Infof("Similarity rebuild skipped: insufficient interaction data")
			return nil
		}
		return err
	}

	s.logger.Infof(
		"Scheduled similarity rebuild done: %d products cached, avg %.1f neighbors",
		stats.CachedProducts, stats.AvgNeighbors,
	)
	return nil
}

func (s *Scheduler) rebuildIndex(ctx context.Context) error {
	stats, err := s.builder.RebuildIndex(ctx)
	if err != nil {
		return err
	}

	s.logger.Infof(
		"Scheduled index rebuild done: %d indexed, %d skipped",
		stats.Indexed, stats.SkippedInvalid,
	)
	return nil
}
