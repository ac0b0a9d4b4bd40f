package obs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v5"
)

// BatchStore определяет, куда физически сохраняются события для анализа
type BatchStore interface {
	// WriteBatch сохраняет пачку событий за один раз
	WriteBatch(ctx context.Context, events []Event) error
}

// StoreSink — персистентный sink поверх Postgres. Копит события в памяти и
// пишет пачками (Bulk Insert) по таймеру или при достижении лимита, чтобы
// задержки базы не влияли на Response Time. Кратковременные сбои базы
// переживаем за счет ретраев с экспоненциальным бэкоффом.
//
// В базу уходят не все события: ERROR/CRITICAL всегда (должны пережить
// рестарт процесса), плюс категории api_performance и security — это
// сырье для Analyzer.
type StoreSink struct {
	repo       BatchStore
	minLevel   Level
	batchSize  int
	flushEvery time.Duration

	mu    sync.Mutex
	batch []Event

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewStoreSink(repo BatchStore, minLevel Level, batchSize int, flushEvery time.Duration) *StoreSink {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushEvery <= 0 {
		flushEvery = time.Second
	}
	s := &StoreSink{
		repo:       repo,
		minLevel:   minLevel,
		batchSize:  batchSize,
		flushEvery: flushEvery,
		batch:      make([]Event, 0, batchSize),
		done:       make(chan struct{}),
	}
	s.wg.Add(1)
	go s.ticker()
	return s
}

func (s *StoreSink) Name() string { return "store" }

// accepts — фильтр персистентности
func (s *StoreSink) accepts(e Event) bool {
	if e.Level.AtLeast(LevelError) {
		return true
	}
	if e.Category == CategoryAPIPerformance || e.Category == CategorySecurity {
		return true
	}
	return e.Level.AtLeast(s.minLevel)
}

func (s *StoreSink) Write(ctx context.Context, e Event) error {
	if !s.accepts(e) {
		return nil
	}

	s.mu.Lock()
	s.batch = append(s.batch, e)
	full := len(s.batch) >= s.batchSize
	s.mu.Unlock()

	if full {
		return s.flush(ctx)
	}
	return nil
}

// Flush добивает остаток буфера при остановке Writer (Final Flush)
func (s *StoreSink) Flush(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
	return s.flush(ctx)
}

func (s *StoreSink) ticker() {
	defer s.wg.Done()
	t := time.NewTicker(s.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.flushEvery)
			// Ошибку здесь гасим: следующий тик или Write попробует снова,
			// события остаются в буфере только при полном отказе записи
			_ = s.flush(ctx)
			cancel()
		case <-s.done:
			return
		}
	}
}

func (s *StoreSink) flush(ctx context.Context) error {
	s.mu.Lock()
	if len(s.batch) == 0 {
		s.mu.Unlock()
		return nil
	}
	out := s.batch
	s.batch = make([]Event, 0, s.batchSize)
	s.mu.Unlock()

	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(3),
	).Do(func() error {
		return s.repo.WriteBatch(ctx, out)
	})
	if err != nil {
		return fmt.Errorf("store sink: batch of %d lost: %w", len(out), err)
	}
	return nil
}
