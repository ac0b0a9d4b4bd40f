package obs

/*
Файл writer.go реализует Multi-Sink Writer — fan-out структурированных событий
по независимым получателям (console, файл с ротацией, Postgres, OpenSearch).

Ключевые особенности архитектуры:
- Non-blocking Publish: Hot Path запроса никогда не ждет доставку. Каждому sink
  принадлежит собственный буферизированный канал и воркер, поэтому медленный или
  упавший получатель не тормозит ни запрос, ни остальные sinks.
- Per-sink Ordering: внутри одного sink события доставляются строго в порядке
  поступления (один воркер на канал). Порядок между sinks не гарантируется.
- Isolation: ошибка доставки гасится на месте — пишется в fallback-логгер и
  метрику, наружу не поднимается никогда.
- Drain Pattern & Graceful Shutdown: Stop() закрывает каналы и ждет, пока воркеры
  дочитают остатки. Гарантируется Final Flush без потерь при перезагрузке.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Sink — один получатель событий. Реализации обязаны быть безопасны
// для вызова из одной горутины-воркера.
type Sink interface {
	Name() string
	Write(ctx context.Context, e Event) error
}

// FlushSink — sink с внутренним буфером, который надо сбросить при остановке
type FlushSink interface {
	Sink
	Flush(ctx context.Context) error
}

// Publisher — то, что видит Interceptor: только публикация
type Publisher interface {
	Publish(e Event)
}

type sinkWorker struct {
	sink Sink
	ch   chan Event
}

type Writer struct {
	workers []*sinkWorker
	logger  *zap.Logger
	metrics *Metrics
	wg      sync.WaitGroup

	// Таймаут одного вызова Write: медленный внешний sink не должен
	// накапливать бесконечную очередь
	writeTimeout time.Duration

	// Атомарный флаг (0 - открыт, 1 - закрыт)
	isClosed int32
}

const sinkQueueSize = 4096

func NewWriter(logger *zap.Logger, metrics *Metrics, writeTimeout time.Duration, sinks ...Sink) *Writer {
	if writeTimeout <= 0 {
		writeTimeout = 3 * time.Second
	}
	w := &Writer{
		logger:       logger.Named("obs-writer"),
		metrics:      metrics,
		writeTimeout: writeTimeout,
	}
	for _, s := range sinks {
		w.workers = append(w.workers, &sinkWorker{
			sink: s,
			ch:   make(chan Event, sinkQueueSize),
		})
	}
	return w
}

func (w *Writer) Start() {
	for _, sw := range w.workers {
		w.wg.Add(1)
		go w.run(sw)
	}
}

// Stop «запирает» вход и ждет, пока каждый воркер допишет свою очередь.
func (w *Writer) Stop() {
	atomic.StoreInt32(&w.isClosed, 1)

	// Даем крошечную паузу, чтобы текущие Publish успели проскочить
	time.Sleep(10 * time.Millisecond)

	w.logger.Info("stopping writer: closing sink queues and flushing...")
	for _, sw := range w.workers {
		close(sw.ch)
	}
	w.wg.Wait()
	w.logger.Info("writer stopped gracefully")
}

// Publish раздает событие всем sinks. Не блокируется и не возвращает ошибку:
// сбой наблюдаемости не должен влиять на судьбу бизнес-запроса.
func (w *Writer) Publish(e Event) {
	// Убеждаемся, что таймстемп всегда проставлен
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e.Timestamp = e.Timestamp.UTC().Truncate(time.Millisecond)

	// Событие без обязательных полей не доставляем никуда даже частично
	if err := e.Validate(); err != nil {
		w.metrics.DroppedEvents.WithLabelValues("malformed").Inc()
		w.logger.Warn("event dropped: validation failed", zap.Error(err))
		return
	}

	if atomic.LoadInt32(&w.isClosed) == 1 {
		w.metrics.DroppedEvents.WithLabelValues("closed").Inc()
		w.logger.Warn("event dropped: writer is stopping", zap.String("request_id", e.RequestID))
		return
	}

	for _, sw := range w.workers {
		// Load Shedding: переполненная очередь одного sink не должна
		// задерживать запрос и остальные получатели
		select {
		case sw.ch <- e:
			w.metrics.SinkQueueFill.WithLabelValues(sw.sink.Name()).Set(float64(len(sw.ch)))
		default:
			w.metrics.DroppedEvents.WithLabelValues("overflow").Inc()
			w.logger.Error("sink queue overflow",
				zap.String("sink", sw.sink.Name()),
				zap.String("request_id", e.RequestID),
			)
		}
	}
}

func (w *Writer) run(sw *sinkWorker) {
	defer w.wg.Done()

	for e := range sw.ch {
		w.deliver(sw.sink, e)
	}

	// Канал закрыт в Stop() — очередь вычитана, добиваем внутренние буферы
	if fs, ok := sw.sink.(FlushSink); ok {
		// Используем Background, так как основной контекст может быть уже закрыт
		ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
		if err := fs.Flush(ctx); err != nil {
			w.metrics.SinkErrors.WithLabelValues(sw.sink.Name()).Inc()
			w.logger.Error("final flush failed", zap.String("sink", sw.sink.Name()), zap.Error(err))
		}
		cancel()
	}
	w.logger.Info("sink worker finished", zap.String("sink", sw.sink.Name()))
}

// deliver выполняет один вызов Write с ограничением по времени.
// Любая ошибка (включая панику реализации) изолируется здесь.
func (w *Writer) deliver(s Sink, e Event) {
	defer func() {
		if r := recover(); r != nil {
			w.metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
			w.logger.Error("sink panicked", zap.String("sink", s.Name()), zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	if err := s.Write(ctx, e); err != nil {
		w.metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
		w.logger.Error("sink delivery failed",
			zap.String("sink", s.Name()),
			zap.String("request_id", e.RequestID),
			zap.Error(err),
		)
	}
}
