package obs

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/sony/gobreaker"
)

// SearchSink индексирует события во внешний поисковый движок (OpenSearch).
// Sink опциональный: создается только когда в конфиге задан адрес.
// Внешний сервис может лежать — поэтому вызовы обернуты в Circuit Breaker:
// после серии отказов перестаем его дергать и дропаем события, пока
// предохранитель не закроется.
type SearchSink struct {
	client      *opensearch.Client
	cb          *gobreaker.CircuitBreaker
	indexPrefix string
}

func NewSearchSink(addresses []string, indexPrefix string) (*SearchSink, error) {
	client, err := opensearch.NewClient(opensearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("search sink: create client: %w", err)
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "opensearch-sink",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	if indexPrefix == "" {
		indexPrefix = "userhub-logs"
	}

	return &SearchSink{client: client, cb: cb, indexPrefix: indexPrefix}, nil
}

func (s *SearchSink) Name() string { return "opensearch" }

func (s *SearchSink) Write(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("search sink: marshal: %w", err)
	}

	// Суточные индексы: userhub-logs-2026.08.30
	indexName := fmt.Sprintf("%s-%s", s.indexPrefix, e.Timestamp.Format("2006.01.02"))

	_, err = s.cb.Execute(func() (interface{}, error) {
		req := opensearchapi.IndexRequest{
			Index: indexName,
			Body:  bytes.NewReader(body),
		}
		res, err := req.Do(ctx, s.client)
		if err != nil {
			return nil, fmt.Errorf("search sink: index request: %w", err)
		}
		defer res.Body.Close()

		if res.IsError() {
			return nil, fmt.Errorf("search sink: opensearch error: %s", res.String())
		}
		return nil, nil
	})
	return err
}
