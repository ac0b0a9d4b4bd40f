package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xela07ax/userhub/internal/obs"
)

// WriteBatch сохраняет пачку событий одним INSERT (Bulk Insert).
// Таблица append-only: события никогда не обновляются и не удаляются.
func (s *Store) WriteBatch(ctx context.Context, events []obs.Event) error {
	if len(events) == 0 {
		return nil
	}

	// Количество колонок в таблице log_entries
	numFields := 17
	var sb strings.Builder
	vals := make([]interface{}, 0, len(events)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range events {
		p := i * numFields
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		for j := 1; j <= numFields; j++ {
			if j > 1 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "$%d", p+j)
		}
		sb.WriteByte(')')

		vals = append(vals,
			e.Timestamp, string(e.Level), e.Source, e.Message,
			e.Module, e.Function, e.Line,
			e.RequestID, e.DurationMS, e.StatusCode,
			e.ClientIP, e.UserAgent, e.UserID,
			e.Method, e.Path, e.Category, e.SecurityKind,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO log_entries (timestamp, level, source, message,
			module, function, line, request_id, duration_ms, status_code,
			client_ip, user_agent, user_id, method, path, category, security_kind)
		VALUES %s`, sb.String())

	_, err := s.pool.Exec(ctx, query, vals...)
	if err != nil {
		return fmt.Errorf("postgres: write log batch: %w", err)
	}
	return nil
}

const eventColumns = `timestamp, level, source, message, module, function, line,
	request_id, duration_ms, status_code, client_ip, user_agent, user_id,
	method, path, category, security_kind`

// FetchWindow возвращает окно событий для Analyzer / Alert Evaluator.
// Ошибка базы отдается наверх как есть: молча вернуть пустое окно — значит
// соврать оператору о состоянии системы.
func (s *Store) FetchWindow(ctx context.Context, from, to time.Time) ([]obs.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM log_entries
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp`

	rows, err := s.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch window: %w", err)
	}
	defer rows.Close()

	var out []obs.Event
	for rows.Next() {
		var e obs.Event
		var level string
		if err := rows.Scan(
			&e.Timestamp, &level, &e.Source, &e.Message,
			&e.Module, &e.Function, &e.Line,
			&e.RequestID, &e.DurationMS, &e.StatusCode,
			&e.ClientIP, &e.UserAgent, &e.UserID,
			&e.Method, &e.Path, &e.Category, &e.SecurityKind,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		e.Level = obs.Level(level)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SearchParams — фильтры полнотекстового поиска по логам
type SearchParams struct {
	Query string
	Level string
	From  time.Time
	Limit int
}

// SearchEvents ищет по message/module/function с фильтром по уровню
func (s *Store) SearchEvents(ctx context.Context, p SearchParams) ([]obs.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM log_entries
		WHERE timestamp >= $1
		  AND ($2 = '' OR message ILIKE '%' || $2 || '%'
		       OR module ILIKE '%' || $2 || '%'
		       OR function ILIKE '%' || $2 || '%')
		  AND ($3 = '' OR level = $3)
		ORDER BY timestamp DESC
		LIMIT $4`

	rows, err := s.pool.Query(ctx, query, p.From, p.Query, strings.ToUpper(p.Level), p.Limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: search events: %w", err)
	}
	defer rows.Close()

	var out []obs.Event
	for rows.Next() {
		var e obs.Event
		var level string
		if err := rows.Scan(
			&e.Timestamp, &level, &e.Source, &e.Message,
			&e.Module, &e.Function, &e.Line,
			&e.RequestID, &e.DurationMS, &e.StatusCode,
			&e.ClientIP, &e.UserAgent, &e.UserID,
			&e.Method, &e.Path, &e.Category, &e.SecurityKind,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		e.Level = obs.Level(level)
		out = append(out, e)
	}
	return out, rows.Err()
}
