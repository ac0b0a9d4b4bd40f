package obs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// FileSink пишет события в файл по одной JSON-строке. Файл ограничен по
// размеру: при превышении maxSize текущий файл переименовывается в бэкап
// с таймстемпом, а бэкапы сверх retention удаляются, начиная с самого старого.
// Живые файлы только дописываются — ротация оперирует целыми файлами.
type FileSink struct {
	path      string // Путь к активному файлу, например logs/app.log
	maxSize   int64  // Байты; 0 — ротация отключена
	retention int    // Сколько бэкапов хранить

	f    *os.File
	size int64
}

func NewFileSink(path string, maxSize int64, retention int) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file sink: create dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("file sink: open: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("file sink: stat: %w", err)
	}

	return &FileSink{
		path:      path,
		maxSize:   maxSize,
		retention: retention,
		f:         f,
		size:      info.Size(),
	}, nil
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(_ context.Context, e Event) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("file sink: marshal: %w", err)
	}
	line = append(line, '\n')

	if s.maxSize > 0 && s.size+int64(len(line)) > s.maxSize && s.size > 0 {
		if err := s.rotate(); err != nil {
			return err
		}
	}

	n, err := s.f.Write(line)
	s.size += int64(n)
	if err != nil {
		return fmt.Errorf("file sink: write: %w", err)
	}
	return nil
}

func (s *FileSink) Flush(_ context.Context) error {
	return s.f.Close()
}

// rotate закрывает активный файл, уводит его в бэкап и открывает новый
func (s *FileSink) rotate() error {
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("file sink: close before rotate: %w", err)
	}

	backup := s.backupName(time.Now().UTC())
	if err := os.Rename(s.path, backup); err != nil {
		return fmt.Errorf("file sink: rotate rename: %w", err)
	}

	if err := s.prune(); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("file sink: reopen: %w", err)
	}
	s.f = f
	s.size = 0
	return nil
}

// Имя бэкапа: app.log → app-20060102T150405.000000000.log
// Наносекунды — чтобы два цикла ротации в одну миллисекунду не столкнулись
func (s *FileSink) backupName(t time.Time) string {
	dir := filepath.Dir(s.path)
	base := filepath.Base(s.path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", stem, t.Format("20060102T150405.000000000"), ext))
}

// prune удаляет бэкапы сверх retention, начиная с самого старого.
// Таймстемп в имени сортируется лексикографически, поэтому сортировка
// по имени совпадает с сортировкой по времени.
func (s *FileSink) prune() error {
	backups, err := s.listBackups()
	if err != nil {
		return err
	}
	if s.retention <= 0 || len(backups) <= s.retention {
		return nil
	}
	sort.Strings(backups)
	for _, old := range backups[:len(backups)-s.retention] {
		if err := os.Remove(old); err != nil {
			return fmt.Errorf("file sink: prune: %w", err)
		}
	}
	return nil
}

func (s *FileSink) listBackups() ([]string, error) {
	dir := filepath.Dir(s.path)
	base := filepath.Base(s.path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("file sink: read dir: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		name := entry.Name()
		if name == base || entry.IsDir() {
			continue
		}
		if strings.HasPrefix(name, stem+"-") && strings.HasSuffix(name, ext) {
			backups = append(backups, filepath.Join(dir, name))
		}
	}
	return backups, nil
}
