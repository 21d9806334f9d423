// files.go — просмотр файлов компании и журнал активности файла.
package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

// departmentsKey — ключ списка отделов в кэше (один арендатор на backend).
const departmentsKey = "departments"

// Prometheus-метрики кэша отделов.
var (
	departmentsCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "da_departments_cache_hits_total",
		Help: "Общее количество попаданий в кэш списка отделов.",
	})
	departmentsCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "da_departments_cache_misses_total",
		Help: "Общее количество промахов кэша списка отделов.",
	})
)

// FileBackend — операции backend для файлов.
type FileBackend interface {
	ListFiles(ctx context.Context, company, department, folder string) ([]model.FileEntry, error)
	ListActivity(ctx context.Context, company, fileID string) ([]model.Activity, error)
	ListDepartments(ctx context.Context) ([]model.Department, error)
}

// FileService — файлы компании, отделы и экспорт активности.
type FileService struct {
	backend     FileBackend
	formatter   Formatter
	departments *expirable.LRU[string, []model.Department]
	logger      *slog.Logger
}

// NewFileService создаёт сервис файлов. departmentsTTL — время жизни кэша отделов.
func NewFileService(b FileBackend, formatter Formatter, departmentsTTL time.Duration, logger *slog.Logger) *FileService {
	return &FileService{
		backend:     b,
		formatter:   formatter,
		departments: expirable.NewLRU[string, []model.Department](1, nil, departmentsTTL),
		logger:      logger.With(slog.String("service", "files")),
	}
}

// List возвращает содержимое папки: сначала папки, затем файлы, по имени.
func (s *FileService) List(ctx context.Context, company, department, folder string) ([]model.FileEntry, error) {
	if strings.TrimSpace(company) == "" {
		return nil, validationf("не указана компания")
	}
	entries, err := s.backend.ListFiles(ctx, company, department, folder)
	if err != nil {
		return nil, mapBackendError("список файлов", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsFolder != entries[j].IsFolder {
			return entries[i].IsFolder
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries, nil
}

// Departments возвращает список отделов из кэша или backend.
func (s *FileService) Departments(ctx context.Context) ([]model.Department, error) {
	if cached, ok := s.departments.Get(departmentsKey); ok {
		departmentsCacheHits.Inc()
		return cached, nil
	}
	departmentsCacheMisses.Inc()

	list, err := s.backend.ListDepartments(ctx)
	if err != nil {
		return nil, mapBackendError("список отделов", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
	s.departments.Add(departmentsKey, list)
	return list, nil
}

// Activity возвращает журнал действий с файлом от новых к старым.
func (s *FileService) Activity(ctx context.Context, company, fileID string) ([]model.Activity, error) {
	acts, err := s.backend.ListActivity(ctx, company, fileID)
	if err != nil {
		return nil, mapBackendError("журнал активности", err)
	}
	sort.SliceStable(acts, func(i, j int) bool {
		return acts[i].CreatedAt.After(acts[j].CreatedAt)
	})
	return acts, nil
}

// ExportActivity загружает журнал файла и формирует выгрузку.
// Пустой журнал — ErrNothingToExport, файл не формируется.
func (s *FileService) ExportActivity(ctx context.Context, company, fileID, fileName string, format ExportFormat) (*Export, error) {
	acts, err := s.Activity(ctx, company, fileID)
	if err != nil {
		return nil, err
	}
	exp, err := BuildActivityExport(acts, fileName, format, s.formatter)
	if err != nil {
		exportsTotal.WithLabelValues(string(format), exportResult(err)).Inc()
		return nil, err
	}
	exportsTotal.WithLabelValues(string(format), "ok").Inc()
	s.logger.Info("Журнал активности выгружен",
		slog.String("file_id", fileID),
		slog.String("format", string(format)),
		slog.Int("rows", len(acts)),
	)
	return exp, nil
}
