// virus_scan.go — настройки антивируса, метрики сканера,
// история проверок и карантин с постраничной догрузкой.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

// ScanTab — вкладка списка на странице антивируса.
type ScanTab string

const (
	TabHistory    ScanTab = "history"
	TabQuarantine ScanTab = "quarantine"
)

// ParseScanTab проверяет имя вкладки.
func ParseScanTab(s string) (ScanTab, error) {
	switch ScanTab(s) {
	case TabHistory, "":
		return TabHistory, nil
	case TabQuarantine:
		return TabQuarantine, nil
	default:
		return "", validationf("неизвестная вкладка %q", s)
	}
}

// maxViewStates — число сессий, для которых хранится состояние списков.
const maxViewStates = 1000

var staleResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "da_scan_stale_responses_total",
	Help: "Количество отброшенных ответов на устаревшие запросы списков антивируса.",
}, []string{"tab"})

// VirusScanBackend — операции backend для антивируса.
type VirusScanBackend interface {
	GetScanSettings(ctx context.Context) (*model.TenantScanSettings, error)
	UpdateScanSettings(ctx context.Context, s model.TenantScanSettings) (*model.TenantScanSettings, error)
	GetScanMetrics(ctx context.Context) (*model.ScanMetrics, error)
	ListScanHistory(ctx context.Context, offset, limit int) (*model.Page[model.ScanResult], error)
	ListQuarantine(ctx context.Context, offset, limit int) (*model.Page[model.QuarantinedFile], error)
	DeleteQuarantined(ctx context.Context, id string) error
}

// VirusScanService — страница настроек антивируса.
// Состояние списков хранится отдельно для каждой сессии.
type VirusScanService struct {
	backend    VirusScanBackend
	audit      *AuditService
	pageSize   int
	history    *expirable.LRU[string, *ListState[model.ScanResult]]
	quarantine *expirable.LRU[string, *ListState[model.QuarantinedFile]]
	viewsMu    sync.Mutex
	logger     *slog.Logger
}

// NewVirusScanService создаёт сервис. viewTTL — время жизни состояния списков сессии.
func NewVirusScanService(b VirusScanBackend, audit *AuditService, pageSize int, viewTTL time.Duration, logger *slog.Logger) *VirusScanService {
	return &VirusScanService{
		backend:    b,
		audit:      audit,
		pageSize:   pageSize,
		history:    expirable.NewLRU[string, *ListState[model.ScanResult]](maxViewStates, nil, viewTTL),
		quarantine: expirable.NewLRU[string, *ListState[model.QuarantinedFile]](maxViewStates, nil, viewTTL),
		logger:     logger.With(slog.String("service", "virus_scan")),
	}
}

// Settings возвращает настройки проверки.
func (s *VirusScanService) Settings(ctx context.Context) (*model.TenantScanSettings, error) {
	st, err := s.backend.GetScanSettings(ctx)
	if err != nil {
		return nil, mapBackendError("настройки антивируса", err)
	}
	return st, nil
}

// UpdateSettings валидирует и сохраняет настройки проверки.
func (s *VirusScanService) UpdateSettings(ctx context.Context, st model.TenantScanSettings) (*model.TenantScanSettings, error) {
	if err := validateStruct(st); err != nil {
		return nil, err
	}
	updated, err := s.backend.UpdateScanSettings(ctx, st)
	s.audit.Record(ctx, AuditScanSettingsUpdate, TargetSettings, "virus_scan", string(st.Action), err)
	if err != nil {
		return nil, mapBackendError("сохранение настроек антивируса", err)
	}
	return updated, nil
}

// Metrics возвращает состояние сканера.
func (s *VirusScanService) Metrics(ctx context.Context) (*model.ScanMetrics, error) {
	m, err := s.backend.GetScanMetrics(ctx)
	if err != nil {
		return nil, mapBackendError("метрики сканера", err)
	}
	return m, nil
}

func (s *VirusScanService) historyState(sessionID string) *ListState[model.ScanResult] {
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()
	if st, ok := s.history.Get(sessionID); ok {
		return st
	}
	st := NewListState[model.ScanResult]()
	s.history.Add(sessionID, st)
	return st
}

func (s *VirusScanService) quarantineState(sessionID string) *ListState[model.QuarantinedFile] {
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()
	if st, ok := s.quarantine.Get(sessionID); ok {
		return st
	}
	st := NewListState[model.QuarantinedFile]()
	s.quarantine.Add(sessionID, st)
	return st
}

// OpenHistory сбрасывает историю сессии и загружает первую страницу.
func (s *VirusScanService) OpenHistory(ctx context.Context, sessionID string) (ListSnapshot[model.ScanResult], error) {
	st := s.historyState(sessionID)
	return loadPage(ctx, s, st, st.Reset(), TabHistory, s.backend.ListScanHistory)
}

// MoreHistory догружает следующую страницу истории.
func (s *VirusScanService) MoreHistory(ctx context.Context, sessionID string) (ListSnapshot[model.ScanResult], error) {
	st := s.historyState(sessionID)
	snap := st.Snapshot()
	if !snap.Loaded {
		// состояние вытеснено по TTL: начинаем список заново
		return s.OpenHistory(ctx, sessionID)
	}
	if !snap.HasMore {
		return snap, nil
	}
	return loadPage(ctx, s, st, st.Next(), TabHistory, s.backend.ListScanHistory)
}

// OpenQuarantine сбрасывает карантин сессии и загружает первую страницу.
func (s *VirusScanService) OpenQuarantine(ctx context.Context, sessionID string) (ListSnapshot[model.QuarantinedFile], error) {
	st := s.quarantineState(sessionID)
	return loadPage(ctx, s, st, st.Reset(), TabQuarantine, s.backend.ListQuarantine)
}

// MoreQuarantine догружает следующую страницу карантина.
func (s *VirusScanService) MoreQuarantine(ctx context.Context, sessionID string) (ListSnapshot[model.QuarantinedFile], error) {
	st := s.quarantineState(sessionID)
	snap := st.Snapshot()
	if !snap.Loaded {
		// состояние вытеснено по TTL: начинаем список заново
		return s.OpenQuarantine(ctx, sessionID)
	}
	if !snap.HasMore {
		return snap, nil
	}
	return loadPage(ctx, s, st, st.Next(), TabQuarantine, s.backend.ListQuarantine)
}

// DeleteQuarantined удаляет файл из карантина. Запись убирается из
// списка сессии только после успешного ответа backend.
func (s *VirusScanService) DeleteQuarantined(ctx context.Context, sessionID, id string) (ListSnapshot[model.QuarantinedFile], error) {
	st := s.quarantineState(sessionID)

	err := s.backend.DeleteQuarantined(ctx, id)
	s.audit.Record(ctx, AuditQuarantineDelete, TargetQuarantine, id, "", err)
	if err != nil {
		s.logger.Error("Ошибка удаления файла из карантина",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return st.Snapshot(), mapBackendError("удаление из карантина", err)
	}
	st.Remove(id)
	return st.Snapshot(), nil
}

// ForgetSession удаляет состояние списков сессии (выход пользователя).
func (s *VirusScanService) ForgetSession(sessionID string) {
	s.history.Remove(sessionID)
	s.quarantine.Remove(sessionID)
}

// loadPage запрашивает страницу по билету и применяет её к состоянию.
// Устаревший ответ не меняет состояние, возвращается актуальный снимок.
func loadPage[T Identifiable](
	ctx context.Context,
	s *VirusScanService,
	st *ListState[T],
	ticket ListTicket,
	tab ScanTab,
	fetch func(ctx context.Context, offset, limit int) (*model.Page[T], error),
) (ListSnapshot[T], error) {
	page, err := fetch(ctx, ticket.Offset, s.pageSize)
	if err != nil {
		s.logger.Warn("Ошибка загрузки списка",
			slog.String("tab", string(tab)),
			slog.Int("offset", ticket.Offset),
			slog.String("error", err.Error()),
		)
		return st.Snapshot(), mapBackendError("загрузка списка "+string(tab), err)
	}

	if err := st.Apply(ticket, *page); err != nil {
		if errors.Is(err, ErrStale) {
			staleResponsesTotal.WithLabelValues(string(tab)).Inc()
			s.logger.Debug("Ответ отброшен как устаревший",
				slog.String("tab", string(tab)),
				slog.Uint64("generation", ticket.Generation),
			)
			return st.Snapshot(), nil
		}
		return st.Snapshot(), err
	}
	return st.Snapshot(), nil
}
