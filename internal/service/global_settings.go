// global_settings.go — глобальные настройки арендатора.
// Один экземпляр на процесс, передаётся в обработчики явно.
// Жизненный цикл: ленивая загрузка (Ensure) с TTL, принудительное
// обновление (Refresh), пометка устаревшим (Invalidate). Последний
// загруженный снимок не теряется: публичные страницы читают Current().
package service

import (
	"context"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bigkaa/docvault/admin-module/internal/backend"
	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

// settingsLoadTimeout ограничивает общую загрузку, не привязанную к
// отмене запроса первого вызвавшего.
const settingsLoadTimeout = 10 * time.Second

// MaxAssetSize — максимальный размер логотипа и favicon.
const MaxAssetSize = 2 << 20

// allowedAssetTypes — допустимые MIME-типы фирменных изображений.
var allowedAssetTypes = map[string]bool{
	"image/png":                true,
	"image/jpeg":               true,
	"image/svg+xml":            true,
	"image/x-icon":             true,
	"image/vnd.microsoft.icon": true,
}

var assetExtTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
}

// dateLayouts — соответствие форматов даты раскладкам Go.
var dateLayouts = map[string]string{
	model.DateFormatDMYSlash: "02/01/2006",
	model.DateFormatMDYSlash: "01/02/2006",
	model.DateFormatISO:      "2006-01-02",
	model.DateFormatDMYDot:   "02.01.2006",
}

// timeLayouts — соответствие форматов времени раскладкам Go.
var timeLayouts = map[string]string{
	model.TimeFormat24h: "15:04",
	model.TimeFormat12h: "03:04 PM",
}

// GlobalSettingsBackend — операции backend для глобальных настроек.
type GlobalSettingsBackend interface {
	GetGlobalSettings(ctx context.Context) (*model.GlobalSettings, error)
	UpdateGlobalSettings(ctx context.Context, patch model.GlobalSettingsPatch) (*model.GlobalSettings, error)
	UploadAsset(ctx context.Context, kind, filename, contentType string, data io.Reader) (*model.GlobalSettings, error)
}

// settingsSnapshot — неизменяемый снимок настроек.
type settingsSnapshot struct {
	settings model.GlobalSettings
	location *time.Location
	loadedAt time.Time
	loaded   bool
}

// GlobalSettingsService — кэш глобальных настроек и форматирование дат.
type GlobalSettingsService struct {
	backend GlobalSettingsBackend
	audit   *AuditService
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu   sync.RWMutex
	snap settingsSnapshot
	// gen растёт при каждом Invalidate; загрузка, начатая до него,
	// не перезаписывает снимок.
	gen   uint64
	group singleflight.Group
}

// NewGlobalSettingsService создаёт сервис с настройками по умолчанию.
func NewGlobalSettingsService(b GlobalSettingsBackend, audit *AuditService, ttl time.Duration, logger *slog.Logger) *GlobalSettingsService {
	return &GlobalSettingsService{
		backend: b,
		audit:   audit,
		ttl:     ttl,
		logger:  logger.With(slog.String("service", "global_settings")),
		now:     time.Now,
		snap:    newSnapshot(model.DefaultGlobalSettings(), time.Time{}, false),
	}
}

func newSnapshot(s model.GlobalSettings, at time.Time, loaded bool) settingsSnapshot {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil || s.Timezone == "" {
		loc = time.UTC
	}
	return settingsSnapshot{settings: s, location: loc, loadedAt: at, loaded: loaded}
}

// Current возвращает текущий снимок настроек (без обращения к backend).
func (s *GlobalSettingsService) Current() model.GlobalSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.settings
}

// Ensure загружает настройки, если они не загружены или устарели.
// При ошибке загрузки возвращает последний известный снимок и ошибку.
func (s *GlobalSettingsService) Ensure(ctx context.Context) (model.GlobalSettings, error) {
	s.mu.RLock()
	fresh := s.snap.loaded && !s.snap.loadedAt.IsZero() && s.now().Sub(s.snap.loadedAt) < s.ttl
	current := s.snap.settings
	s.mu.RUnlock()

	if fresh {
		return current, nil
	}
	return s.Refresh(ctx)
}

// Refresh принудительно перечитывает настройки с backend.
// Параллельные вызовы объединяются в один запрос. Запрос выполняется
// без отмены контекста вызвавшего: отключение одного клиента не должно
// сорвать загрузку для остальных ожидающих.
func (s *GlobalSettingsService) Refresh(ctx context.Context) (model.GlobalSettings, error) {
	v, err, _ := s.group.Do("load", func() (any, error) {
		s.mu.RLock()
		gen := s.gen
		s.mu.RUnlock()

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settingsLoadTimeout)
		defer cancel()

		loaded, err := s.backend.GetGlobalSettings(loadCtx)
		if err != nil {
			return nil, mapBackendError("загрузка глобальных настроек", err)
		}
		s.storeIfCurrent(*loaded, gen)
		return *loaded, nil
	})
	if err != nil {
		s.logger.Warn("Глобальные настройки не загружены", slog.String("error", err.Error()))
		return s.Current(), err
	}
	return v.(model.GlobalSettings), nil
}

// Invalidate помечает снимок устаревшим: следующий Ensure перечитает
// настройки, а до этого Current() отдаёт последние загруженные.
func (s *GlobalSettingsService) Invalidate() {
	s.mu.Lock()
	s.gen++
	s.snap.loadedAt = time.Time{}
	s.mu.Unlock()
}

func (s *GlobalSettingsService) store(gs model.GlobalSettings) {
	snap := newSnapshot(gs, s.now(), true)
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// storeIfCurrent сохраняет результат загрузки, начатой в поколении gen.
// Если с тех пор был Invalidate, содержимое обновляется, но снимок
// остаётся устаревшим и будет перечитан.
func (s *GlobalSettingsService) storeIfCurrent(gs model.GlobalSettings, gen uint64) {
	snap := newSnapshot(gs, s.now(), true)
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		snap.loadedAt = time.Time{}
	}
	s.snap = snap
}

// Update валидирует и сохраняет изменения, затем перечитывает настройки.
func (s *GlobalSettingsService) Update(ctx context.Context, patch model.GlobalSettingsPatch) (model.GlobalSettings, error) {
	if err := validateSettingsPatch(patch); err != nil {
		return s.Current(), err
	}

	updated, err := s.backend.UpdateGlobalSettings(ctx, patch)
	s.audit.Record(ctx, AuditGlobalSettingsEdit, TargetSettings, "global", "", err)
	if err != nil {
		return s.Current(), mapBackendError("сохранение глобальных настроек", err)
	}

	fresh, refreshErr := s.Refresh(ctx)
	if refreshErr != nil {
		// Запись прошла, используем ответ на PUT
		merged := patch.Apply(*updated)
		s.store(merged)
		return merged, nil
	}
	return fresh, nil
}

// validateSettingsPatch проверяет частичное обновление.
func validateSettingsPatch(p model.GlobalSettingsPatch) error {
	if err := validateStruct(p); err != nil {
		return err
	}
	if p.CompanyName != nil && strings.TrimSpace(*p.CompanyName) == "" {
		return validationf("название компании не может быть пустым")
	}
	if p.Timezone != nil {
		if *p.Timezone == "" {
			return validationf("часовой пояс не может быть пустым")
		}
		if _, err := time.LoadLocation(*p.Timezone); err != nil {
			return validationf("неизвестный часовой пояс %q", *p.Timezone)
		}
	}
	if p.MaintenanceMode != nil && *p.MaintenanceMode &&
		p.MaintenanceMessage != nil && strings.TrimSpace(*p.MaintenanceMessage) == "" {
		return validationf("для режима обслуживания нужно сообщение")
	}
	return nil
}

// UploadAsset загружает логотип или favicon и обновляет настройки.
func (s *GlobalSettingsService) UploadAsset(ctx context.Context, kind, filename, contentType string, size int64, data io.Reader) (model.GlobalSettings, error) {
	if kind != backend.AssetLogo && kind != backend.AssetFavicon {
		return s.Current(), validationf("неизвестный вид изображения %q", kind)
	}
	if size <= 0 {
		return s.Current(), validationf("файл пуст")
	}
	if size > MaxAssetSize {
		return s.Current(), validationf("файл больше %d МиБ", MaxAssetSize>>20)
	}

	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if !allowedAssetTypes[ct] {
		ct = assetExtTypes[strings.ToLower(path.Ext(filename))]
	}
	if ct == "" {
		return s.Current(), validationf("допустимые форматы: PNG, JPEG, SVG, ICO")
	}

	_, err := s.backend.UploadAsset(ctx, kind, filename, ct, io.LimitReader(data, MaxAssetSize))
	s.audit.Record(ctx, AuditBrandingAssetUpload, TargetSettings, kind, filename, err)
	if err != nil {
		return s.Current(), mapBackendError("загрузка изображения", err)
	}
	return s.Refresh(ctx)
}

// FormatDate форматирует дату по настройкам арендатора.
func (s *GlobalSettingsService) FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	return t.In(snap.location).Format(dateLayout(snap.settings.DateFormat))
}

// FormatTime форматирует время по настройкам арендатора.
func (s *GlobalSettingsService) FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	return t.In(snap.location).Format(timeLayout(snap.settings.TimeFormat))
}

// FormatDateTime форматирует дату и время по настройкам арендатора.
func (s *GlobalSettingsService) FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	return t.In(snap.location).Format(dateLayout(snap.settings.DateFormat) + " " + timeLayout(snap.settings.TimeFormat))
}

func dateLayout(format string) string {
	if l, ok := dateLayouts[format]; ok {
		return l
	}
	return dateLayouts[model.DateFormatDMYSlash]
}

func timeLayout(format string) string {
	if l, ok := timeLayouts[format]; ok {
		return l
	}
	return timeLayouts[model.TimeFormat24h]
}

// Formatter — форматирование дат для представлений и экспорта.
type Formatter interface {
	FormatDate(t time.Time) string
	FormatTime(t time.Time) string
	FormatDateTime(t time.Time) string
}

var _ Formatter = (*GlobalSettingsService)(nil)

