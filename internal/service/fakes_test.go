package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bigkaa/docvault/admin-module/internal/backend"
	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
	"github.com/bigkaa/docvault/admin-module/internal/repository"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fixedNow — фиксированное время для тестов.
var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeBackend — подставной backend, считает вызовы по имени операции.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int
	err   error

	templates       map[string]*model.EmailTemplate
	systemTemplates []model.EmailTemplate
	fileRequests    map[string]*model.FileRequest
	uploads         []model.Upload
	files           []model.FileEntry
	activity        []model.Activity
	departments     []model.Department
	users           map[string]*model.User
	scanSettings    model.TenantScanSettings
	metrics         model.ScanMetrics
	history         []model.ScanResult
	quarantine      []model.QuarantinedFile
	settings        model.GlobalSettings

	lastSuspend   model.SuspendRequest
	lastCreate    model.FileRequestCreate
	lastPatch     model.GlobalSettingsPatch
	lastOffsets   []int
	settingsDelay time.Duration
	// onSettingsLoad вызывается внутри GetGlobalSettings до ответа
	onSettingsLoad func()
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls:        make(map[string]int),
		templates:    make(map[string]*model.EmailTemplate),
		fileRequests: make(map[string]*model.FileRequest),
		users:        make(map[string]*model.User),
		settings:     model.DefaultGlobalSettings(),
	}
}

func (f *fakeBackend) hit(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.err
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeBackend) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// --- шаблоны ---

func (f *fakeBackend) ListTenantTemplates(ctx context.Context) ([]model.EmailTemplate, error) {
	if err := f.hit("ListTenantTemplates"); err != nil {
		return nil, err
	}
	var out []model.EmailTemplate
	for _, t := range f.templates {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeBackend) GetTenantTemplate(ctx context.Context, key string) (*model.EmailTemplate, error) {
	if err := f.hit("GetTenantTemplate"); err != nil {
		return nil, err
	}
	t, ok := f.templates[key]
	if !ok {
		return nil, notFound()
	}
	cp := *t
	return &cp, nil
}

func (f *fakeBackend) CustomizeTenantTemplate(ctx context.Context, key string, upd model.EmailTemplateUpdate) (*model.EmailTemplate, error) {
	if err := f.hit("CustomizeTenantTemplate"); err != nil {
		return nil, err
	}
	t := &model.EmailTemplate{Key: key, Subject: upd.Subject, Body: upd.Body, IsCustomized: true}
	f.templates[key] = t
	return t, nil
}

func (f *fakeBackend) ResetTenantTemplate(ctx context.Context, key string) error {
	return f.hit("ResetTenantTemplate")
}

func (f *fakeBackend) ListSystemTemplates(ctx context.Context) ([]model.EmailTemplate, error) {
	if err := f.hit("ListSystemTemplates"); err != nil {
		return nil, err
	}
	return append([]model.EmailTemplate(nil), f.systemTemplates...), nil
}

func (f *fakeBackend) UpdateSystemTemplate(ctx context.Context, key string, upd model.EmailTemplateUpdate) (*model.EmailTemplate, error) {
	if err := f.hit("UpdateSystemTemplate"); err != nil {
		return nil, err
	}
	return &model.EmailTemplate{Key: key, Subject: upd.Subject, Body: upd.Body}, nil
}

// --- запросы файлов ---

func (f *fakeBackend) ListFileRequests(ctx context.Context, visibility model.VisibilityMode) ([]model.FileRequest, error) {
	if err := f.hit("ListFileRequests"); err != nil {
		return nil, err
	}
	var out []model.FileRequest
	for _, r := range f.fileRequests {
		if visibility == model.VisibilityAll || r.Visibility == visibility {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateFileRequest(ctx context.Context, req model.FileRequestCreate) (*model.FileRequest, error) {
	if err := f.hit("CreateFileRequest"); err != nil {
		return nil, err
	}
	f.lastCreate = req
	r := &model.FileRequest{ID: "fr-new", Name: req.Name, Status: model.FileRequestActive, ShareLink: "https://dv/r/new"}
	f.fileRequests[r.ID] = r
	return r, nil
}

func (f *fakeBackend) GetFileRequest(ctx context.Context, id string) (*model.FileRequest, error) {
	if err := f.hit("GetFileRequest"); err != nil {
		return nil, err
	}
	r, ok := f.fileRequests[id]
	if !ok {
		return nil, notFound()
	}
	cp := *r
	return &cp, nil
}

func (f *fakeBackend) RevokeFileRequest(ctx context.Context, id string) error {
	return f.hit("RevokeFileRequest")
}

func (f *fakeBackend) DeleteFileRequest(ctx context.Context, id string) error {
	return f.hit("DeleteFileRequest")
}

func (f *fakeBackend) ListUploads(ctx context.Context, id string) ([]model.Upload, error) {
	if err := f.hit("ListUploads"); err != nil {
		return nil, err
	}
	return append([]model.Upload(nil), f.uploads...), nil
}

// --- файлы ---

func (f *fakeBackend) ListFiles(ctx context.Context, company, department, folder string) ([]model.FileEntry, error) {
	if err := f.hit("ListFiles"); err != nil {
		return nil, err
	}
	return append([]model.FileEntry(nil), f.files...), nil
}

func (f *fakeBackend) ListActivity(ctx context.Context, company, fileID string) ([]model.Activity, error) {
	if err := f.hit("ListActivity"); err != nil {
		return nil, err
	}
	return append([]model.Activity(nil), f.activity...), nil
}

func (f *fakeBackend) ListDepartments(ctx context.Context) ([]model.Department, error) {
	if err := f.hit("ListDepartments"); err != nil {
		return nil, err
	}
	return append([]model.Department(nil), f.departments...), nil
}

// --- пользователи ---

func (f *fakeBackend) ListUsers(ctx context.Context, search string) ([]model.User, error) {
	if err := f.hit("ListUsers"); err != nil {
		return nil, err
	}
	var out []model.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeBackend) GetUser(ctx context.Context, id string) (*model.User, error) {
	if err := f.hit("GetUser"); err != nil {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, notFound()
	}
	cp := *u
	return &cp, nil
}

func (f *fakeBackend) SuspendUser(ctx context.Context, id string, req model.SuspendRequest) error {
	if err := f.hit("SuspendUser"); err != nil {
		return err
	}
	f.lastSuspend = req
	return nil
}

func (f *fakeBackend) UnsuspendUser(ctx context.Context, id string) error {
	return f.hit("UnsuspendUser")
}

func (f *fakeBackend) ChangeUserEmail(ctx context.Context, id, email string) error {
	return f.hit("ChangeUserEmail")
}

func (f *fakeBackend) ResetUserPassword(ctx context.Context, id, password string) error {
	return f.hit("ResetUserPassword")
}

func (f *fakeBackend) ChangeUserRole(ctx context.Context, id, role string) error {
	return f.hit("ChangeUserRole")
}

func (f *fakeBackend) DeleteUser(ctx context.Context, id string) error {
	return f.hit("DeleteUser")
}

// --- антивирус ---

func (f *fakeBackend) GetScanSettings(ctx context.Context) (*model.TenantScanSettings, error) {
	if err := f.hit("GetScanSettings"); err != nil {
		return nil, err
	}
	s := f.scanSettings
	return &s, nil
}

func (f *fakeBackend) UpdateScanSettings(ctx context.Context, s model.TenantScanSettings) (*model.TenantScanSettings, error) {
	if err := f.hit("UpdateScanSettings"); err != nil {
		return nil, err
	}
	f.scanSettings = s
	return &s, nil
}

func (f *fakeBackend) GetScanMetrics(ctx context.Context) (*model.ScanMetrics, error) {
	if err := f.hit("GetScanMetrics"); err != nil {
		return nil, err
	}
	m := f.metrics
	return &m, nil
}

func (f *fakeBackend) ListScanHistory(ctx context.Context, offset, limit int) (*model.Page[model.ScanResult], error) {
	if err := f.hit("ListScanHistory"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lastOffsets = append(f.lastOffsets, offset)
	f.mu.Unlock()
	return &model.Page[model.ScanResult]{Items: window(f.history, offset, limit), Total: len(f.history)}, nil
}

func (f *fakeBackend) ListQuarantine(ctx context.Context, offset, limit int) (*model.Page[model.QuarantinedFile], error) {
	if err := f.hit("ListQuarantine"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lastOffsets = append(f.lastOffsets, offset)
	f.mu.Unlock()
	return &model.Page[model.QuarantinedFile]{Items: window(f.quarantine, offset, limit), Total: len(f.quarantine)}, nil
}

func (f *fakeBackend) DeleteQuarantined(ctx context.Context, id string) error {
	return f.hit("DeleteQuarantined")
}

// --- глобальные настройки ---

func (f *fakeBackend) GetGlobalSettings(ctx context.Context) (*model.GlobalSettings, error) {
	if f.settingsDelay > 0 {
		time.Sleep(f.settingsDelay)
	}
	if f.onSettingsLoad != nil {
		f.onSettingsLoad()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.hit("GetGlobalSettings"); err != nil {
		return nil, err
	}
	s := f.settings
	return &s, nil
}

func (f *fakeBackend) UpdateGlobalSettings(ctx context.Context, patch model.GlobalSettingsPatch) (*model.GlobalSettings, error) {
	if err := f.hit("UpdateGlobalSettings"); err != nil {
		return nil, err
	}
	f.lastPatch = patch
	f.settings = patch.Apply(f.settings)
	s := f.settings
	return &s, nil
}

func (f *fakeBackend) UploadAsset(ctx context.Context, kind, filename, contentType string, data io.Reader) (*model.GlobalSettings, error) {
	if err := f.hit("UploadAsset"); err != nil {
		return nil, err
	}
	if kind == "logo" {
		f.settings.LogoURL = "/assets/" + filename
	} else {
		f.settings.FaviconURL = "/assets/" + filename
	}
	s := f.settings
	return &s, nil
}

// notFound — ответ backend 404.
func notFound() error {
	return &backend.HTTPError{Method: "GET", Path: "/api/test", StatusCode: 404, Body: `{"error":"not found"}`}
}

// window возвращает срез [offset, offset+limit).
func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]T(nil), items[offset:end]...)
}

// fakeUISettingsRepo — in-memory репозиторий настроек UI.
type fakeUISettingsRepo struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newFakeUISettingsRepo() *fakeUISettingsRepo {
	return &fakeUISettingsRepo{data: make(map[string]string)}
}

func (r *fakeUISettingsRepo) Get(ctx context.Context, key string) (*repository.UISetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	v, ok := r.data[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &repository.UISetting{Key: key, Value: v}, nil
}

func (r *fakeUISettingsRepo) Set(ctx context.Context, key, value, updatedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.data[key] = value
	return nil
}

func (r *fakeUISettingsRepo) ListByPrefix(ctx context.Context, prefix string) ([]repository.UISetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []repository.UISetting
	for k, v := range r.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, repository.UISetting{Key: k, Value: v})
		}
	}
	return out, nil
}

func (r *fakeUISettingsRepo) ReplacePrefix(ctx context.Context, prefix string, values map[string]string, updatedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for k := range r.data {
		if strings.HasPrefix(k, prefix) {
			delete(r.data, k)
		}
	}
	for name, v := range values {
		r.data[prefix+name] = v
	}
	return nil
}

// fakeAuditRepo — in-memory журнал.
type fakeAuditRepo struct {
	mu         sync.Mutex
	entries    []repository.AuditEntry
	prunedFrom time.Time
}

func (r *fakeAuditRepo) Insert(ctx context.Context, e *repository.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.CreatedAt = fixedNow
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeAuditRepo) List(ctx context.Context, f repository.AuditFilter) ([]repository.AuditEntry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]repository.AuditEntry(nil), r.entries...), len(r.entries), nil
}

func (r *fakeAuditRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prunedFrom = before
	return 1, nil
}

func (r *fakeAuditRepo) last() repository.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[len(r.entries)-1]
}
