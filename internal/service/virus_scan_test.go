package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

func quarantineFixture(n int) []model.QuarantinedFile {
	out := make([]model.QuarantinedFile, n)
	for i := range out {
		out[i] = model.QuarantinedFile{ID: fmt.Sprintf("q%02d", i)}
	}
	return out
}

func TestQuarantineLoadMore(t *testing.T) {
	b := newFakeBackend()
	b.quarantine = quarantineFixture(5)
	svc := NewVirusScanService(b, nil, 2, time.Hour, testLogger())
	ctx := context.Background()

	snap, err := svc.OpenQuarantine(ctx, "s1")
	if err != nil {
		t.Fatalf("OpenQuarantine: %v", err)
	}
	if len(snap.Items) != 2 || snap.Total != 5 || !snap.HasMore {
		t.Fatalf("первая страница: %+v", snap)
	}

	for snap.HasMore {
		if snap, err = svc.MoreQuarantine(ctx, "s1"); err != nil {
			t.Fatalf("MoreQuarantine: %v", err)
		}
	}
	if len(snap.Items) != 5 {
		t.Errorf("загружено %d записей, ожидали 5", len(snap.Items))
	}

	want := []int{0, 2, 4}
	if fmt.Sprint(b.lastOffsets) != fmt.Sprint(want) {
		t.Errorf("offsets = %v, ожидали %v", b.lastOffsets, want)
	}

	// Все записи загружены, новых запросов нет
	calls := b.count("ListQuarantine")
	if _, err := svc.MoreQuarantine(ctx, "s1"); err != nil {
		t.Fatalf("MoreQuarantine: %v", err)
	}
	if b.count("ListQuarantine") != calls {
		t.Error("догрузка после достижения total не должна обращаться к backend")
	}
}

func TestQuarantineSessionsIsolated(t *testing.T) {
	b := newFakeBackend()
	b.quarantine = quarantineFixture(3)
	svc := NewVirusScanService(b, nil, 2, time.Hour, testLogger())
	ctx := context.Background()

	if _, err := svc.OpenQuarantine(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MoreQuarantine(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	// у s2 своего состояния нет: догрузка начинает список с первой страницы
	snap, err := svc.MoreQuarantine(ctx, "s2")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Items) != 2 || b.lastOffsets[len(b.lastOffsets)-1] != 0 {
		t.Errorf("сессия s2 получила %d записей (offset %v), ожидали первую страницу", len(snap.Items), b.lastOffsets)
	}
}

func TestMoreAfterStateEvicted(t *testing.T) {
	b := newFakeBackend()
	b.quarantine = quarantineFixture(5)
	svc := NewVirusScanService(b, nil, 2, time.Hour, testLogger())
	ctx := context.Background()

	if _, err := svc.OpenQuarantine(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	// состояние сессии утеряно (TTL или выход)
	svc.ForgetSession("s1")

	snap, err := svc.MoreQuarantine(ctx, "s1")
	if err != nil {
		t.Fatalf("MoreQuarantine: %v", err)
	}
	if !snap.Loaded || len(snap.Items) != 2 || !snap.HasMore {
		t.Errorf("ожидали заново загруженную первую страницу, получили %+v", snap)
	}
	if got := b.lastOffsets[len(b.lastOffsets)-1]; got != 0 {
		t.Errorf("offset = %d, ожидали 0", got)
	}
}

func TestDeleteQuarantined(t *testing.T) {
	b := newFakeBackend()
	b.quarantine = quarantineFixture(3)
	audit := &fakeAuditRepo{}
	svc := NewVirusScanService(b, NewAuditService(audit, testLogger()), 10, time.Hour, testLogger())
	ctx := context.Background()

	if _, err := svc.OpenQuarantine(ctx, "s1"); err != nil {
		t.Fatal(err)
	}

	snap, err := svc.DeleteQuarantined(ctx, "s1", "q01")
	if err != nil {
		t.Fatalf("DeleteQuarantined: %v", err)
	}
	if len(snap.Items) != 2 || snap.Total != 2 {
		t.Errorf("после удаления: %+v", snap)
	}
	if e := audit.last(); e.Action != AuditQuarantineDelete || !e.Success {
		t.Errorf("запись журнала: %+v", e)
	}
}

func TestDeleteQuarantined_FailureKeepsItem(t *testing.T) {
	b := newFakeBackend()
	b.quarantine = quarantineFixture(3)
	audit := &fakeAuditRepo{}
	svc := NewVirusScanService(b, NewAuditService(audit, testLogger()), 10, time.Hour, testLogger())
	ctx := context.Background()

	if _, err := svc.OpenQuarantine(ctx, "s1"); err != nil {
		t.Fatal(err)
	}

	b.err = errors.New("connection reset")
	snap, err := svc.DeleteQuarantined(ctx, "s1", "q01")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("ошибка удаления должна быть возвращена, получили %v", err)
	}
	if len(snap.Items) != 3 {
		t.Errorf("при ошибке запись не должна исчезать, осталось %d", len(snap.Items))
	}
	if e := audit.last(); e.Success {
		t.Error("неуспешное удаление записано в журнал как успешное")
	}
}

func TestLoadPage_StaleResponseIgnored(t *testing.T) {
	svc := NewVirusScanService(newFakeBackend(), nil, 10, time.Hour, testLogger())
	st := NewListState[model.ScanResult]()
	old := st.Reset()

	fetch := func(ctx context.Context, offset, limit int) (*model.Page[model.ScanResult], error) {
		// Пока ответ в пути, пользователь переключил вкладку
		st.Reset()
		return &model.Page[model.ScanResult]{Items: []model.ScanResult{{ID: "late"}}, Total: 1}, nil
	}

	snap, err := loadPage(context.Background(), svc, st, old, TabHistory, fetch)
	if err != nil {
		t.Fatalf("устаревший ответ не должен быть ошибкой: %v", err)
	}
	if len(snap.Items) != 0 {
		t.Errorf("устаревший ответ применён: %+v", snap.Items)
	}
}

func TestHistory_LoadError(t *testing.T) {
	b := newFakeBackend()
	b.err = errors.New("timeout")
	svc := NewVirusScanService(b, nil, 10, time.Hour, testLogger())

	if _, err := svc.OpenHistory(context.Background(), "s1"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("ожидали ErrBackendUnavailable, получили %v", err)
	}
}

func TestUpdateScanSettings_Validation(t *testing.T) {
	b := newFakeBackend()
	svc := NewVirusScanService(b, nil, 10, time.Hour, testLogger())
	ctx := context.Background()

	bad := model.TenantScanSettings{Enabled: true, Action: "burn", MaxFileSizeMB: 10, ScanTimeoutSeconds: 30}
	if _, err := svc.UpdateSettings(ctx, bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("ожидали ErrValidation, получили %v", err)
	}
	if b.count("UpdateScanSettings") != 0 {
		t.Fatal("невалидные настройки отправлены на backend")
	}

	good := model.TenantScanSettings{Enabled: true, Action: model.ScanActionQuarantine, MaxFileSizeMB: 10, ScanTimeoutSeconds: 30}
	if _, err := svc.UpdateSettings(ctx, good); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
}

func TestParseScanTab(t *testing.T) {
	if tab, err := ParseScanTab(""); err != nil || tab != TabHistory {
		t.Errorf("ParseScanTab(\"\") = %q, %v", tab, err)
	}
	if tab, err := ParseScanTab("quarantine"); err != nil || tab != TabQuarantine {
		t.Errorf("ParseScanTab(quarantine) = %q, %v", tab, err)
	}
	if _, err := ParseScanTab("other"); !errors.Is(err, ErrValidation) {
		t.Errorf("ожидали ErrValidation, получили %v", err)
	}
}
