package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/bigkaa/docvault/admin-module/internal/backend"
	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

func strPtr(s string) *string { return &s }

func newTestGlobalSettings(b *fakeBackend) (*GlobalSettingsService, *time.Time) {
	now := fixedNow
	svc := NewGlobalSettingsService(b, nil, time.Minute, testLogger())
	svc.now = func() time.Time { return now }
	return svc, &now
}

func TestGlobalSettings_DefaultsBeforeLoad(t *testing.T) {
	svc, _ := newTestGlobalSettings(newFakeBackend())

	if got := svc.Current().CompanyName; got != "DocVault" {
		t.Errorf("CompanyName = %q, ожидали значение по умолчанию", got)
	}
}

func TestGlobalSettings_EnsureTTL(t *testing.T) {
	b := newFakeBackend()
	b.settings.CompanyName = "Acme"
	svc, now := newTestGlobalSettings(b)
	ctx := context.Background()

	gs, err := svc.Ensure(ctx)
	if err != nil || gs.CompanyName != "Acme" {
		t.Fatalf("Ensure: %v, %+v", err, gs)
	}
	if _, err := svc.Ensure(ctx); err != nil {
		t.Fatal(err)
	}
	if n := b.count("GetGlobalSettings"); n != 1 {
		t.Errorf("свежий снимок не должен перечитываться, запросов %d", n)
	}

	*now = now.Add(2 * time.Minute)
	if _, err := svc.Ensure(ctx); err != nil {
		t.Fatal(err)
	}
	if n := b.count("GetGlobalSettings"); n != 2 {
		t.Errorf("после TTL ожидали повторную загрузку, запросов %d", n)
	}
}

func TestGlobalSettings_RefreshErrorKeepsSnapshot(t *testing.T) {
	b := newFakeBackend()
	b.settings.CompanyName = "Acme"
	svc, _ := newTestGlobalSettings(b)
	ctx := context.Background()

	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	b.err = errors.New("down")
	gs, err := svc.Refresh(ctx)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("ожидали ErrBackendUnavailable, получили %v", err)
	}
	if gs.CompanyName != "Acme" {
		t.Errorf("при ошибке должен остаться последний снимок, получили %q", gs.CompanyName)
	}
}

func TestGlobalSettings_RefreshCoalesced(t *testing.T) {
	b := newFakeBackend()
	b.settingsDelay = 50 * time.Millisecond
	svc, _ := newTestGlobalSettings(b)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Refresh(context.Background())
		}()
	}
	wg.Wait()

	if n := b.count("GetGlobalSettings"); n >= 5 {
		t.Errorf("параллельные обновления не объединены: %d запросов", n)
	}
}

func TestGlobalSettings_InvalidateKeepsContent(t *testing.T) {
	b := newFakeBackend()
	b.settings.CompanyName = "Acme"
	b.settings.HelpContent = "Справка Acme"
	svc, _ := newTestGlobalSettings(b)
	ctx := context.Background()

	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	svc.Invalidate()
	if got := svc.Current(); got.CompanyName != "Acme" || got.HelpContent != "Справка Acme" {
		t.Fatalf("Invalidate не должен терять загруженные настройки: %+v", got)
	}

	if _, err := svc.Ensure(ctx); err != nil {
		t.Fatal(err)
	}
	if n := b.count("GetGlobalSettings"); n != 2 {
		t.Errorf("после Invalidate Ensure должен перечитать настройки, запросов %d", n)
	}
}

func TestGlobalSettings_InvalidateDuringLoad(t *testing.T) {
	b := newFakeBackend()
	svc, _ := newTestGlobalSettings(b)
	ctx := context.Background()

	b.onSettingsLoad = func() {
		b.onSettingsLoad = nil
		svc.Invalidate()
	}
	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Ensure(ctx); err != nil {
		t.Fatal(err)
	}
	if n := b.count("GetGlobalSettings"); n != 2 {
		t.Errorf("загрузка, начатая до Invalidate, не должна считаться свежей; запросов %d", n)
	}
}

func TestGlobalSettings_RefreshIgnoresCallerCancel(t *testing.T) {
	b := newFakeBackend()
	b.settings.CompanyName = "Acme"
	svc, _ := newTestGlobalSettings(b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gs, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("отмена запроса вызвавшего не должна срывать загрузку: %v", err)
	}
	if gs.CompanyName != "Acme" {
		t.Errorf("CompanyName = %q", gs.CompanyName)
	}
}

func TestGlobalSettings_Update(t *testing.T) {
	b := newFakeBackend()
	svc, _ := newTestGlobalSettings(b)
	ctx := context.Background()

	gs, err := svc.Update(ctx, model.GlobalSettingsPatch{
		CompanyName: strPtr("Acme"),
		DateFormat:  strPtr(model.DateFormatISO),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if gs.CompanyName != "Acme" || svc.Current().DateFormat != model.DateFormatISO {
		t.Errorf("настройки не применены: %+v", gs)
	}
}

func TestGlobalSettings_UpdateValidation(t *testing.T) {
	on := true
	tests := []struct {
		name  string
		patch model.GlobalSettingsPatch
	}{
		{name: "цвет", patch: model.GlobalSettingsPatch{PrimaryColor: strPtr("blue")}},
		{name: "короткий цвет", patch: model.GlobalSettingsPatch{PrimaryColor: strPtr("#abc")}},
		{name: "цвет без решётки", patch: model.GlobalSettingsPatch{PrimaryColor: strPtr("1a2b3c4")}},
		{name: "формат даты", patch: model.GlobalSettingsPatch{DateFormat: strPtr("YYYY/DD/MM")}},
		{name: "формат времени", patch: model.GlobalSettingsPatch{TimeFormat: strPtr("36h")}},
		{name: "часовой пояс", patch: model.GlobalSettingsPatch{Timezone: strPtr("Mars/Olympus")}},
		{name: "пустое название", patch: model.GlobalSettingsPatch{CompanyName: strPtr("   ")}},
		{name: "обслуживание без сообщения", patch: model.GlobalSettingsPatch{MaintenanceMode: &on, MaintenanceMessage: strPtr(" ")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			svc, _ := newTestGlobalSettings(b)
			if _, err := svc.Update(context.Background(), tt.patch); !errors.Is(err, ErrValidation) {
				t.Fatalf("ожидали ErrValidation, получили %v", err)
			}
			if b.total() != 0 {
				t.Error("невалидные настройки отправлены на backend")
			}
		})
	}
}

func TestGlobalSettings_Formatting(t *testing.T) {
	b := newFakeBackend()
	b.settings.DateFormat = model.DateFormatMDYSlash
	b.settings.TimeFormat = model.TimeFormat12h
	b.settings.Timezone = "Europe/Moscow"
	svc, _ := newTestGlobalSettings(b)

	ts := time.Date(2026, 3, 1, 20, 5, 0, 0, time.UTC)
	if got := svc.FormatDate(ts); got != "01/03/2026" {
		t.Errorf("до загрузки FormatDate = %q, ожидали формат по умолчанию", got)
	}

	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := svc.FormatDate(ts); got != "03/01/2026" {
		t.Errorf("FormatDate = %q", got)
	}
	// 20:05 UTC = 23:05 MSK
	if got := svc.FormatTime(ts); got != "11:05 PM" {
		t.Errorf("FormatTime = %q", got)
	}
	if got := svc.FormatDateTime(time.Time{}); got != "" {
		t.Errorf("нулевое время должно давать пустую строку, получили %q", got)
	}
}

func TestGlobalSettings_UploadAsset(t *testing.T) {
	tests := []struct {
		name        string
		kind        string
		filename    string
		contentType string
		size        int64
		wantErr     bool
	}{
		{name: "png", kind: backend.AssetLogo, filename: "logo.png", contentType: "image/png", size: 100},
		{name: "тип по расширению", kind: backend.AssetFavicon, filename: "fav.ico", contentType: "application/octet-stream", size: 100},
		{name: "неизвестный вид", kind: "banner", filename: "b.png", contentType: "image/png", size: 100, wantErr: true},
		{name: "пустой файл", kind: backend.AssetLogo, filename: "logo.png", contentType: "image/png", size: 0, wantErr: true},
		{name: "слишком большой", kind: backend.AssetLogo, filename: "logo.png", contentType: "image/png", size: MaxAssetSize + 1, wantErr: true},
		{name: "недопустимый формат", kind: backend.AssetLogo, filename: "logo.gif", contentType: "image/gif", size: 100, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			svc, _ := newTestGlobalSettings(b)
			_, err := svc.UploadAsset(context.Background(), tt.kind, tt.filename, tt.contentType, tt.size, strings.NewReader("data"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UploadAsset() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && b.count("UploadAsset") != 0 {
				t.Error("невалидный файл отправлен на backend")
			}
		})
	}
}
