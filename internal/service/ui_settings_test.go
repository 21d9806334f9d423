package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseDurationExtended(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"90d", 90 * 24 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"720h", 720 * time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"xd", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDurationExtended(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDurationExtended(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("parseDurationExtended(%q) = %v, хотели %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSampleData_Overrides(t *testing.T) {
	repo := newFakeUISettingsRepo()
	repo.data[sampleKeyPrefix+"user_name"] = "Мария"
	repo.data[sampleKeyPrefix+"custom_var"] = "42"
	repo.data[auditRetentionKey] = "30d"
	svc := NewUISettingsService(repo, nil, nil, testLogger())

	data := svc.SampleData(context.Background())
	if data["user_name"] != "Мария" {
		t.Errorf("user_name = %q, ожидали переопределение", data["user_name"])
	}
	if data["custom_var"] != "42" {
		t.Errorf("custom_var = %q", data["custom_var"])
	}
	if data["company_name"] != "Acme Corp" {
		t.Errorf("значение по умолчанию потеряно: %q", data["company_name"])
	}
	if _, ok := data["audit.retention_period"]; ok {
		t.Error("в данные предпросмотра попала посторонняя настройка")
	}
}

func TestSampleData_RepoErrorFallsBack(t *testing.T) {
	repo := newFakeUISettingsRepo()
	repo.err = errors.New("db down")
	svc := NewUISettingsService(repo, nil, nil, testLogger())

	data := svc.SampleData(context.Background())
	if data["user_name"] != "John Doe" {
		t.Errorf("при ошибке БД ожидали значения по умолчанию, user_name = %q", data["user_name"])
	}
}

func TestSetSampleData(t *testing.T) {
	repo := newFakeUISettingsRepo()
	repo.data[sampleKeyPrefix+"old"] = "x"
	repo.data[sampleKeyPrefix+"user_name"] = "Мария"
	svc := NewUISettingsService(repo, nil, nil, testLogger())
	ctx := context.Background()

	err := svc.SetSampleData(ctx, map[string]string{
		"user_name":    "",
		"company_name": "Рога и копыта",
	}, "admin")
	if err != nil {
		t.Fatalf("SetSampleData: %v", err)
	}
	if _, ok := repo.data[sampleKeyPrefix+"old"]; ok {
		t.Error("отсутствующая в наборе переменная должна быть удалена")
	}
	if _, ok := repo.data[sampleKeyPrefix+"user_name"]; ok {
		t.Error("пустое значение должно удалять переопределение")
	}
	if repo.data[sampleKeyPrefix+"company_name"] != "Рога и копыта" {
		t.Error("новое значение не сохранено")
	}

	if err := svc.SetSampleData(ctx, map[string]string{"bad name!": "v"}, "admin"); !errors.Is(err, ErrValidation) {
		t.Errorf("ожидали ErrValidation для имени с пробелом, получили %v", err)
	}
}

func TestAuditRetention(t *testing.T) {
	repo := newFakeUISettingsRepo()
	svc := NewUISettingsService(repo, nil, nil, testLogger())
	ctx := context.Background()

	if got := svc.AuditRetention(ctx); got != defaultAuditRetention {
		t.Errorf("по умолчанию ожидали %v, получили %v", defaultAuditRetention, got)
	}
	if err := svc.SetAuditRetention(ctx, "12h", "admin"); !errors.Is(err, ErrValidation) {
		t.Errorf("ожидали ErrValidation для периода меньше суток, получили %v", err)
	}
	if err := svc.SetAuditRetention(ctx, "30d", "admin"); err != nil {
		t.Fatalf("SetAuditRetention: %v", err)
	}
	if got := svc.AuditRetention(ctx); got != 30*24*time.Hour {
		t.Errorf("AuditRetention = %v, ожидали 30d", got)
	}
}

func TestAuditPrune(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(repo, testLogger())
	svc.now = func() time.Time { return fixedNow }

	n, err := svc.Prune(context.Background(), 24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("Prune: %d, %v", n, err)
	}
	if !repo.prunedFrom.Equal(fixedNow.Add(-24 * time.Hour)) {
		t.Errorf("граница очистки %v", repo.prunedFrom)
	}
}

func TestAuditRecord_NilSafe(t *testing.T) {
	var svc *AuditService
	svc.Record(context.Background(), AuditUserDelete, TargetUser, "u1", "", nil)
}

func TestUISettingsChangesAudited(t *testing.T) {
	repo := newFakeUISettingsRepo()
	audit := &fakeAuditRepo{}
	svc := NewUISettingsService(repo, nil, NewAuditService(audit, testLogger()), testLogger())
	ctx := WithActor(context.Background(), Actor{ID: "a1", Name: "admin"})

	if err := svc.SetSampleData(ctx, map[string]string{"user_name": "Мария"}, "admin"); err != nil {
		t.Fatal(err)
	}
	if e := audit.last(); e.Action != AuditPreviewDataUpdate || !e.Success || e.ActorName != "admin" {
		t.Errorf("изменение данных предпросмотра не записано: %+v", e)
	}

	if err := svc.SetAuditRetention(ctx, "30d", "admin"); err != nil {
		t.Fatal(err)
	}
	if e := audit.last(); e.Action != AuditRetentionUpdate || e.Details != "30d" {
		t.Errorf("изменение срока хранения не записано: %+v", e)
	}

	repo.err = errors.New("db down")
	if err := svc.SetAuditRetention(ctx, "60d", "admin"); err == nil {
		t.Fatal("ожидали ошибку БД")
	}
	if e := audit.last(); e.Success {
		t.Error("неуспешное изменение записано как успешное")
	}
}
