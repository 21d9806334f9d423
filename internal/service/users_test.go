package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

func newTestUserService(b *fakeBackend) *UserService {
	svc := NewUserService(b, nil, testLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestSuspend_TimedWithoutDate_NoCall(t *testing.T) {
	b := newFakeBackend()
	svc := newTestUserService(b)

	err := svc.Suspend(context.Background(), "u2", SuspendInput{Type: model.SuspensionTimed})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ожидали ErrValidation, получили %v", err)
	}
	if n := b.count("SuspendUser"); n != 0 {
		t.Errorf("запрос блокировки отправлен %d раз, ожидали 0", n)
	}
}

func TestValidateSuspend(t *testing.T) {
	future := fixedNow.Add(48 * time.Hour)
	past := fixedNow.Add(-time.Hour)

	tests := []struct {
		name     string
		in       SuspendInput
		wantErr  bool
		wantDate bool
	}{
		{name: "временная с датой", in: SuspendInput{Type: model.SuspensionTimed, UntilDate: &future}, wantDate: true},
		{name: "временная без даты", in: SuspendInput{Type: model.SuspensionTimed}, wantErr: true},
		{name: "временная с датой в прошлом", in: SuspendInput{Type: model.SuspensionTimed, UntilDate: &past}, wantErr: true},
		{name: "бессрочная игнорирует дату", in: SuspendInput{Type: model.SuspensionIndefinite, UntilDate: &future}},
		{name: "неизвестный вид", in: SuspendInput{Type: "forever"}, wantErr: true},
	}

	svc := newTestUserService(newFakeBackend())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := svc.ValidateSuspend(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateSuspend() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (req.UntilDate != nil) != tt.wantDate {
				t.Errorf("UntilDate = %v, ожидали наличие даты: %v", req.UntilDate, tt.wantDate)
			}
		})
	}
}

func TestSuspend_Timed(t *testing.T) {
	b := newFakeBackend()
	svc := newTestUserService(b)
	until := fixedNow.Add(24 * time.Hour)

	err := svc.Suspend(context.Background(), "u2", SuspendInput{
		Type: model.SuspensionTimed, UntilDate: &until, Reason: "  нарушение  ",
	})
	if err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if b.lastSuspend.UntilDate == nil || !b.lastSuspend.UntilDate.Equal(until) {
		t.Errorf("UntilDate = %v, ожидали %v", b.lastSuspend.UntilDate, until)
	}
	if b.lastSuspend.Reason != "нарушение" {
		t.Errorf("Reason = %q", b.lastSuspend.Reason)
	}
}

func TestSuspend_Self(t *testing.T) {
	b := newFakeBackend()
	svc := newTestUserService(b)
	ctx := WithActor(context.Background(), Actor{ID: "u1", Name: "admin"})

	err := svc.Suspend(ctx, "u1", SuspendInput{Type: model.SuspensionIndefinite})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ожидали ErrValidation, получили %v", err)
	}
	if b.total() != 0 {
		t.Errorf("не ожидали запросов, получили %d", b.total())
	}
}

func TestCanDeletePermanently(t *testing.T) {
	u := &model.User{ID: "u2", Email: "jane@example.com"}
	tests := []struct {
		typed string
		want  bool
	}{
		{"", false},
		{"jane@example", false},
		{"JANE@example.com", false},
		{"jane@example.com ", false},
		{"jane@example.com", true},
	}
	for _, tt := range tests {
		if got := CanDeletePermanently(u, tt.typed); got != tt.want {
			t.Errorf("CanDeletePermanently(%q) = %v, хотели %v", tt.typed, got, tt.want)
		}
	}
	if CanDeletePermanently(&model.User{}, "") {
		t.Error("пользователь без email не может быть удалён пустым вводом")
	}
}

func TestDeletePermanently(t *testing.T) {
	b := newFakeBackend()
	svc := newTestUserService(b)
	u := &model.User{ID: "u2", Email: "jane@example.com"}

	if err := svc.DeletePermanently(context.Background(), u, "jane"); !errors.Is(err, ErrValidation) {
		t.Fatalf("ожидали ErrValidation, получили %v", err)
	}
	if n := b.count("DeleteUser"); n != 0 {
		t.Fatalf("запрос удаления отправлен при несовпадении")
	}

	if err := svc.DeletePermanently(context.Background(), u, "jane@example.com"); err != nil {
		t.Fatalf("DeletePermanently: %v", err)
	}
	if n := b.count("DeleteUser"); n != 1 {
		t.Errorf("ожидали 1 запрос удаления, получили %d", n)
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		confirm  string
		wantErr  bool
	}{
		{name: "валидный", password: "Secr3t!pass", confirm: "Secr3t!pass"},
		{name: "короткий", password: "S3c!a", confirm: "S3c!a", wantErr: true},
		{name: "без заглавной", password: "secr3t!pass", confirm: "secr3t!pass", wantErr: true},
		{name: "без цифры", password: "Secret!pass", confirm: "Secret!pass", wantErr: true},
		{name: "без спецсимвола", password: "Secr3tpass", confirm: "Secr3tpass", wantErr: true},
		{name: "не совпадает", password: "Secr3t!pass", confirm: "Secr3t!pasS", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password, tt.confirm)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChangeEmail(t *testing.T) {
	b := newFakeBackend()
	svc := newTestUserService(b)
	ctx := context.Background()

	if err := svc.ChangeEmail(ctx, "u2", "not-an-email", "not-an-email"); !errors.Is(err, ErrValidation) {
		t.Errorf("ожидали ErrValidation для некорректного адреса, получили %v", err)
	}
	if err := svc.ChangeEmail(ctx, "u2", "a@example.com", "b@example.com"); !errors.Is(err, ErrValidation) {
		t.Errorf("ожидали ErrValidation для несовпадения, получили %v", err)
	}
	if b.total() != 0 {
		t.Fatalf("не ожидали запросов, получили %d", b.total())
	}
	if err := svc.ChangeEmail(ctx, "u2", " a@example.com", "a@example.com"); err != nil {
		t.Fatalf("ChangeEmail: %v", err)
	}
	if n := b.count("ChangeUserEmail"); n != 1 {
		t.Errorf("ожидали 1 запрос, получили %d", n)
	}
}

func TestChangeRole(t *testing.T) {
	b := newFakeBackend()
	svc := newTestUserService(b)
	ctx := WithActor(context.Background(), Actor{ID: "u1"})

	if err := svc.ChangeRole(ctx, "u2", "superuser"); !errors.Is(err, ErrValidation) {
		t.Errorf("ожидали ErrValidation для неизвестной роли, получили %v", err)
	}
	if err := svc.ChangeRole(ctx, "u1", "user"); !errors.Is(err, ErrValidation) {
		t.Errorf("ожидали ErrValidation для собственной роли, получили %v", err)
	}
	if err := svc.ChangeRole(ctx, "u2", "manager"); err != nil {
		t.Fatalf("ChangeRole: %v", err)
	}
	if n := b.count("ChangeUserRole"); n != 1 {
		t.Errorf("ожидали 1 запрос, получили %d", n)
	}
}

func TestUserBackendErrors(t *testing.T) {
	b := newFakeBackend()
	svc := newTestUserService(b)

	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
}
