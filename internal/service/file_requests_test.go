package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

func newTestFileRequestService(b *fakeBackend) *FileRequestService {
	svc := NewFileRequestService(b, nil, testLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestFileRequestList_Visibility(t *testing.T) {
	b := newFakeBackend()
	b.fileRequests["1"] = &model.FileRequest{ID: "1", Visibility: model.VisibilityPrivate, CreatedAt: fixedNow.Add(-time.Hour)}
	b.fileRequests["2"] = &model.FileRequest{ID: "2", Visibility: model.VisibilityDepartment, CreatedAt: fixedNow}
	b.fileRequests["3"] = &model.FileRequest{ID: "3", Visibility: model.VisibilityPrivate, CreatedAt: fixedNow}
	svc := newTestFileRequestService(b)
	ctx := context.Background()

	all, err := svc.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("без фильтра ожидали 3, получили %d", len(all))
	}

	private, err := svc.List(ctx, "private")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(private) != 2 || private[0].ID != "3" {
		t.Errorf("private: %+v", private)
	}

	if _, err := svc.List(ctx, "public"); !errors.Is(err, ErrValidation) {
		t.Errorf("ожидали ErrValidation, получили %v", err)
	}
}

func TestFileRequestCreate(t *testing.T) {
	past := fixedNow.Add(-time.Minute)
	future := fixedNow.Add(7 * 24 * time.Hour)
	zero := 0

	tests := []struct {
		name    string
		req     model.FileRequestCreate
		wantErr bool
	}{
		{name: "валидный", req: model.FileRequestCreate{Name: " Отчёты ", Destination: "/finance", ExpiresAt: &future}},
		{name: "без названия", req: model.FileRequestCreate{Name: "  ", Destination: "/finance"}, wantErr: true},
		{name: "без папки", req: model.FileRequestCreate{Name: "Отчёты"}, wantErr: true},
		{name: "срок в прошлом", req: model.FileRequestCreate{Name: "Отчёты", Destination: "/f", ExpiresAt: &past}, wantErr: true},
		{name: "неизвестная видимость", req: model.FileRequestCreate{Name: "Отчёты", Destination: "/f", Visibility: "public"}, wantErr: true},
		{name: "лимит загрузок 0", req: model.FileRequestCreate{Name: "Отчёты", Destination: "/f", MaxUploads: &zero}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			svc := newTestFileRequestService(b)
			created, err := svc.Create(context.Background(), tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if b.total() != 0 {
					t.Error("невалидный запрос отправлен на backend")
				}
				return
			}
			if created.ShareLink == "" {
				t.Error("ожидали ссылку для загрузки")
			}
			if b.lastCreate.Name != "Отчёты" {
				t.Errorf("название не обрезано: %q", b.lastCreate.Name)
			}
		})
	}
}

func TestFileRequestDelete_ActiveRefused(t *testing.T) {
	b := newFakeBackend()
	b.fileRequests["active"] = &model.FileRequest{ID: "active", Status: model.FileRequestActive}
	svc := newTestFileRequestService(b)

	err := svc.Delete(context.Background(), "active")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ожидали ErrValidation, получили %v", err)
	}
	if b.count("DeleteFileRequest") != 0 {
		t.Error("активный запрос не должен удаляться")
	}
}

func TestFileRequestDelete_ExpiredAllowed(t *testing.T) {
	b := newFakeBackend()
	expired := fixedNow.Add(-time.Hour)
	b.fileRequests["old"] = &model.FileRequest{ID: "old", Status: model.FileRequestActive, ExpiresAt: &expired}
	b.fileRequests["revoked"] = &model.FileRequest{ID: "revoked", Status: model.FileRequestRevoked}
	svc := newTestFileRequestService(b)

	for _, id := range []string{"old", "revoked"} {
		if err := svc.Delete(context.Background(), id); err != nil {
			t.Errorf("Delete(%s): %v", id, err)
		}
	}
	if n := b.count("DeleteFileRequest"); n != 2 {
		t.Errorf("ожидали 2 удаления, получили %d", n)
	}
}

func TestFileRequestDetails(t *testing.T) {
	b := newFakeBackend()
	b.fileRequests["1"] = &model.FileRequest{ID: "1", Name: "Отчёты"}
	b.uploads = []model.Upload{
		{ID: "u1", UploadedAt: fixedNow.Add(-time.Hour)},
		{ID: "u2", UploadedAt: fixedNow},
	}
	svc := newTestFileRequestService(b)

	d, err := svc.Details(context.Background(), "1")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if d.Request.Name != "Отчёты" || len(d.Uploads) != 2 || d.Uploads[0].ID != "u2" {
		t.Errorf("неожиданные данные: %+v", d)
	}

	if _, err := svc.Details(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидали ErrNotFound, получили %v", err)
	}
}
