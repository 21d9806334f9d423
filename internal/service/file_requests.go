// file_requests.go — запросы файлов у внешних участников.
package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

// FileRequestBackend — операции backend для запросов файлов.
type FileRequestBackend interface {
	ListFileRequests(ctx context.Context, visibility model.VisibilityMode) ([]model.FileRequest, error)
	CreateFileRequest(ctx context.Context, req model.FileRequestCreate) (*model.FileRequest, error)
	GetFileRequest(ctx context.Context, id string) (*model.FileRequest, error)
	RevokeFileRequest(ctx context.Context, id string) error
	DeleteFileRequest(ctx context.Context, id string) error
	ListUploads(ctx context.Context, id string) ([]model.Upload, error)
}

// FileRequestDetails — данные для окна подробностей запроса.
type FileRequestDetails struct {
	Request *model.FileRequest
	Uploads []model.Upload
}

// FileRequestService — список, создание, отзыв и удаление запросов файлов.
type FileRequestService struct {
	backend FileRequestBackend
	audit   *AuditService
	logger  *slog.Logger
	now     func() time.Time
}

// NewFileRequestService создаёт сервис запросов файлов.
func NewFileRequestService(b FileRequestBackend, audit *AuditService, logger *slog.Logger) *FileRequestService {
	return &FileRequestService{
		backend: b,
		audit:   audit,
		logger:  logger.With(slog.String("service", "file_requests")),
		now:     time.Now,
	}
}

// List возвращает запросы с фильтром видимости (пустой — все),
// от новых к старым.
func (s *FileRequestService) List(ctx context.Context, visibility string) ([]model.FileRequest, error) {
	mode, ok := model.ParseVisibility(visibility)
	if !ok {
		return nil, validationf("недопустимый режим видимости %q", visibility)
	}

	list, err := s.backend.ListFileRequests(ctx, mode)
	if err != nil {
		return nil, mapBackendError("список запросов файлов", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// Create валидирует и создаёт запрос. Возвращает запрос со ссылкой.
func (s *FileRequestService) Create(ctx context.Context, req model.FileRequestCreate) (*model.FileRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Destination = strings.TrimSpace(req.Destination)
	req.Description = strings.TrimSpace(req.Description)

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, validationf("срок действия должен быть в будущем")
	}

	created, err := s.backend.CreateFileRequest(ctx, req)
	targetID := req.Name
	if created != nil {
		targetID = created.ID
	}
	s.audit.Record(ctx, AuditFileRequestCreate, TargetFileRequest, targetID, req.Name, err)
	if err != nil {
		return nil, mapBackendError("создание запроса файлов", err)
	}
	return created, nil
}

// Details загружает запрос и его загрузки параллельно.
func (s *FileRequestService) Details(ctx context.Context, id string) (*FileRequestDetails, error) {
	var details FileRequestDetails

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		req, err := s.backend.GetFileRequest(gctx, id)
		if err != nil {
			return mapBackendError("получение запроса файлов", err)
		}
		details.Request = req
		return nil
	})
	g.Go(func() error {
		uploads, err := s.backend.ListUploads(gctx, id)
		if err != nil {
			return mapBackendError("список загрузок", err)
		}
		sort.SliceStable(uploads, func(i, j int) bool {
			return uploads[i].UploadedAt.After(uploads[j].UploadedAt)
		})
		details.Uploads = uploads
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &details, nil
}

// Revoke отзывает запрос (ссылка перестаёт принимать загрузки).
func (s *FileRequestService) Revoke(ctx context.Context, id string) error {
	err := s.backend.RevokeFileRequest(ctx, id)
	s.audit.Record(ctx, AuditFileRequestRevoke, TargetFileRequest, id, "", err)
	if err != nil {
		return mapBackendError("отзыв запроса файлов", err)
	}
	return nil
}

// Delete окончательно удаляет запрос. Активный запрос сначала нужно отозвать.
func (s *FileRequestService) Delete(ctx context.Context, id string) error {
	req, err := s.backend.GetFileRequest(ctx, id)
	if err != nil {
		return mapBackendError("получение запроса файлов", err)
	}
	if req.EffectiveStatus(s.now()) == model.FileRequestActive {
		return validationf("активный запрос нужно отозвать перед удалением")
	}

	err = s.backend.DeleteFileRequest(ctx, id)
	s.audit.Record(ctx, AuditFileRequestDelete, TargetFileRequest, id, req.Name, err)
	if err != nil {
		return mapBackendError("удаление запроса файлов", err)
	}
	return nil
}

// EffectiveStatus — статус запроса для отображения на текущий момент.
func (s *FileRequestService) EffectiveStatus(r *model.FileRequest) model.FileRequestStatus {
	return r.EffectiveStatus(s.now())
}
