package model

import "time"

// FileRequestStatus — статус запроса файлов.
type FileRequestStatus string

const (
	FileRequestActive  FileRequestStatus = "active"
	FileRequestExpired FileRequestStatus = "expired"
	FileRequestRevoked FileRequestStatus = "revoked"
)

// VisibilityMode — фильтр видимости запросов файлов.
type VisibilityMode string

const (
	// VisibilityAll — без фильтра.
	VisibilityAll VisibilityMode = ""
	// VisibilityDepartment — запросы отдела пользователя.
	VisibilityDepartment VisibilityMode = "department"
	// VisibilityPrivate — только собственные запросы.
	VisibilityPrivate VisibilityMode = "private"
)

// ParseVisibility проверяет строковое значение режима видимости.
func ParseVisibility(s string) (VisibilityMode, bool) {
	switch VisibilityMode(s) {
	case VisibilityAll, VisibilityDepartment, VisibilityPrivate:
		return VisibilityMode(s), true
	default:
		return VisibilityAll, false
	}
}

// FileRequest — запрос на загрузку файлов внешними участниками.
type FileRequest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	// Destination — папка назначения для загруженных файлов
	Destination string `json:"destination"`
	// Department — отдел-владелец (для visibility=department)
	Department string            `json:"department,omitempty"`
	Visibility VisibilityMode    `json:"visibility,omitempty"`
	Status     FileRequestStatus `json:"status"`
	// ShareLink — публичная ссылка для загрузки
	ShareLink   string     `json:"share_link"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	UploadCount int        `json:"upload_count"`
	// MaxUploads — лимит загрузок (nil — без ограничения)
	MaxUploads *int `json:"max_uploads,omitempty"`
	// LastUploadAt — время последней загрузки
	LastUploadAt *time.Time `json:"last_upload_at,omitempty"`
}

// EffectiveStatus возвращает статус для отображения: активный запрос
// с истёкшим сроком показывается как expired.
func (r *FileRequest) EffectiveStatus(now time.Time) FileRequestStatus {
	if r.Status == FileRequestActive && r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
		return FileRequestExpired
	}
	return r.Status
}

// FileRequestCreate — тело POST /api/file-requests.
type FileRequestCreate struct {
	Name        string         `json:"name" validate:"required,max=200"`
	Description string         `json:"description,omitempty" validate:"max=2000"`
	Destination string         `json:"destination" validate:"required,max=500"`
	Visibility  VisibilityMode `json:"visibility,omitempty" validate:"omitempty,oneof=department private"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	MaxUploads  *int           `json:"max_uploads,omitempty" validate:"omitempty,min=1"`
}

// Upload — запись о загрузке файла по запросу (только чтение).
type Upload struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	UploaderName string    `json:"uploader_name,omitempty"`
	UploaderMail string    `json:"uploader_email,omitempty"`
	ScanStatus   string    `json:"scan_status,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
}
