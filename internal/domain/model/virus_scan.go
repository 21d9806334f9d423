package model

import "time"

// ScanAction — действие при обнаружении угрозы.
type ScanAction string

const (
	ScanActionQuarantine ScanAction = "quarantine"
	ScanActionDelete     ScanAction = "delete"
	ScanActionNotify     ScanAction = "notify"
)

// TenantScanSettings — настройки антивирусной проверки арендатора.
type TenantScanSettings struct {
	Enabled      bool       `json:"enabled"`
	ScanOnUpload bool       `json:"scan_on_upload"`
	Action       ScanAction `json:"action_on_detection" validate:"oneof=quarantine delete notify"`
	// MaxFileSizeMB — файлы крупнее не проверяются
	MaxFileSizeMB int `json:"max_file_size_mb" validate:"gt=0"`
	// ScanTimeoutSeconds — таймаут одной проверки
	ScanTimeoutSeconds int `json:"scan_timeout_seconds" validate:"gt=0"`
}

// ScanMetrics — состояние сканера (только чтение).
type ScanMetrics struct {
	// Healthy — демон сканера отвечает
	Healthy        bool       `json:"healthy"`
	EngineVersion  string     `json:"engine_version,omitempty"`
	SignatureDate  *time.Time `json:"signature_date,omitempty"`
	QueueLength    int        `json:"queue_length"`
	ScannedToday   int        `json:"scanned_today"`
	InfectedToday  int        `json:"infected_today"`
	TotalScanned   int64      `json:"total_scanned"`
	TotalInfected  int64      `json:"total_infected"`
	AvgScanMillis  float64    `json:"avg_scan_ms"`
	LastScanAt     *time.Time `json:"last_scan_at,omitempty"`
	QuarantineSize int        `json:"quarantine_count"`
}

// ScanResult — запись истории проверок.
type ScanResult struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	FileID   string `json:"file_id,omitempty"`
	// Status — clean, infected, error, skipped
	Status     string    `json:"status"`
	ThreatName string    `json:"threat_name,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	ScannedAt  time.Time `json:"scanned_at"`
}

// GetID — идентификатор записи для дедупликации списков.
func (r ScanResult) GetID() string { return r.ID }

// QuarantinedFile — файл в карантине.
type QuarantinedFile struct {
	ID            string    `json:"id"`
	FileName      string    `json:"file_name"`
	Size          int64     `json:"size"`
	ThreatName    string    `json:"threat_name"`
	UploadedBy    string    `json:"uploaded_by,omitempty"`
	QuarantinedAt time.Time `json:"quarantined_at"`
}

// GetID — идентификатор записи для дедупликации списков.
func (q QuarantinedFile) GetID() string { return q.ID }

// Page — страница записей с общим числом на сервере.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
