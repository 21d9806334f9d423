package model

import "time"

// FileEntry — файл или папка в файловом хранилище компании.
type FileEntry struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	IsFolder    bool       `json:"is_folder"`
	Size        int64      `json:"size"`
	ContentType string     `json:"content_type,omitempty"`
	Department  string     `json:"department,omitempty"`
	Owner       string     `json:"owner,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ModifiedAt  *time.Time `json:"modified_at,omitempty"`
}

// Category возвращает категорию файла для отображения иконки.
func (f *FileEntry) Category() FileCategory {
	if f.IsFolder {
		return CategoryFolder
	}
	return CategoryFor(f.Name, f.ContentType)
}

// Department — отдел компании.
type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Activity — запись журнала действий с файлом (только чтение).
type Activity struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Kind возвращает тип действия с дескриптором отображения.
func (a *Activity) Kind() ActivityAction {
	return ParseActivityAction(a.Action)
}
