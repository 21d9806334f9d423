package model

import (
	"path"
	"strings"
)

// Descriptor — параметры отображения значения перечисления.
type Descriptor struct {
	// Label — ключ перевода подписи
	Label string
	// Icon — имя иконки из набора static/icons
	Icon string
	// Color — CSS-класс цвета
	Color string
}

// FileCategory — категория файла для иконки в списке файлов.
type FileCategory int

const (
	CategoryOther FileCategory = iota
	CategoryFolder
	CategoryDocument
	CategorySpreadsheet
	CategoryPresentation
	CategoryPDF
	CategoryImage
	CategoryVideo
	CategoryAudio
	CategoryArchive
	CategoryCode
)

var fileCategoryDescriptors = map[FileCategory]Descriptor{
	CategoryOther:        {Label: "file.category.other", Icon: "file", Color: "text-gray"},
	CategoryFolder:       {Label: "file.category.folder", Icon: "folder", Color: "text-amber"},
	CategoryDocument:     {Label: "file.category.document", Icon: "file-text", Color: "text-blue"},
	CategorySpreadsheet:  {Label: "file.category.spreadsheet", Icon: "file-spreadsheet", Color: "text-green"},
	CategoryPresentation: {Label: "file.category.presentation", Icon: "file-presentation", Color: "text-orange"},
	CategoryPDF:          {Label: "file.category.pdf", Icon: "file-pdf", Color: "text-red"},
	CategoryImage:        {Label: "file.category.image", Icon: "file-image", Color: "text-purple"},
	CategoryVideo:        {Label: "file.category.video", Icon: "file-video", Color: "text-pink"},
	CategoryAudio:        {Label: "file.category.audio", Icon: "file-audio", Color: "text-teal"},
	CategoryArchive:      {Label: "file.category.archive", Icon: "file-archive", Color: "text-brown"},
	CategoryCode:         {Label: "file.category.code", Icon: "file-code", Color: "text-slate"},
}

// Descriptor возвращает параметры отображения категории.
// Неизвестное значение отображается как CategoryOther.
func (c FileCategory) Descriptor() Descriptor {
	if d, ok := fileCategoryDescriptors[c]; ok {
		return d
	}
	return fileCategoryDescriptors[CategoryOther]
}

var extensionCategories = map[string]FileCategory{
	".doc": CategoryDocument, ".docx": CategoryDocument, ".odt": CategoryDocument,
	".rtf": CategoryDocument, ".txt": CategoryDocument, ".md": CategoryDocument,
	".xls": CategorySpreadsheet, ".xlsx": CategorySpreadsheet, ".ods": CategorySpreadsheet,
	".csv": CategorySpreadsheet,
	".ppt": CategoryPresentation, ".pptx": CategoryPresentation, ".odp": CategoryPresentation,
	".pdf": CategoryPDF,
	".png": CategoryImage, ".jpg": CategoryImage, ".jpeg": CategoryImage, ".gif": CategoryImage,
	".svg": CategoryImage, ".webp": CategoryImage, ".bmp": CategoryImage,
	".mp4": CategoryVideo, ".mov": CategoryVideo, ".avi": CategoryVideo, ".mkv": CategoryVideo,
	".webm": CategoryVideo,
	".mp3": CategoryAudio, ".wav": CategoryAudio, ".ogg": CategoryAudio, ".flac": CategoryAudio,
	".zip": CategoryArchive, ".rar": CategoryArchive, ".7z": CategoryArchive, ".tar": CategoryArchive,
	".gz": CategoryArchive,
	".go": CategoryCode, ".js": CategoryCode, ".ts": CategoryCode, ".py": CategoryCode,
	".java": CategoryCode, ".json": CategoryCode, ".yaml": CategoryCode, ".yml": CategoryCode,
	".html": CategoryCode, ".css": CategoryCode, ".sh": CategoryCode,
}

// CategoryFor определяет категорию по расширению имени файла,
// при неизвестном расширении — по MIME-типу.
func CategoryFor(name, contentType string) FileCategory {
	if c, ok := extensionCategories[strings.ToLower(path.Ext(name))]; ok {
		return c
	}

	mime := strings.ToLower(contentType)
	switch {
	case mime == "application/pdf":
		return CategoryPDF
	case strings.HasPrefix(mime, "image/"):
		return CategoryImage
	case strings.HasPrefix(mime, "video/"):
		return CategoryVideo
	case strings.HasPrefix(mime, "audio/"):
		return CategoryAudio
	case strings.HasPrefix(mime, "text/"):
		return CategoryDocument
	default:
		return CategoryOther
	}
}

// ActivityAction — тип действия в журнале активности файла.
type ActivityAction int

const (
	ActionOther ActivityAction = iota
	ActionUpload
	ActionDownload
	ActionView
	ActionShare
	ActionRename
	ActionMove
	ActionDelete
	ActionRestore
)

var activityActionNames = map[string]ActivityAction{
	"upload":   ActionUpload,
	"download": ActionDownload,
	"view":     ActionView,
	"share":    ActionShare,
	"rename":   ActionRename,
	"move":     ActionMove,
	"delete":   ActionDelete,
	"restore":  ActionRestore,
}

var activityActionDescriptors = map[ActivityAction]Descriptor{
	ActionOther:    {Label: "activity.action.other", Icon: "activity", Color: "text-gray"},
	ActionUpload:   {Label: "activity.action.upload", Icon: "upload", Color: "text-green"},
	ActionDownload: {Label: "activity.action.download", Icon: "download", Color: "text-blue"},
	ActionView:     {Label: "activity.action.view", Icon: "eye", Color: "text-slate"},
	ActionShare:    {Label: "activity.action.share", Icon: "share", Color: "text-purple"},
	ActionRename:   {Label: "activity.action.rename", Icon: "pencil", Color: "text-amber"},
	ActionMove:     {Label: "activity.action.move", Icon: "move", Color: "text-teal"},
	ActionDelete:   {Label: "activity.action.delete", Icon: "trash", Color: "text-red"},
	ActionRestore:  {Label: "activity.action.restore", Icon: "rotate-ccw", Color: "text-orange"},
}

// ParseActivityAction сопоставляет строку из API с типом действия.
// Неизвестные строки дают ActionOther.
func ParseActivityAction(s string) ActivityAction {
	if a, ok := activityActionNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return a
	}
	return ActionOther
}

// Descriptor возвращает параметры отображения действия.
func (a ActivityAction) Descriptor() Descriptor {
	if d, ok := activityActionDescriptors[a]; ok {
		return d
	}
	return activityActionDescriptors[ActionOther]
}
