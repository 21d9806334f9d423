package model

import (
	"testing"
	"time"
)

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		contentType string
		want        FileCategory
	}{
		{"docx", "report.docx", "", CategoryDocument},
		{"расширение в верхнем регистре", "TABLE.XLSX", "", CategorySpreadsheet},
		{"pdf", "scan.pdf", "", CategoryPDF},
		{"по MIME", "photo", "image/jpeg", CategoryImage},
		{"видео по MIME", "clip.bin", "video/mp4", CategoryVideo},
		{"неизвестное", "data.xyz", "application/octet-stream", CategoryOther},
		{"без расширения и MIME", "README", "", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategoryFor(tt.file, tt.contentType); got != tt.want {
				t.Errorf("CategoryFor(%q, %q) = %v, ожидается %v", tt.file, tt.contentType, got, tt.want)
			}
		})
	}
}

func TestFileCategoryDescriptor_Default(t *testing.T) {
	unknown := FileCategory(999)
	if unknown.Descriptor() != CategoryOther.Descriptor() {
		t.Errorf("неизвестная категория должна отображаться как other, получено %+v", unknown.Descriptor())
	}
	for c := CategoryOther; c <= CategoryCode; c++ {
		if c.Descriptor().Icon == "" {
			t.Errorf("категория %d без иконки", c)
		}
	}
}

func TestFileEntryCategory_Folder(t *testing.T) {
	f := FileEntry{Name: "docs.pdf", IsFolder: true}
	if f.Category() != CategoryFolder {
		t.Errorf("папка должна иметь категорию folder, получено %v", f.Category())
	}
}

func TestParseActivityAction(t *testing.T) {
	tests := []struct {
		in   string
		want ActivityAction
	}{
		{"upload", ActionUpload},
		{"DOWNLOAD", ActionDownload},
		{" delete ", ActionDelete},
		{"permissions_changed", ActionOther},
		{"", ActionOther},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseActivityAction(tt.in); got != tt.want {
				t.Errorf("ParseActivityAction(%q) = %v, ожидается %v", tt.in, got, tt.want)
			}
		})
	}

	if ActivityAction(42).Descriptor() != ActionOther.Descriptor() {
		t.Error("неизвестное действие должно отображаться как other")
	}
}

func TestEmailTemplateCanReset(t *testing.T) {
	if (&EmailTemplate{IsCustomized: false}).CanReset() {
		t.Error("CanReset() = true для непереопределённого шаблона")
	}
	if !(&EmailTemplate{IsCustomized: true}).CanReset() {
		t.Error("CanReset() = false для переопределённого шаблона")
	}
	var nilTpl *EmailTemplate
	if nilTpl.CanReset() {
		t.Error("CanReset() = true для nil")
	}
}

func TestFileRequestEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		req  FileRequest
		want FileRequestStatus
	}{
		{"активный без срока", FileRequest{Status: FileRequestActive}, FileRequestActive},
		{"активный со сроком в будущем", FileRequest{Status: FileRequestActive, ExpiresAt: &future}, FileRequestActive},
		{"активный с истёкшим сроком", FileRequest{Status: FileRequestActive, ExpiresAt: &past}, FileRequestExpired},
		{"отозванный с истёкшим сроком", FileRequest{Status: FileRequestRevoked, ExpiresAt: &past}, FileRequestRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.EffectiveStatus(now); got != tt.want {
				t.Errorf("EffectiveStatus() = %q, ожидается %q", got, tt.want)
			}
		})
	}
}

func TestParseVisibility(t *testing.T) {
	for _, s := range []string{"", "department", "private"} {
		if _, ok := ParseVisibility(s); !ok {
			t.Errorf("ParseVisibility(%q) должен быть допустим", s)
		}
	}
	if _, ok := ParseVisibility("public"); ok {
		t.Error("ParseVisibility(public) должен быть недопустим")
	}
}

func TestGlobalSettingsPatchApply(t *testing.T) {
	name := "Acme"
	mode := true
	s := GlobalSettingsPatch{CompanyName: &name, MaintenanceMode: &mode}.Apply(DefaultGlobalSettings())
	if s.CompanyName != "Acme" || !s.MaintenanceMode {
		t.Errorf("Apply() = %+v", s)
	}
	if s.DateFormat != DateFormatDMYSlash {
		t.Errorf("DateFormat изменён без указания в патче: %q", s.DateFormat)
	}
}

func TestUserDisplayName(t *testing.T) {
	u := User{Email: "a@b.c"}
	if u.DisplayName() != "a@b.c" {
		t.Errorf("DisplayName() = %q, ожидается email", u.DisplayName())
	}
	u.FirstName, u.LastName = "Иван", "Петров"
	if u.DisplayName() != "Иван Петров" {
		t.Errorf("DisplayName() = %q", u.DisplayName())
	}
}
