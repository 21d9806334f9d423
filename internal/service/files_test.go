package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

// utcFormatter — форматирование без учёта настроек арендатора.
type utcFormatter struct{}

func (utcFormatter) FormatDate(t time.Time) string     { return t.UTC().Format("2006-01-02") }
func (utcFormatter) FormatTime(t time.Time) string     { return t.UTC().Format("15:04") }
func (utcFormatter) FormatDateTime(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") }

func sampleActivity() []model.Activity {
	return []model.Activity{
		{ID: "a1", Action: "upload", UserName: "Анна", UserEmail: "anna@example.com", CreatedAt: fixedNow.Add(-2 * time.Hour)},
		{ID: "a2", Action: "download", UserName: "Олег, мл.", IPAddress: "10.0.0.1", CreatedAt: fixedNow},
	}
}

func TestExportActivity_Empty(t *testing.T) {
	b := newFakeBackend()
	svc := NewFileService(b, utcFormatter{}, time.Minute, testLogger())

	exp, err := svc.ExportActivity(context.Background(), "acme", "f1", "report.pdf", ExportCSV)
	if !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("ожидали ErrNothingToExport, получили %v", err)
	}
	if exp != nil {
		t.Error("для пустого журнала файл формироваться не должен")
	}
}

func TestExportActivity_CSV(t *testing.T) {
	b := newFakeBackend()
	b.activity = sampleActivity()
	svc := NewFileService(b, utcFormatter{}, time.Minute, testLogger())

	exp, err := svc.ExportActivity(context.Background(), "acme", "f1", "Q1 report.pdf", ExportCSV)
	if err != nil {
		t.Fatalf("ExportActivity: %v", err)
	}
	if exp.Filename != "Q1_report-activity.csv" {
		t.Errorf("Filename = %q", exp.Filename)
	}

	records, err := csv.NewReader(bytes.NewReader(exp.Data)).ReadAll()
	if err != nil {
		t.Fatalf("разбор CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("ожидали заголовок и 2 строки, получили %d", len(records))
	}
	// Новые записи первыми
	if records[1][1] != "download" || records[1][2] != "Олег, мл." {
		t.Errorf("первая строка: %v", records[1])
	}
	if records[2][0] != "2026-03-01 10:00" {
		t.Errorf("дата второй строки: %q", records[2][0])
	}
}

func TestExportActivity_CSVFormulaCells(t *testing.T) {
	acts := []model.Activity{
		{ID: "a1", Action: "upload", UserName: "=HYPERLINK(\"http://evil\")", Details: "+1", CreatedAt: fixedNow},
		{ID: "a2", Action: "download", UserName: "@SUM(A1)", Details: "-2 - ok", IPAddress: "10.0.0.1", CreatedAt: fixedNow},
	}
	exp, err := BuildActivityExport(acts, "report.pdf", ExportCSV, utcFormatter{})
	if err != nil {
		t.Fatalf("BuildActivityExport: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(exp.Data)).ReadAll()
	if err != nil {
		t.Fatalf("разбор CSV: %v", err)
	}
	checks := []struct{ got, want string }{
		{records[1][2], "'=HYPERLINK(\"http://evil\")"},
		{records[1][5], "'+1"},
		{records[2][2], "'@SUM(A1)"},
		{records[2][5], "'-2 - ok"},
		{records[2][4], "10.0.0.1"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("ячейка %q, ожидалось %q", c.got, c.want)
		}
	}
}

func TestExportActivity_XLSX(t *testing.T) {
	exp, err := BuildActivityExport(sampleActivity(), "report.pdf", ExportXLSX, utcFormatter{})
	if err != nil {
		t.Fatalf("BuildActivityExport: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(exp.Data))
	if err != nil {
		t.Fatalf("открытие XLSX: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Activity")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "Date" || rows[1][1] != "upload" {
		t.Errorf("неожиданное содержимое: %v", rows)
	}
}

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ExportFormat
		wantErr bool
	}{
		{"", ExportCSV, false},
		{"CSV", ExportCSV, false},
		{"xlsx", ExportXLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseExportFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseExportFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestExportBaseName(t *testing.T) {
	tests := map[string]string{
		"report.pdf":      "report",
		"../etc/passwd":   "passwd",
		"":                "file",
		"отчёт 2026.xlsx": "отчёт_2026",
		"archive.tar.gz":  "archive_tar",
		"***.pdf":         "file",
		"契約書.docx":        "契約書",
	}
	for in, want := range tests {
		if got := exportBaseName(in); got != want {
			t.Errorf("exportBaseName(%q) = %q, хотели %q", in, got, want)
		}
	}
}

func TestDepartmentsCache(t *testing.T) {
	b := newFakeBackend()
	b.departments = []model.Department{{ID: "2", Name: "Sales"}, {ID: "1", Name: "finance"}}
	svc := NewFileService(b, utcFormatter{}, 50*time.Millisecond, testLogger())
	ctx := context.Background()

	first, err := svc.Departments(ctx)
	if err != nil {
		t.Fatalf("Departments: %v", err)
	}
	if first[0].Name != "finance" {
		t.Errorf("ожидали сортировку по имени: %+v", first)
	}
	if _, err := svc.Departments(ctx); err != nil {
		t.Fatal(err)
	}
	if n := b.count("ListDepartments"); n != 1 {
		t.Errorf("повторный вызов должен браться из кэша, запросов: %d", n)
	}

	time.Sleep(100 * time.Millisecond)
	if _, err := svc.Departments(ctx); err != nil {
		t.Fatal(err)
	}
	if n := b.count("ListDepartments"); n != 2 {
		t.Errorf("после истечения TTL ожидали 2 запроса, получили %d", n)
	}
}

func TestListFiles(t *testing.T) {
	b := newFakeBackend()
	b.files = []model.FileEntry{
		{ID: "1", Name: "b.txt"},
		{ID: "2", Name: "Zeta", IsFolder: true},
		{ID: "3", Name: "a.txt"},
	}
	svc := NewFileService(b, utcFormatter{}, time.Minute, testLogger())

	if _, err := svc.List(context.Background(), " ", "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("ожидали ErrValidation без компании, получили %v", err)
	}

	list, err := svc.List(context.Background(), "acme", "", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := []string{list[0].ID, list[1].ID, list[2].ID}
	if got[0] != "2" || got[1] != "3" || got[2] != "1" {
		t.Errorf("порядок %v, ожидали папки первыми, затем по имени", got)
	}
}
