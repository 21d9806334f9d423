// export.go — выгрузка журнала активности в CSV и XLSX.
package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xuri/excelize/v2"

	"github.com/bigkaa/docvault/admin-module/internal/domain/model"
)

// ExportFormat — формат выгрузки.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ParseExportFormat проверяет формат выгрузки.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(s)) {
	case ExportCSV, "":
		return ExportCSV, nil
	case ExportXLSX:
		return ExportXLSX, nil
	default:
		return "", validationf("неизвестный формат выгрузки %q", s)
	}
}

var exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "da_activity_exports_total",
	Help: "Количество выгрузок журнала активности по формату и результату.",
}, []string{"format", "result"})

func exportResult(err error) string {
	if errors.Is(err, ErrNothingToExport) {
		return "empty"
	}
	return "error"
}

// Export — готовый файл выгрузки.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// activityHeader — заголовок таблицы выгрузки.
var activityHeader = []string{"Date", "Action", "User", "Email", "IP address", "Details"}

// BuildActivityExport формирует файл выгрузки. Пустой список — ErrNothingToExport.
func BuildActivityExport(acts []model.Activity, fileName string, format ExportFormat, f Formatter) (*Export, error) {
	if len(acts) == 0 {
		return nil, ErrNothingToExport
	}

	rows := make([][]string, 0, len(acts))
	for _, a := range acts {
		rows = append(rows, []string{
			f.FormatDateTime(a.CreatedAt),
			a.Action,
			a.UserName,
			a.UserEmail,
			a.IPAddress,
			a.Details,
		})
	}

	base := exportBaseName(fileName)
	switch format {
	case ExportXLSX:
		data, err := writeXLSX(rows)
		if err != nil {
			return nil, err
		}
		return &Export{
			Filename:    base + "-activity.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		data, err := writeCSV(rows)
		if err != nil {
			return nil, err
		}
		return &Export{
			Filename:    base + "-activity.csv",
			ContentType: "text/csv; charset=utf-8",
			Data:        data,
		}, nil
	}
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(activityHeader); err != nil {
		return nil, fmt.Errorf("запись заголовка CSV: %w", err)
	}
	for _, row := range rows {
		safe := make([]string, len(row))
		for i, cell := range row {
			safe[i] = neutralizeCSVCell(cell)
		}
		if err := w.Write(safe); err != nil {
			return nil, fmt.Errorf("запись CSV: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("запись CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// neutralizeCSVCell экранирует ячейку, которую табличный редактор
// принял бы за формулу.
func neutralizeCSVCell(cell string) string {
	if cell == "" {
		return cell
	}
	switch cell[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + cell
	}
	return cell
}

// В XLSX строки пишутся как текстовые ячейки и формулами не становятся.
func writeXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Activity"
	f.SetSheetName("Sheet1", sheet)

	if err := f.SetSheetRow(sheet, "A1", &activityHeader); err != nil {
		return nil, fmt.Errorf("запись заголовка XLSX: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return nil, fmt.Errorf("запись строки XLSX: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("формирование XLSX: %w", err)
	}
	return buf.Bytes(), nil
}

// exportBaseName — имя файла выгрузки без расширения и небезопасных символов.
func exportBaseName(fileName string) string {
	base := strings.TrimSuffix(path.Base(fileName), path.Ext(fileName))
	var b strings.Builder
	for _, r := range base {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if strings.Trim(b.String(), "_") == "" || base == "." || base == "/" {
		return "file"
	}
	return b.String()
}
