package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName       = "Signups"
	timestampLayout = "2006-01-02 15:04:05"
	filenamePrefix  = "sa_signups_export_"
)

var Header = []string{
	"Timestamp",
	"Name",
	"Email",
	"Shift 1 Name",
	"Shift 1 Availability",
	"Shift 2 Name",
	"Shift 2 Availability",
}

// 姓名和班次名称这几列无论内容如何都加引号
var alwaysQuoted = map[int]bool{1: true, 3: true, 5: true}

type Exporter struct {
	catalog  *domain.Catalog
	location *time.Location
}

func NewExporter(catalog *domain.Catalog, location *time.Location) *Exporter {
	if location == nil {
		location = time.UTC
	}
	return &Exporter{
		catalog:  catalog,
		location: location,
	}
}

// Rows 把报名转换成导出用的行，不包含表头
func (e *Exporter) Rows(signups []*domain.Signup) [][]string {
	rows := make([][]string, 0, len(signups))
	for _, s := range signups {
		timestamp := "N/A"
		if !s.Timestamp.IsZero() {
			timestamp = s.Timestamp.In(e.location).Format(timestampLayout)
		}

		row := []string{timestamp, s.Name, s.Email}
		for i := range domain.RequiredSelections {
			if i >= len(s.SelectedShifts) {
				row = append(row, "", "")
				continue
			}
			shift := s.SelectedShifts[i]
			slotName := ""
			if slot, ok := e.catalog.Get(shift.ShiftID); ok {
				slotName = slot.Name
			}
			row = append(row, slotName, string(shift.Availability))
		}

		rows = append(rows, row)
	}
	return rows
}

func (e *Exporter) CSV(signups []*domain.Signup) []byte {
	lines := make([]string, 0, len(signups)+1)
	lines = append(lines, strings.Join(Header, ","))

	for _, row := range e.Rows(signups) {
		fields := make([]string, len(row))
		for i, field := range row {
			fields[i] = quoteField(field, alwaysQuoted[i])
		}
		lines = append(lines, strings.Join(fields, ","))
	}

	return []byte(strings.Join(lines, "\n"))
}

func quoteField(field string, force bool) string {
	if !force && !strings.ContainsAny(field, ",\"\r\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func (e *Exporter) XLSX(signups []*domain.Signup) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#C7D2FE"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	rows := append([][]string{Header}, e.Rows(signups)...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, err
		}
	}

	lastHeader, _ := excelize.CoordinatesToCellName(len(Header), 1)
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "A", "G", 24); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("写入 Excel 失败: %w", err)
	}

	return buf, nil
}

// Filename 文件名中包含导出当天的日期
func (e *Exporter) Filename(ext string, now time.Time) string {
	return filenamePrefix + now.In(e.location).Format("2006-01-02") + "." + ext
}
