// Package source reads post records from the files operators prepare and
// writes them back out once bodies were generated.
package source

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"blogposter/internal/post"

	"github.com/xuri/excelize/v2"
)

// Column headers of a record spreadsheet. Reading also accepts the English
// aliases in columnAliases.
const (
	ColumnTitle    = "제목"
	ColumnURL1     = "URL1"
	ColumnURL2     = "URL2"
	ColumnReferral = "referral_id"
	ColumnBody     = "내용"
	ColumnImages   = "이미지"
)

var columnAliases = map[string]string{
	"title":    ColumnTitle,
	"url1":     ColumnURL1,
	"url2":     ColumnURL2,
	"referral": ColumnReferral,
	"body":     ColumnBody,
	"content":  ColumnBody,
	"images":   ColumnImages,
}

// Headers is the column order written by WriteSpreadsheet for records with
// at most urls reference URLs. At least URL1 and URL2 are always present.
func Headers(urls int) []string {
	headers := []string{ColumnTitle, ColumnURL1, ColumnURL2}
	for n := 3; n <= urls; n++ {
		headers = append(headers, fmt.Sprintf("URL%d", n))
	}
	return append(headers, ColumnReferral, ColumnBody, ColumnImages)
}

var urlColumn = regexp.MustCompile(`^URL\d+$`)
var imageSeparator = regexp.MustCompile(`[;\n]+`)

func canonicalColumn(header string) string {
	header = strings.TrimSpace(header)
	if alias, ok := columnAliases[strings.ToLower(header)]; ok {
		return alias
	}
	if urlColumn.MatchString(strings.ToUpper(header)) {
		return strings.ToUpper(header)
	}
	return header
}

// ReadSpreadsheet reads the records of the named sheet, or the first sheet
// when sheet is empty. Rows without a title are skipped. URL columns are read
// in header order into ReferenceURLs.
func ReadSpreadsheet(path, sheet string) ([]post.Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := map[string]int{}
	var urlColumns []int
	for i, header := range rows[0] {
		name := canonicalColumn(header)
		if _, seen := columns[name]; seen {
			continue
		}
		columns[name] = i
		if urlColumn.MatchString(name) {
			urlColumns = append(urlColumns, i)
		}
	}
	if _, ok := columns[ColumnTitle]; !ok {
		return nil, fmt.Errorf("sheet %q has no %q column", sheet, ColumnTitle)
	}

	cell := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []post.Record
	for _, row := range rows[1:] {
		title := cell(row, ColumnTitle)
		if title == "" {
			continue
		}
		record := post.Record{
			Title:      title,
			Body:       cell(row, ColumnBody),
			ReferralID: cell(row, ColumnReferral),
		}
		for _, i := range urlColumns {
			if i < len(row) && strings.TrimSpace(row[i]) != "" {
				record.ReferenceURLs = append(record.ReferenceURLs, strings.TrimSpace(row[i]))
			}
		}
		record.Images = splitImages(cell(row, ColumnImages), filepath.Dir(path))
		records = append(records, record)
	}
	return records, nil
}

// splitImages splits an images cell on semicolons and newlines, relative
// paths are resolved against dir.
func splitImages(value, dir string) []string {
	var out []string
	for _, p := range imageSeparator.Split(value, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		out = append(out, p)
	}
	return out
}

// WriteSpreadsheet writes records to a new workbook at path with a single
// sheet using Headers, with one URL column per reference URL of the record
// that has the most.
func WriteSpreadsheet(path, sheet string, records []post.Record) error {
	if sheet == "" {
		sheet = "Sheet1"
	}

	f := excelize.NewFile()
	defer f.Close()

	err := f.SetSheetName("Sheet1", sheet)
	if err != nil {
		return err
	}

	urls := 2
	for _, r := range records {
		urls = max(urls, len(r.ReferenceURLs))
	}
	headers := Headers(urls)

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	err = f.SetSheetRow(sheet, "A1", &header)
	if err != nil {
		return err
	}

	for i, r := range records {
		row := make([]any, 0, len(headers))
		row = append(row, r.Title)
		for n := 0; n < urls; n++ {
			u := ""
			if n < len(r.ReferenceURLs) {
				u = r.ReferenceURLs[n]
			}
			row = append(row, u)
		}
		row = append(row, r.ReferralID, r.Body, strings.Join(r.Images, ";"))
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		err = f.SetSheetRow(sheet, cell, &row)
		if err != nil {
			return err
		}
	}

	err = styleSheet(f, sheet, len(headers))
	if err != nil {
		return err
	}
	return f.SaveAs(path)
}

func styleSheet(f *excelize.File, sheet string, columns int) error {
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return err
	}
	err = f.SetCellStyle(sheet, "A1", last, style)
	if err != nil {
		return err
	}
	err = f.SetColWidth(sheet, "A", "A", 50)
	if err != nil {
		return err
	}
	// body is the second to last column
	body, err := excelize.ColumnNumberToName(columns - 1)
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, body, body, 80)
}

// ResultPath is where a generated record set is written, named after the
// time it was produced.
func ResultPath(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("result_%s.xlsx", now.Format("20060102_150405")))
}
