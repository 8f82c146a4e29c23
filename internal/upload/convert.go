package upload

import (
	"bytes"
	"fmt"
	"strings"

	"sherlouk/internal/decode"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"
)

var cellFlattener = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

// ToText converts an upload to delimited text. Spreadsheets and HTML
// tables become tab-separated lines; everything else is decoded with the
// named encoding.
func ToText(name string, data []byte, encoding string) (string, error) {
	switch Ext(name) {
	case ".xlsx":
		return XLSXText(data)
	case ".html", ".htm":
		html, err := decode.Text(data, encoding)
		if err != nil {
			return "", err
		}
		return HTMLTableText(html)
	default:
		return decode.Text(data, encoding)
	}
}

// XLSXText renders the first sheet of a workbook as tab-separated lines.
func XLSXText(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	defer func() { _ = rows.Close() }()

	var b strings.Builder
	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheets[0], err)
		}
		writeTabLine(&b, cells)
	}
	if err := rows.Error(); err != nil {
		return "", fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return b.String(), nil
}

// HTMLTableText renders the first <table> in html as tab-separated lines,
// one per <tr>, reading both th and td cells.
func HTMLTableText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return "", nil
	}

	var b strings.Builder
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// Skip rows of nested tables.
		if tr.Closest("table").Get(0) != table.Get(0) {
			return
		}
		var cells []string
		tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		writeTabLine(&b, cells)
	})
	return b.String(), nil
}

func writeTabLine(b *strings.Builder, cells []string) {
	for i, c := range cells {
		if i > 0 {
			b.WriteByte('\t')
		}
		b.WriteString(cellFlattener.Replace(c))
	}
	b.WriteByte('\n')
}
