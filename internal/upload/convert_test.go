package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestToText_DecodesPlainText(t *testing.T) {
	t.Parallel()

	got, err := ToText("a.csv", []byte("\xef\xbb\xbfname\nJos\xc3\xa9\n"), "utf-8")
	require.NoError(t, err)
	assert.Equal(t, "name\nJosé\n", got)

	got, err = ToText("a.txt", []byte("name\nJos\xe9\n"), "latin1")
	require.NoError(t, err)
	assert.Equal(t, "name\nJosé\n", got)

	_, err = ToText("a.csv", []byte("x"), "no-such-encoding")
	assert.Error(t, err)
}

func TestHTMLTableText(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<p>intro</p>
<table>
  <tr><th>Name</th><th>City</th></tr>
  <tr><td> Ann </td><td>Oslo<table><tr><td>nested</td></tr></table></td></tr>
  <tr><td>Bob</td><td>Multi
line</td></tr>
</table>
<table><tr><td>second</td></tr></table>
</body></html>`

	got, err := HTMLTableText(html)
	require.NoError(t, err)
	assert.Equal(t, "Name\tCity\nAnn\tOslonested\nBob\tMulti line\n", got)

	empty, err := HTMLTableText("<p>no tables</p>")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestToText_HTML(t *testing.T) {
	t.Parallel()

	got, err := ToText("t.html", []byte("<table><tr><td>a</td><td>b</td></tr></table>"), "")
	require.NoError(t, err)
	assert.Equal(t, "a\tb\n", got)
}

func TestXLSXText(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"id", "name", "note"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{1, "Ann", "has\ttab"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{2, "Bob", "x"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := ToText("book.xlsx", buf.Bytes(), "")
	require.NoError(t, err)
	assert.Equal(t, "id\tname\tnote\n1\tAnn\thas tab\n2\tBob\tx\n", got)

	_, err = XLSXText([]byte("not a zip"))
	assert.Error(t, err)
}
