package extractor

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Itish41/DocIntel/apperrors"
)

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`))
	require.NoError(t, err)
	if body != "" {
		w, err = zw.Create(docxBody)
		require.NoError(t, err)
		_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func buildXLSX(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Qty"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Widget"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 3))
	_, err := f.NewSheet("Second")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Second", "A1", "Other"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// buildPDF writes a single page PDF with a correct cross-reference table.
func buildPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractTXT(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "single line without newline", input: "hello", want: "hello\n"},
		{name: "unix lines", input: "a\nb\n", want: "a\nb\n"},
		{name: "windows lines", input: "a\r\nb\r\n", want: "a\nb\n"},
		{name: "classic mac lines", input: "a\rb", want: "a\nb\n"},
		{name: "mixed terminators", input: "a\r\nb\rc\nd\r", want: "a\nb\nc\nd\n"},
		{name: "blank bare cr lines kept", input: "a\r\rb", want: "a\n\nb\n"},
		{name: "blank lines kept", input: "a\n\nb", want: "a\n\nb\n"},
		{name: "long line", input: strings.Repeat("x", 100_000), want: strings.Repeat("x", 100_000) + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractTXT(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractDOCX(t *testing.T) {
	body := `<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> world</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Col1</w:t><w:tab/><w:t>Col2</w:t><w:br/><w:t>Next</w:t></w:r></w:p>`

	got, err := ExtractDOCX(bytes.NewReader(buildDOCX(t, body)))
	require.NoError(t, err)
	assert.Equal(t, "Hello world\nCol1\tCol2\nNext\n", got)
}

func TestExtractDOCX_IgnoresTabStopDefinitions(t *testing.T) {
	body := `<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/><w:tab w:val="right" w:pos="9360"/></w:tabs></w:pPr>` +
		`<w:r><w:rPr><w:b/></w:rPr><w:t>Name</w:t><w:tab/><w:t>Value</w:t></w:r></w:p>` +
		`<w:sectPr><w:pgSz w:w="12240"/></w:sectPr>`

	got, err := ExtractDOCX(bytes.NewReader(buildDOCX(t, body)))
	require.NoError(t, err)
	assert.Equal(t, "Name\tValue\n", got)
}

func TestExtractDOCX_Errors(t *testing.T) {
	_, err := ExtractDOCX(bytes.NewReader(buildDOCX(t, "")))
	assert.ErrorContains(t, err, docxBody)

	_, err = ExtractDOCX(strings.NewReader("not a zip archive"))
	assert.Error(t, err)

	got, err := ExtractDOCX(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtractXLSX(t *testing.T) {
	got, err := ExtractXLSX(bytes.NewReader(buildXLSX(t)))
	require.NoError(t, err)
	assert.Equal(t, "Name Qty \nWidget 3 \nOther \n", got)

	got, err = ExtractXLSX(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtractPDF(t *testing.T) {
	got, err := ExtractPDF(bytes.NewReader(buildPDF("Hello PDF")))
	require.NoError(t, err)
	assert.Contains(t, got, "Hello PDF")

	got, err = ExtractPDF(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ExtractPDF(strings.NewReader("garbage that is not a pdf"))
	assert.Error(t, err)
}

func TestRegistry_For(t *testing.T) {
	reg := NewRegistry()
	tests := []struct {
		path string
		ok   bool
	}{
		{"docs/report.PDF", true},
		{"a_b.docx", true},
		{"sheet.XLSX", true},
		{"notes.txt", true},
		{"legacy.doc", false},
		{"notes.rtf", false},
		{"README", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, ok := reg.For(tt.path)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestRegistry_Extract(t *testing.T) {
	reg := NewRegistry()

	t.Run("unsupported extension yields empty text", func(t *testing.T) {
		got, err := reg.Extract("x.rtf", strings.NewReader("{\\rtf1 hi}"))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("dispatch is case insensitive", func(t *testing.T) {
		got, err := reg.Extract("NOTES.TXT", strings.NewReader("hi"))
		require.NoError(t, err)
		assert.Equal(t, "hi\n", got)
	})

	t.Run("parse error becomes extraction failure", func(t *testing.T) {
		_, err := reg.Extract("broken.docx", strings.NewReader("nope"))
		assert.True(t, errors.Is(err, apperrors.ErrExtractionFailure))
	})

	t.Run("panic becomes extraction failure", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register("BOOM", Func(func(io.Reader) (string, error) { panic("bad table") }))
		_, err := reg.Extract("f.boom", strings.NewReader("x"))
		assert.True(t, errors.Is(err, apperrors.ErrExtractionFailure))
		assert.ErrorContains(t, err, "bad table")
	})
}
