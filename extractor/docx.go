package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBody = "word/document.xml"

// ExtractDOCX returns the text runs of word/document.xml in document order.
// Every paragraph ends with a newline.
func ExtractDOCX(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read docx: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx archive: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("docx archive has no %s", docxBody)
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", docxBody, err)
	}
	defer rc.Close()

	var sb strings.Builder
	decoder := xml.NewDecoder(rc)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", docxBody, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "pPr", "rPr", "sectPr":
				// Formatting only. pPr holds <w:tabs><w:tab/> stop definitions.
				if err := decoder.Skip(); err != nil {
					return "", fmt.Errorf("failed to parse %s: %w", docxBody, err)
				}
			case "t":
				var text string
				if err := decoder.DecodeElement(&text, &el); err != nil {
					return "", fmt.Errorf("failed to decode text run: %w", err)
				}
				sb.WriteString(text)
			case "tab":
				sb.WriteString("\t")
			case "br", "cr":
				sb.WriteString("\n")
			}
		case xml.EndElement:
			if el.Name.Local == "p" {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String(), nil
}
