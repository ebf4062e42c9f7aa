package extractor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ExtractTXT reads r line by line and joins the lines with newlines.
// Line terminators may be \n, \r\n or a bare \r; there is no line length
// limit.
func ExtractTXT(r io.Reader) (string, error) {
	br := bufio.NewReader(r)
	var sb strings.Builder
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			for _, part := range strings.Split(line, "\r") {
				sb.WriteString(part)
				sb.WriteString("\n")
			}
		}
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to read text: %w", err)
		}
	}
}
