// Package pdftest writes small, well-formed PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"
)

// GlyphWidth is the advance of every character of the embedded font, in
// thousandths of the font size.
const GlyphWidth = 600

// Escape quotes s for use in a PDF string literal.
func Escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// Lines returns a content stream which shows each line in 12pt Helvetica,
// starting at the top left of the page. Lines are positioned relative to
// each other with Td, the way TeX output does it.
func Lines(lines ...string) string {
	var sb strings.Builder

	sb.WriteString("BT\n/F1 12 Tf\n72 720 Td\n")

	for i, line := range lines {
		if i > 0 {
			sb.WriteString("0 -14 Td\n")
		}

		fmt.Fprintf(&sb, "(%s) Tj\n", Escape(line))
	}

	sb.WriteString("ET")

	return sb.String()
}

// Write creates a single page PDF at filename with the given content stream.
// The font resource is called /F1.
func Write(t testing.TB, filename, content string) {
	t.Helper()

	widths := strings.TrimSpace(strings.Repeat(fmt.Sprintf("%d ", GlyphWidth), 126-32+1))

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [" + widths + "] >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer

	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, 0, len(objects))

	for i, obj := range objects {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()

	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")

	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}

	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	err := os.WriteFile(filename, buf.Bytes(), 0600)
	if err != nil {
		t.Fatalf("writing %v: %v", filename, err)
	}
}
