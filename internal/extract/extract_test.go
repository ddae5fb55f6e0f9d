package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
)

const sampleResume = `Jane Doe
jane.doe@example.com | +1 555 0100 | Berlin

Senior platform engineer with ten years of experience building
distributed ingestion pipelines and storage systems.`

func TestFromBytesPlainText(t *testing.T) {
	got, err := FromBytes(context.Background(), []byte(sampleResume), "text/plain", "resume.txt")
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if !strings.Contains(got, "Jane Doe") {
		t.Fatalf("expected resume content, got %q", got)
	}
}

func TestFromBytesTooShort(t *testing.T) {
	_, err := FromBytes(context.Background(), []byte("too short"), "text/plain", "resume.txt")
	e := AsError(err)
	if e == nil {
		t.Fatalf("expected extraction error, got %v", err)
	}
	if e.Code != CodeTextTooShort {
		t.Fatalf("expected %s, got %s", CodeTextTooShort, e.Code)
	}
	if e.Suggestion == "" {
		t.Fatal("expected a suggestion")
	}
}

func TestFromBytesExactly50CharsAccepted(t *testing.T) {
	text := strings.Repeat("a", 50)
	got, err := FromBytes(context.Background(), []byte(text), "text/plain", "resume.txt")
	if err != nil {
		t.Fatalf("FromBytes at threshold: %v", err)
	}
	if got != text {
		t.Fatalf("expected text unchanged, got %q", got)
	}
}

func TestFromBytes49CharsRejected(t *testing.T) {
	_, err := FromBytes(context.Background(), []byte(strings.Repeat("a", 49)), "text/plain", "resume.txt")
	e := AsError(err)
	if e == nil || e.Code != CodeTextTooShort {
		t.Fatalf("expected %s below threshold, got %v", CodeTextTooShort, err)
	}
}

func TestPDFSignatureBeatsDeclaredMime(t *testing.T) {
	// Payload claims to be plain text but carries a PDF signature. It must
	// be routed to the PDF extractor, which fails on the garbage body.
	payload := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("x"), 200)...)
	_, err := FromBytes(context.Background(), payload, "text/plain", "resume.txt")
	e := AsError(err)
	if e == nil {
		t.Fatalf("expected extraction error, got %v", err)
	}
	if e.Code != CodePDFParseFailed {
		t.Fatalf("expected %s for a body with no xref, got %s", CodePDFParseFailed, e.Code)
	}
}

// minimalPDF assembles a one-page document around the given content stream
// object, computing the cross-reference offsets as it writes.
func minimalPDF(streamDict, streamBody string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("%s\nstream\n%s\nendstream", streamDict, streamBody),
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefPos)
	return buf.Bytes()
}

func pdfWithText(text string) []byte {
	body := fmt.Sprintf("BT /F1 12 Tf (%s) Tj ET", text)
	return minimalPDF(fmt.Sprintf("<< /Length %d >>", len(body)), body)
}

func TestPDFTextExtracted(t *testing.T) {
	text := "Jane Doe, platform engineer with ten years of experience"
	got, err := FromBytes(context.Background(), pdfWithText(text), "application/pdf", "resume.pdf")
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if !strings.Contains(got, "Jane Doe") {
		t.Fatalf("expected extracted text, got %q", got)
	}
}

func TestScannedPDFShortTextReportsScanned(t *testing.T) {
	// A valid PDF whose entire text layer is a few stray characters, the
	// typical residue of a scanned document. The short-text floor must
	// classify it as scanned, not merely short.
	_, err := FromBytes(context.Background(), pdfWithText("Short CV"), "application/pdf", "scan.pdf")
	e := AsError(err)
	if e == nil {
		t.Fatalf("expected extraction error, got %v", err)
	}
	if e.Code != CodePDFScannedNoText {
		t.Fatalf("expected %s, got %s", CodePDFScannedNoText, e.Code)
	}
	if e.Suggestion == "" {
		t.Fatal("expected a suggestion")
	}
}

func TestPDFUnreadablePagesReportParseFailure(t *testing.T) {
	// The content stream declares a filter the reader cannot decode, so
	// both the whole-document and per-page strategies fail. The surfaced
	// error must carry both causes.
	body := "x"
	doc := minimalPDF(fmt.Sprintf("<< /Length %d /Filter /JPXDecode >>", len(body)), body)
	_, err := FromBytes(context.Background(), doc, "application/pdf", "resume.pdf")
	e := AsError(err)
	if e == nil || e.Code != CodePDFParseFailed {
		t.Fatalf("expected %s, got %v", CodePDFParseFailed, err)
	}
	if !strings.Contains(err.Error(), "whole-document read") || !strings.Contains(err.Error(), "per-page read") {
		t.Fatalf("expected both failure causes in the error, got %q", err.Error())
	}
}

func TestPDFSignatureFoundPastLeadingJunk(t *testing.T) {
	payload := append(bytes.Repeat([]byte{0xEF}, 100), []byte("%PDF-1.4 junk")...)
	if !sniffPDF(payload) {
		t.Fatal("expected signature within sniff window to be found")
	}
	far := append(bytes.Repeat([]byte("x"), sniffWindow+1), []byte("%PDF-1.4")...)
	if sniffPDF(far) {
		t.Fatal("expected signature past sniff window to be ignored")
	}
}

func TestLegacyDocRejected(t *testing.T) {
	_, err := FromBytes(context.Background(), []byte("old binary format"), "application/msword", "resume.doc")
	e := AsError(err)
	if e == nil || e.Code != CodeUnsupportedFormat {
		t.Fatalf("expected %s, got %v", CodeUnsupportedFormat, err)
	}
}

func TestUnknownFormatRejected(t *testing.T) {
	_, err := FromBytes(context.Background(), []byte("GIF89a..."), "image/gif", "photo.gif")
	e := AsError(err)
	if e == nil || e.Code != CodeUnsupportedFormat {
		t.Fatalf("expected %s, got %v", CodeUnsupportedFormat, err)
	}
}

func TestPlainZipWithoutDocumentXMLRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err = FromBytes(context.Background(), buf.Bytes(), "application/octet-stream", "notes.zip")
	e := AsError(err)
	if e == nil || e.Code != CodeUnsupportedFormat {
		t.Fatalf("expected %s for plain zip, got %v", CodeUnsupportedFormat, err)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	in := "Line one\t\tword\r\nLine   two\r\n\r\n\r\n\r\nLine three  "
	want := "Line one word\nLine two\n\nLine three"
	if got := Normalize(in); got != want {
		t.Fatalf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalizeStripsControlChars(t *testing.T) {
	in := "abc\x00\x01def\nkeep\ttab"
	got := Normalize(in)
	if strings.ContainsAny(got, "\x00\x01") {
		t.Fatalf("control chars survived: %q", got)
	}
	if !strings.Contains(got, "abcdef") {
		t.Fatalf("expected surrounding text to survive, got %q", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		sampleResume,
		"a  b\r\nc\r\n\r\n\r\n\r\nd",
		"\t\tindented\n\n\n\n\nend\n",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestFlattenDocxXML(t *testing.T) {
	raw := `<w:document><w:body><w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Engineer &amp; Builder</w:t></w:r></w:p></w:body></w:document>`
	got := flattenDocxXML(raw)
	if !strings.Contains(got, "Jane Doe\n") {
		t.Fatalf("expected paragraph break after name, got %q", got)
	}
	if !strings.Contains(got, "Engineer & Builder") {
		t.Fatalf("expected decoded entity, got %q", got)
	}
}
