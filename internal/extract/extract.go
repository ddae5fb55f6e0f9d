package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"cvforge-backend/internal/shared/storage/object"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDOC  = "application/msword"
	mimeText = "text/plain"

	// MinTextLength is the minimum number of characters a resume must
	// yield after normalization to be considered usable.
	MinTextLength = 50

	// sniffWindow bounds the search for a %PDF- signature. Some
	// generators emit a byte-order mark or junk before the header.
	sniffWindow = 1024
)

// FromStore retrieves a stored object and extracts normalized text from it.
// A derived .extracted.txt copy is persisted next to the original for
// debugging and reprocessing.
func FromStore(ctx context.Context, store object.ObjectStore, storageKey, mimeType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, err := store.Open(ctx, storageKey)
	if err != nil {
		return "", fmt.Errorf("extract key=%s mime=%s: %w", storageKey, mimeType, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract key=%s mime=%s: read: %w", storageKey, mimeType, err)
	}

	text, err := FromBytes(ctx, raw, mimeType, fileName)
	if err != nil {
		return "", err
	}

	extractedKey := storageKey + ".extracted.txt"
	if _, err := store.SaveWithKey(ctx, extractedKey, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return "", fmt.Errorf("extract key=%s: persist extracted text: %w", storageKey, err)
	}

	return text, nil
}

// FromBytes extracts normalized text from an in-memory payload. Content
// sniffing takes precedence over the declared mime type: a payload carrying
// a %PDF- signature is treated as a PDF regardless of what the client said.
func FromBytes(ctx context.Context, data []byte, mimeType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	format := resolveFormat(data, mimeType, fileName)
	switch format {
	case mimePDF:
		text, err = extractPDF(data)
	case mimeDOCX:
		text, err = extractDOCX(data)
	case mimeText:
		text = string(data)
	case mimeDOC:
		return "", newError(CodeUnsupportedFormat,
			"legacy .doc files are not supported",
			"Save the document as .docx or PDF and upload again.", nil)
	default:
		return "", newError(CodeUnsupportedFormat,
			fmt.Sprintf("unsupported file format: %s", cleanMime(mimeType)),
			"Upload a PDF, Word (.docx), or plain text resume.", nil)
	}
	if err != nil {
		return "", err
	}

	normalized := Normalize(text)
	if len(normalized) < MinTextLength {
		return "", shortTextError(format, normalized)
	}
	return normalized, nil
}

// shortTextError classifies an under-length extraction. Any PDF below the
// floor is reported as scanned, not merely short: image-only PDFs often
// yield a few stray characters rather than nothing at all.
func shortTextError(format, normalized string) error {
	if format == mimePDF {
		return newError(CodePDFScannedNoText,
			"the PDF contains almost no extractable text",
			"This file looks like a scanned image. Export a text-based PDF or paste the resume text directly.", nil)
	}
	return newError(CodeTextTooShort,
		fmt.Sprintf("extracted text is too short (%d chars, need %d)", len(normalized), MinTextLength),
		"The file produced almost no text. Check the document content and try again.", nil)
}

// resolveFormat decides which extractor handles the payload. The byte
// signature wins over the declared mime type, which wins over the file
// extension.
func resolveFormat(data []byte, mimeType, fileName string) string {
	if sniffPDF(data) {
		return mimePDF
	}
	if looksLikeZip(data) && hasDocxEntry(data) {
		return mimeDOCX
	}

	switch cleanMime(mimeType) {
	case mimePDF:
		return mimePDF
	case mimeDOCX, "application/zip":
		return mimeDOCX
	case mimeDOC:
		return mimeDOC
	case mimeText, "text/markdown":
		return mimeText
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return mimePDF
	case ".docx":
		return mimeDOCX
	case ".doc":
		return mimeDOC
	case ".txt", ".md":
		return mimeText
	}
	return cleanMime(mimeType)
}

func cleanMime(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}

func sniffPDF(data []byte) bool {
	window := data
	if len(window) > sniffWindow {
		window = window[:sniffWindow]
	}
	return bytes.Contains(window, []byte("%PDF-"))
}

func looksLikeZip(data []byte) bool {
	return len(data) >= 4 && data[0] == 'P' && data[1] == 'K'
}

func hasDocxEntry(data []byte) bool {
	return bytes.Contains(data, []byte("word/document.xml"))
}

// extractPDF reads PDF text with two strategies. The whole-document reader
// handles most files; if it fails or yields nothing, pages are read one at
// a time so a single corrupt page does not sink the rest.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = newError(CodePDFParseFailed,
				"the PDF could not be parsed",
				"The file may be corrupt or password-protected. Re-export it and upload again.",
				fmt.Errorf("pdf reader panic: %v", rec))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", newError(CodePDFParseFailed,
			"the PDF could not be parsed",
			"The file may be corrupt or password-protected. Re-export it and upload again.", err)
	}

	var wholeErr error
	if plain, perr := reader.GetPlainText(); perr != nil {
		wholeErr = perr
	} else {
		var buf bytes.Buffer
		if _, cerr := io.Copy(&buf, plain); cerr != nil {
			wholeErr = cerr
		} else if strings.TrimSpace(buf.String()) != "" {
			return buf.String(), nil
		}
	}

	return extractPDFByPage(reader, wholeErr)
}

// extractPDFByPage is the fallback strategy. When no page is readable and
// at least one page reported an error, the failure surfaces as a parse
// error carrying both the whole-document and per-page causes; a document
// whose pages read cleanly but hold no text falls through to the scanned
// classification instead.
func extractPDFByPage(reader *pdf.Reader, wholeErr error) (string, error) {
	var buf strings.Builder
	var pageErr error
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			pageErr = err
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(pageText)
	}
	if buf.Len() == 0 && pageErr != nil {
		cause := pageErr
		if wholeErr != nil {
			cause = fmt.Errorf("whole-document read: %v; per-page read: %w", wholeErr, pageErr)
		}
		return "", newError(CodePDFParseFailed,
			"the PDF could not be parsed",
			"The file may be corrupt or password-protected. Re-export it and upload again.", cause)
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", newError(CodeWordParseFailed,
			"the Word document could not be parsed",
			"The file appears to be empty. Re-save it and upload again.", nil)
	}

	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", newError(CodeWordParseFailed,
			"the Word document could not be parsed",
			"The file may be corrupt or not a real .docx. Re-save it and upload again.", err)
	}
	defer doc.Close()

	return flattenDocxXML(doc.Editable().GetContent()), nil
}

// flattenDocxXML strips WordprocessingML markup, emitting a newline at
// paragraph and line-break boundaries.
func flattenDocxXML(raw string) string {
	var buf strings.Builder
	inTag := false
	tagName := strings.Builder{}
	for _, r := range raw {
		switch {
		case r == '<':
			inTag = true
			tagName.Reset()
		case r == '>':
			inTag = false
			name := strings.TrimRight(strings.TrimSpace(tagName.String()), "/")
			if name == "/w:p" || name == "w:br" {
				if buf.Len() > 0 {
					buf.WriteByte('\n')
				}
			}
		case inTag:
			if tagName.Len() < 8 {
				tagName.WriteRune(r)
			}
		default:
			buf.WriteRune(r)
		}
	}
	return decodeXMLEntities(buf.String())
}

func decodeXMLEntities(s string) string {
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
	return replacer.Replace(s)
}
