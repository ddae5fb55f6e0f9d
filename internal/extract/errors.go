package extract

import (
	"errors"
	"fmt"
)

// Error codes surfaced to API clients when extraction fails.
const (
	CodePDFParseFailed    = "PDF_PARSE_FAILED"
	CodeWordParseFailed   = "WORD_PARSE_FAILED"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodePDFScannedNoText  = "PDF_SCANNED_NO_TEXT"
	CodeTextTooShort      = "TEXT_TOO_SHORT"
)

// Error describes an extraction failure with an actionable suggestion.
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code, message, suggestion string, cause error) *Error {
	return &Error{Code: code, Message: message, Suggestion: suggestion, Err: cause}
}

// AsError returns the extraction error inside err, or nil.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
