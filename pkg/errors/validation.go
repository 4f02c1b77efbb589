package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePageName validates a page name for use as an output file stem.
// Page names are written verbatim into file names, so anything that could
// escape the output directory or confuse the renderer is rejected:
//   - No empty names
//   - No control characters or null bytes
//   - No path separators (/ or \)
//   - No "." or ".." names
//   - Maximum length of 200 characters
func ValidatePageName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeDocumentParse, "page name cannot be empty")
	}

	if len(name) > 200 {
		return New(ErrCodeDocumentParse, "page name too long (max 200 characters): %q", name[:32]+"...")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeDocumentParse, "page name %q contains invalid control characters", name)
		}
	}

	if strings.ContainsAny(name, `/\`) {
		return New(ErrCodeDocumentParse, "page name %q contains path separators", name)
	}

	if name == "." || name == ".." {
		return New(ErrCodeDocumentParse, "page name %q is not a valid file name", name)
	}

	return nil
}

// formatRegex matches output format names accepted by the drawio CLI (png, svg, pdf, jpg, xml, vsdx).
var formatRegex = regexp.MustCompile(`^[a-z0-9]{2,5}$`)

// ValidateFormat validates an output format name.
func ValidateFormat(format string) error {
	if format == "" {
		return New(ErrCodeInvalidFormat, "format cannot be empty")
	}
	if !formatRegex.MatchString(format) {
		return New(ErrCodeInvalidFormat, "invalid format: %q", format)
	}
	return nil
}
