package uploadserver

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// ValidateContentType checks that the stored bytes match the declared
// content type by sniffing the first 512 bytes.
func ValidateContentType(reader io.Reader, declaredType string) error {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("read magic bytes: %w", err)
	}

	actualType := http.DetectContentType(buffer[:n])

	if !isContentTypeMatch(actualType, declaredType) {
		return fmt.Errorf("content type mismatch: declared=%s, detected=%s",
			declaredType, actualType)
	}

	return nil
}

func isContentTypeMatch(actual, declared string) bool {
	actual = normalizeMediaType(actual)
	declared = normalizeMediaType(declared)

	if actual == declared {
		return true
	}

	// Same major type is close enough (e.g. image/jpeg vs image/png
	// both sniff as image/*).
	if majorType(actual) == majorType(declared) {
		return true
	}

	// JSON and similar text formats sniff as text/plain.
	if declared == "application/json" && actual == "text/plain" {
		return true
	}

	return false
}

func normalizeMediaType(t string) string {
	mt, _, err := mime.ParseMediaType(t)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(t))
	}
	return mt
}

func majorType(t string) string {
	return strings.SplitN(t, "/", 2)[0]
}
