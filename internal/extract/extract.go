package extract

import (
	"fmt"
	"mime"
	"strings"

	appErr "github.com/docsage/docsage/internal/pkg/errors"
)

// Extractor turns one uploaded payload into plain text ready for chunking.
type Extractor interface {
	Extract(data []byte) (string, error)
}

var registry = map[string]Extractor{}

func register(contentType string, e Extractor) {
	registry[contentType] = e
}

// ForContentType resolves the extractor for a MIME type. Parameters such as
// charset are ignored. PDF and Office formats are expected to be converted
// to text or markdown upstream, so they report unsupported here.
func ForContentType(contentType string) (Extractor, error) {
	base := strings.ToLower(strings.TrimSpace(contentType))
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		base = parsed
	}
	e, ok := registry[base]
	if !ok {
		return nil, fmt.Errorf("%w: %s", appErr.ErrUnsupportedType, base)
	}
	return e, nil
}

// Supported lists the registered MIME types, for error messages and docs.
func Supported() []string {
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	return types
}
