package extract

import "strings"

type plainExtractor struct{}

func (plainExtractor) Extract(data []byte) (string, error) {
	return strings.TrimSpace(string(data)), nil
}

func init() {
	register("text/plain", plainExtractor{})
	register("text/csv", plainExtractor{})
}
