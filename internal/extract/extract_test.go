package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/docsage/docsage/internal/pkg/errors"
)

func TestForContentType_Plain(t *testing.T) {
	e, err := ForContentType("text/plain")
	require.NoError(t, err)
	out, err := e.Extract([]byte("  hello\n"))
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestForContentType_IgnoresCharsetParameter(t *testing.T) {
	_, err := ForContentType("text/plain; charset=utf-8")
	require.NoError(t, err)
}

func TestForContentType_Unsupported(t *testing.T) {
	_, err := ForContentType("application/pdf")
	require.ErrorIs(t, err, appErr.ErrUnsupportedType)
}

func TestMarkdownExtract_StripsMarkup(t *testing.T) {
	e, err := ForContentType("text/markdown")
	require.NoError(t, err)

	src := "# Title\n\nSome **bold** text with a [link](https://example.com).\n\n- item one\n- item two\n"
	out, err := e.Extract([]byte(src))
	require.NoError(t, err)

	require.Contains(t, out, "Title")
	require.Contains(t, out, "Some bold text with a link.")
	require.Contains(t, out, "- item one")
	require.NotContains(t, out, "**")
	require.NotContains(t, out, "https://example.com")
	require.NotContains(t, out, "#")
}

func TestMarkdownExtract_KeepsCodeBlockContent(t *testing.T) {
	e, err := ForContentType("text/markdown")
	require.NoError(t, err)

	src := "para\n\n```go\nfunc main() {}\n```\n"
	out, err := e.Extract([]byte(src))
	require.NoError(t, err)
	require.Contains(t, out, "func main() {}")
	require.NotContains(t, out, "```")
}
