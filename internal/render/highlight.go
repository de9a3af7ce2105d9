package render

import (
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
)

// HighlightJSON writes data with terminal colors in the style of theme.
func HighlightJSON(w io.Writer, data []byte, theme Theme) error {
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	iterator, err := lexer.Tokenise(nil, string(data))
	if err != nil {
		return fmt.Errorf("tokenise json: %w", err)
	}
	if err := formatter.Format(w, theme.ChromaStyle(), iterator); err != nil {
		return fmt.Errorf("highlight json: %w", err)
	}
	return nil
}
