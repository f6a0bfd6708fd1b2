package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/remiges-tech/khoj"
	"github.com/remiges-tech/khoj/gurmukhi"
	"github.com/remiges-tech/khoj/highlight"
	"github.com/remiges-tech/khoj/query"
)

// Color palette
const (
	colorSaffron  = "214"
	colorWhite    = "255"
	colorGray     = "245"
	colorDarkGray = "240"
)

// pageName is the word citations use for a page of the source.
const pageName = "Ang"

// styles holds the styles used to print results.
type styles struct {
	Header          lipgloss.Style
	Gurmukhi        lipgloss.Style
	Transliteration lipgloss.Style
	Translation     lipgloss.Style
	Citation        lipgloss.Style
	Match           lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Header:          lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorWhite)),
		Gurmukhi:        lipgloss.NewStyle().Foreground(lipgloss.Color(colorWhite)),
		Transliteration: lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Translation:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Citation:        lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(colorDarkGray)),
		Match:           lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorSaffron)),
	}
}

func noColorStyles() styles {
	return styles{
		Header:          lipgloss.NewStyle(),
		Gurmukhi:        lipgloss.NewStyle(),
		Transliteration: lipgloss.NewStyle(),
		Translation:     lipgloss.NewStyle(),
		Citation:        lipgloss.NewStyle(),
		Match:           lipgloss.NewStyle(),
	}
}

// renderer prints search results with the matched words highlighted. Without
// color the match is bracketed instead.
type renderer struct {
	styles   styles
	plain    bool
	language string
}

// newRenderer picks colored output when w is a terminal and color is not
// disabled by flag or NO_COLOR. An empty language selects khoj.DefaultLanguage.
func newRenderer(w io.Writer, noColor bool, language string) *renderer {
	if language == "" {
		language = khoj.DefaultLanguage
	}
	if noColor || detectNoColor() || !isTTY(w) {
		return &renderer{styles: noColorStyles(), plain: true, language: language}
	}
	return &renderer{styles: defaultStyles(), language: language}
}

// isTTY checks if a stream is a terminal.
func isTTY(stream any) bool {
	if f, ok := stream.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// detectNoColor checks if the NO_COLOR environment variable is set.
func detectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// results writes a header line followed by every record.
func (r *renderer) results(w io.Writer, q query.SearchQuery, records []khoj.LineRecord) {
	header := fmt.Sprintf("%d results for %q (%s)", len(records), q.String(), q.Mode)
	if len(records) == 1 {
		header = fmt.Sprintf("1 result for %q (%s)", q.String(), q.Mode)
	}
	_, _ = fmt.Fprintln(w, r.styles.Header.Render(header))

	for i, rec := range records {
		_, _ = fmt.Fprint(w, r.record(i+1, rec, q))
	}
}

// record formats one numbered record. The Gurmukhi is shown in Unicode and,
// like the transliteration, has the matched words highlighted.
func (r *renderer) record(n int, rec khoj.LineRecord, q query.SearchQuery) string {
	hl := highlight.ForLine(rec.Gurmukhi, q)

	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "%3d. %s\n", n, r.span(hl(gurmukhi.ToUnicode(rec.Gurmukhi)), r.styles.Gurmukhi))

	if t := rec.Transliteration(r.language); t != "" {
		_, _ = fmt.Fprintf(&b, "     %s\n", r.span(hl(t), r.styles.Transliteration))
	}
	if t := rec.Translation(r.language); t != "" {
		_, _ = fmt.Fprintf(&b, "     %s\n", r.styles.Translation.Render(t))
	}
	if c := rec.Citation(pageName); c != "" {
		_, _ = fmt.Fprintf(&b, "     %s\n", r.styles.Citation.Render(c))
	}

	return b.String()
}

// span joins the parts of s, styling the match.
func (r *renderer) span(s highlight.Span, base lipgloss.Style) string {
	var b strings.Builder

	if s.Before != "" {
		b.WriteString(base.Render(s.Before))
	}
	if s.Matched() {
		match := strings.TrimSuffix(s.Match, " ")
		if r.plain {
			match = "[" + match + "]"
		}
		b.WriteString(r.styles.Match.Render(match))
		if strings.HasSuffix(s.Match, " ") {
			b.WriteByte(' ')
		}
	}
	if s.After != "" {
		b.WriteString(base.Render(s.After))
	}

	return b.String()
}
