package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ascribe/internal/bible"
	"github.com/roach88/ascribe/internal/notebook"
)

// NotebookStats counts what a notebook holds.
type NotebookStats struct {
	Name       string `json:"name"`
	Categories int    `json:"categories"`
	Notes      int    `json:"notes"`
	Chapters   int    `json:"chapters"`
	Words      int    `json:"words"`
}

func statsOf(name string, nb *notebook.Notebook) NotebookStats {
	s := NotebookStats{
		Name:       name,
		Categories: len(nb.HighlightCategories),
		Notes:      len(nb.Notes),
		Chapters:   len(nb.Annotations),
	}
	for _, words := range nb.Annotations {
		s.Words += len(words)
	}
	return s
}

func statsOfMap(m notebook.Map) []NotebookStats {
	stats := make([]NotebookStats, 0, len(m))
	for _, name := range m.Names() {
		stats = append(stats, statsOf(name, m[name]))
	}
	return stats
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [notebook]",
		Short: "Print notebooks",
		Long: `Without an argument, list the owner's notebooks. With a notebook name,
print its categories, notes and annotated words.

Words are printed with their text when the default text (--bible) is
loaded, or when exactly one text is loaded.

Examples:
  ascribe show
  ascribe show study --bible KJV --bibles kjv.txt
  ascribe show study --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runShow(cmd.Context(), rootOpts, name, cmd)
		},
	}
	return cmd
}

func runShow(ctx context.Context, opts *RootOptions, name string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	ws, err := opts.openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	h, err := ws.Handler(ctx, "")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load history", err)
	}

	if name == "" {
		var stats []NotebookStats
		h.View(func(m notebook.Map) { stats = statsOfMap(m) })
		return out.Success(stats, func(w io.Writer) {
			if len(stats) == 0 {
				fmt.Fprintf(w, "No notebooks for owner %s.\n", ws.Owner(""))
				return
			}
			for _, s := range stats {
				fmt.Fprintf(w, "%s: %d categories, %d notes, %d words in %d chapters\n",
					s.Name, s.Categories, s.Notes, s.Words, s.Chapters)
			}
		})
	}

	nb, ok := h.Notebook(name)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("notebook %q not found", name))
	}

	text := displayText(ws.Library(), opts.Config.DefaultBible)
	return out.Success(nb, func(w io.Writer) {
		writeNotebookText(w, name, nb, text)
	})
}

// displayText picks the text used to print words, or nil.
func displayText(lib bible.Library, preferred string) *bible.Bible {
	if b, ok := lib[preferred]; ok {
		return b
	}
	if len(lib) == 1 {
		for _, b := range lib {
			return b
		}
	}
	return nil
}

func writeNotebookText(w io.Writer, name string, nb *notebook.Notebook, text *bible.Bible) {
	fmt.Fprintf(w, "Notebook: %s\n", name)

	if len(nb.HighlightCategories) > 0 {
		fmt.Fprintln(w, "Categories:")
		for _, id := range slices.Sorted(maps.Keys(nb.HighlightCategories)) {
			c := nb.HighlightCategories[id]
			fmt.Fprintf(w, "  %s %s %q\n", id, c.Color.Hex(), c.Name)
		}
	}

	if len(nb.Notes) > 0 {
		fmt.Fprintln(w, "Notes:")
		for _, id := range slices.Sorted(maps.Keys(nb.Notes)) {
			n := nb.Notes[id]
			locs := make([]string, len(n.Locations))
			for i, l := range n.Locations {
				locs[i] = chapterLabel(text, l.Chapter) + " " + l.Range.String()
			}
			fmt.Fprintf(w, "  %s %q @ %s\n", id, n.Text, strings.Join(locs, "; "))
		}
	}

	for _, ch := range nb.AnnotatedChapters() {
		fmt.Fprintf(w, "%s:\n", chapterLabel(text, ch))
		words := nb.Annotations[ch]
		view := chapterView(text, ch)
		for _, idx := range slices.Sorted(maps.Keys(words)) {
			ann := words[idx]
			fmt.Fprintf(w, "  %s%s\n", wordLabel(text, ch, view, idx), annotationLabel(ann))
		}
	}
}

func chapterLabel(text *bible.Bible, ch bible.ChapterIndex) string {
	if text == nil || ch.Book < 0 || ch.Book >= len(text.Books) {
		return ch.String()
	}
	return fmt.Sprintf("%s %d", text.Books[ch.Book].Name, ch.Number+1)
}

func chapterView(text *bible.Bible, ch bible.ChapterIndex) bible.ChapterView {
	if text == nil {
		return nil
	}
	view, err := text.ChapterView(ch)
	if err != nil {
		return nil
	}
	return view
}

// wordLabel renders a flat index as "verse:word text", falling back to
// "#index" when the text is not available.
func wordLabel(text *bible.Bible, ch bible.ChapterIndex, view bible.ChapterView, flat int) string {
	verse, word, ok := locate(view, flat)
	if !ok {
		return fmt.Sprintf("#%d", flat)
	}
	c, err := text.Chapter(ch)
	if err != nil {
		return fmt.Sprintf("#%d", flat)
	}
	return fmt.Sprintf("%d:%d %s", verse+1, word+1, c.Verses[verse].Words[word].Text)
}

// locate converts a chapter-relative word index back to (verse, word).
func locate(view bible.ChapterView, flat int) (verse, word int, ok bool) {
	if flat < 0 {
		return 0, 0, false
	}
	for v, n := range view {
		if flat < n {
			return v, flat, true
		}
		flat -= n
	}
	return 0, 0, false
}

func annotationLabel(ann notebook.WordAnnotations) string {
	var b strings.Builder
	if len(ann.Highlights) > 0 {
		b.WriteString(" [" + strings.Join(ann.Highlights, ",") + "]")
	}
	if len(ann.Notes) > 0 {
		b.WriteString(" {" + strings.Join(ann.Notes, ",") + "}")
	}
	return b.String()
}
