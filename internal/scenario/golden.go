package scenario

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ascribe/internal/notebook"
)

// Summary renders a result as stable text: the step trace, per-device
// group counts, and the merged notebooks. Group ids and fingerprints are
// left out so the text only changes when behavior does.
func Summary(name string, res *Result) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "scenario: %s\n", name)
	fmt.Fprintf(&b, "pass: %t\n", res.Pass)
	for _, e := range res.Errors {
		fmt.Fprintf(&b, "error: %s\n", e)
	}

	b.WriteString("steps:\n")
	for _, ev := range res.Trace {
		op := ev.Op
		if ev.Kind != "" {
			op += " " + ev.Kind
		}
		fmt.Fprintf(&b, "  %d %s %s: %s\n", ev.Step, ev.Device, op, ev.Outcome)
	}

	b.WriteString("devices:\n")
	for _, d := range res.Devices {
		fmt.Fprintf(&b, "  %s groups=%d\n", d.Name, d.Groups)
	}
	fmt.Fprintf(&b, "converged: %t\n", res.Converged)
	fmt.Fprintf(&b, "order_independent: %t\n", res.OrderIndependent)
	fmt.Fprintf(&b, "merged_groups: %d\n", res.MergedGroups)

	for _, name := range res.Merged.Names() {
		writeNotebook(&b, name, res.Merged[name])
	}
	return []byte(b.String())
}

func writeNotebook(b *strings.Builder, name string, nb *notebook.Notebook) {
	fmt.Fprintf(b, "notebook %s:\n", name)

	for _, id := range sortedKeys(nb.HighlightCategories) {
		c := nb.HighlightCategories[id]
		fmt.Fprintf(b, "  category %s name=%q color=%s\n", id, c.Name, c.Color.Hex())
	}

	for _, id := range sortedKeys(nb.Notes) {
		n := nb.Notes[id]
		locs := make([]string, len(n.Locations))
		for i, l := range n.Locations {
			locs[i] = l.Chapter.String() + " " + l.Range.String()
		}
		fmt.Fprintf(b, "  note %s text=%q locations=[%s]\n", id, n.Text, strings.Join(locs, ", "))
	}

	for _, ch := range nb.AnnotatedChapters() {
		fmt.Fprintf(b, "  chapter %s\n", ch)
		words := nb.Annotations[ch]
		for _, idx := range sortedKeys(words) {
			w := words[idx]
			line := fmt.Sprintf("    word %d", idx)
			if len(w.Highlights) > 0 {
				line += " highlights=" + strings.Join(slices.Sorted(slices.Values(w.Highlights)), ",")
			}
			if len(w.Notes) > 0 {
				line += " notes=" + strings.Join(slices.Sorted(slices.Values(w.Notes)), ",")
			}
			b.WriteString(line + "\n")
		}
	}
}

func sortedKeys[K string | int, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// RunWithGolden executes a scenario and compares its summary against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/scenario -update
func RunWithGolden(t *testing.T, sc *Scenario) (*Result, error) {
	t.Helper()

	res, err := Run(context.Background(), sc)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, sc.Name, res)
	return res, nil
}

// AssertGolden compares an existing result's summary against its golden file.
func AssertGolden(t *testing.T, name string, res *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Summary(name, res))
}
