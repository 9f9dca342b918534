package scenario

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ascribe/internal/bible"
	"github.com/roach88/ascribe/internal/notebook"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Index    int
	Type     string
	Target   string // "merged" or a device name
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertions[%d] %s (%s): expected %s, got %s", e.Index, e.Type, e.Target, e.Expected, e.Actual)
}

// evaluate checks every assertion and returns one message per failure.
func evaluate(res *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := check(res, i, a); err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func check(res *Result, index int, a Assertion) error {
	target := "merged"
	notebooks := res.Merged
	groups := res.MergedGroups
	if a.Device != "" {
		d, ok := res.device(a.Device)
		if !ok {
			return fmt.Errorf("assertions[%d]: unknown device %q", index, a.Device)
		}
		target, notebooks, groups = d.Name, d.Notebooks, d.Groups
	}

	fail := func(expected, actual string) error {
		return &AssertionError{Index: index, Type: a.Type, Target: target, Expected: expected, Actual: actual}
	}

	switch a.Type {
	case AssertConverged:
		if !res.Converged {
			return fail("all devices to hold the same history", describeGroups(res.Devices))
		}

	case AssertGroupCount:
		if groups != a.Count {
			return fail(fmt.Sprintf("%d groups", a.Count), fmt.Sprintf("%d groups", groups))
		}

	case AssertNoteExists, AssertNoteAbsent:
		nb := notebooks[a.Notebook]
		has := nb != nil && nb.HasNote(a.ID)
		if want := a.Type == AssertNoteExists; has != want {
			return fail(presence("note "+a.ID, want), presence("note "+a.ID, has))
		}

	case AssertCategoryExists, AssertCategoryAbsent:
		has := false
		if nb := notebooks[a.Notebook]; nb != nil {
			_, has = nb.Category(a.ID)
		}
		if want := a.Type == AssertCategoryExists; has != want {
			return fail(presence("category "+a.ID, want), presence("category "+a.ID, has))
		}

	case AssertHighlighted:
		got := highlightedWords(notebooks[a.Notebook], *a.Chapter, a.ID)
		want := slices.Sorted(slices.Values(a.Words))
		if !slices.Equal(got, want) {
			return fail(fmt.Sprintf("%s on words %v", a.ID, want), fmt.Sprintf("%v", got))
		}

	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func highlightedWords(nb *notebook.Notebook, chapter bible.ChapterIndex, id string) []int {
	words := []int{}
	if nb == nil {
		return words
	}
	for idx, w := range nb.Annotations[chapter] {
		if slices.Contains(w.Highlights, id) {
			words = append(words, idx)
		}
	}
	slices.Sort(words)
	return words
}

func presence(what string, present bool) string {
	if present {
		return what + " present"
	}
	return what + " absent"
}

func describeGroups(devices []DeviceState) string {
	parts := make([]string, len(devices))
	for i, d := range devices {
		parts[i] = fmt.Sprintf("%s=%d groups (%.8s)", d.Name, d.Groups, d.Fingerprint)
	}
	return strings.Join(parts, ", ")
}
