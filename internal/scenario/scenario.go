package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ascribe/internal/action"
	"github.com/roach88/ascribe/internal/bible"
)

// Scenario is a scripted multi-device session.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Bibles lists text files to load.
	Bibles []string `yaml:"bibles"`

	// Devices are the participating sessions, in clock order.
	Devices []string `yaml:"devices"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the final merge.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation by one device. Exactly one of Push, Commit, Sync
// and Restart is set.
type Step struct {
	Device string `yaml:"device"`

	// Push is an action in its JSON layout.
	Push any `yaml:"push,omitempty"`

	// Commit closes the device's open group.
	Commit bool `yaml:"commit,omitempty"`

	// Sync reconciles the device with the shared remote.
	Sync bool `yaml:"sync,omitempty"`

	// Restart persists the device's history and reopens it from storage.
	Restart bool `yaml:"restart,omitempty"`

	// ExpectError is the error code the step must fail with, if any.
	ExpectError string `yaml:"expect_error,omitempty"`

	action action.Action
}

// Step operations.
const (
	OpPush    = "push"
	OpCommit  = "commit"
	OpSync    = "sync"
	OpRestart = "restart"
)

// Op returns the operation the step performs, or "" if none or several
// are set.
func (s *Step) Op() string {
	var ops []string
	if s.Push != nil {
		ops = append(ops, OpPush)
	}
	if s.Commit {
		ops = append(ops, OpCommit)
	}
	if s.Sync {
		ops = append(ops, OpSync)
	}
	if s.Restart {
		ops = append(ops, OpRestart)
	}
	if len(ops) != 1 {
		return ""
	}
	return ops[0]
}

// Action returns the decoded push payload.
func (s *Step) Action() action.Action {
	return s.action
}

// Assertion checks the outcome of a scenario.
type Assertion struct {
	Type string `yaml:"type"`

	// Device selects one device; empty means the merged result.
	Device string `yaml:"device,omitempty"`

	Notebook string              `yaml:"notebook,omitempty"`
	ID       string              `yaml:"id,omitempty"`
	Chapter  *bible.ChapterIndex `yaml:"chapter,omitempty"`
	Words    []int               `yaml:"words,omitempty"`
	Count    int                 `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertConverged      = "converged"
	AssertGroupCount     = "group_count"
	AssertNoteExists     = "note_exists"
	AssertNoteAbsent     = "note_absent"
	AssertCategoryExists = "category_exists"
	AssertCategoryAbsent = "category_absent"
	AssertHighlighted    = "highlighted"
)

// Load reads and parses a scenario YAML file. Bible paths are resolved
// relative to the file. Unknown fields are rejected.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes a scenario, resolving bible paths against baseDir.
func Parse(data []byte, baseDir string) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, p := range sc.Bibles {
		if !filepath.IsAbs(p) && baseDir != "" {
			sc.Bibles[i] = filepath.Join(baseDir, p)
		}
	}

	if err := validate(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario %q: %w", sc.Name, err)
	}
	return &sc, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		sc, err := Load(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func validate(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if len(s.Devices) == 0 {
		return errors.New("devices list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}

	devices := make(map[string]bool, len(s.Devices))
	for _, d := range s.Devices {
		if d == "" {
			return errors.New("device names must be non-empty")
		}
		if devices[d] {
			return fmt.Errorf("duplicate device %q", d)
		}
		devices[d] = true
	}

	for i := range s.Steps {
		step := &s.Steps[i]
		if !devices[step.Device] {
			return fmt.Errorf("steps[%d]: unknown device %q", i, step.Device)
		}
		op := step.Op()
		if op == "" {
			return fmt.Errorf("steps[%d]: exactly one of push, commit, sync, restart is required", i)
		}
		if op == OpPush {
			a, err := decodePush(step.Push)
			if err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
			step.action = a
		}
		if step.ExpectError != "" && op != OpPush && op != OpSync {
			return fmt.Errorf("steps[%d]: expect_error only applies to push and sync", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, devices); err != nil {
			return err
		}
	}
	return nil
}

// decodePush converts a YAML action into an Action by way of its JSON
// layout.
func decodePush(raw any) (action.Action, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return action.Action{}, fmt.Errorf("push: %w", err)
	}
	var a action.Action
	if err := json.Unmarshal(data, &a); err != nil {
		return action.Action{}, fmt.Errorf("push: %w", err)
	}
	return a, nil
}

func validateAssertion(index int, a Assertion, devices map[string]bool) error {
	if a.Device != "" && !devices[a.Device] {
		return fmt.Errorf("assertions[%d]: unknown device %q", index, a.Device)
	}

	switch a.Type {
	case AssertConverged:
	case AssertGroupCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertNoteExists, AssertNoteAbsent, AssertCategoryExists, AssertCategoryAbsent:
		if a.Notebook == "" || a.ID == "" {
			return fmt.Errorf("assertions[%d]: notebook and id are required for %s", index, a.Type)
		}
	case AssertHighlighted:
		if a.Notebook == "" || a.ID == "" || a.Chapter == nil {
			return fmt.Errorf("assertions[%d]: notebook, id and chapter are required for highlighted", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
