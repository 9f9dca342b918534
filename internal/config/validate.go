package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// loadSchema compiles the schema in a fresh context. A cue.Context is not
// safe for concurrent use, so contexts are never shared between calls.
func loadSchema() (*cue.Context, cue.Value, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, cue.Value{}, fmt.Errorf("compile config schema: %w", err)
	}
	return ctx, v.LookupPath(cue.ParsePath("#Config")), nil
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []Problem
}

// Problem is one schema violation.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = fmt.Sprintf("%s: %s", p.Field, p.Message)
	}
	return "invalid config: " + strings.Join(parts, "; ")
}

// Validate checks cfg against the embedded schema.
func Validate(cfg Config) error {
	ctx, def, err := loadSchema()
	if err != nil {
		return err
	}

	if cfg.Bibles == nil {
		cfg.Bibles = []string{}
	}
	data := ctx.Encode(cfg)
	if err := data.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := def.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return toValidationError(err)
	}
	return nil
}

func toValidationError(err error) error {
	var problems []Problem
	seen := make(map[Problem]bool)
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		p := Problem{
			Field:   strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		if p.Field == "" {
			p.Field = "config"
		}
		if !seen[p] {
			seen[p] = true
			problems = append(problems, p)
		}
	}
	if len(problems) == 0 {
		problems = []Problem{{Field: "config", Message: err.Error()}}
	}
	return &ValidationError{Problems: problems}
}
