package ops

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/hpungsan/glimpse/internal/record"
)

// ValidationEnv is the environment a validation rule is evaluated against.
type ValidationEnv struct {
	SelectedText      string `expr:"selectedText"`
	ScreenshotPath    string `expr:"screenshotPath"`
	ActiveViewContent string `expr:"activeViewContent"`
	HasText           bool   `expr:"hasText"`
	HasScreenshot     bool   `expr:"hasScreenshot"`
}

// ExprValidator compiles an expr rule such as
//
//	hasText ? true : "No text in clipboard"
//
// The payload passes when the rule yields true. A string result is the
// failure message; false yields a generic one. Conditions must be bool, so
// presence checks use hasText and hasScreenshot rather than the raw strings.
func ExprValidator(rule string) (Validator, error) {
	program, err := expr.Compile(rule, expr.Env(ValidationEnv{}))
	if err != nil {
		if strings.Contains(err.Error(), "used as condition") {
			return nil, fmt.Errorf("%w (conditions must be bool: test presence with hasText or hasScreenshot, or compare, e.g. selectedText != \"\")", err)
		}
		return nil, err
	}

	return func(p *Payload) error {
		env := ValidationEnv{
			SelectedText:      record.Deref(p.SelectedText),
			ScreenshotPath:    record.Deref(p.ScreenshotPath),
			ActiveViewContent: record.Deref(p.ActiveViewContent),
			HasText:           strings.TrimSpace(record.Deref(p.SelectedText)) != "",
			HasScreenshot:     p.ScreenshotPath != nil,
		}
		result, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("validation rule failed: %w", err)
		}
		switch v := result.(type) {
		case bool:
			if v {
				return nil
			}
		case string:
			if strings.TrimSpace(v) != "" {
				return stderrors.New(v)
			}
		}
		return stderrors.New("validation failed")
	}, nil
}
