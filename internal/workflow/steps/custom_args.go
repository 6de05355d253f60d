package steps

import (
	"context"
	"strings"

	"github.com/google/shlex"

	"github.com/forgelabs/appforge/internal/models"
	"github.com/forgelabs/appforge/internal/workflow"
)

// TypeCustomArgs identifies the custom arguments step.
const TypeCustomArgs = "custom_args"

var customArgsDescriptor = workflow.Descriptor{
	Type:        TypeCustomArgs,
	DisplayName: "Custom Arguments",
	Description: "Add custom arguments to the build/run command",
	Icon:        "Terminal",
	Category:    "build",
	ConfigFields: []workflow.ConfigField{
		{
			Name:        "arguments",
			Label:       "Arguments",
			Kind:        workflow.FieldTextarea,
			Description: "Arguments to append to the command (space or newline separated)",
			Placeholder: "--obfuscate\n--dart-define=FLAVOR=prod\n--split-debug-info=build/debug",
		},
	},
}

// customArgsStep parses a free-text argument blob into an argument list.
// The step itself is inert: the parsed arguments sit in its result output
// and are harvested by the pipeline owner, which appends them to the
// toolchain command.
type customArgsStep struct {
	base
}

func newCustomArgsStep(config map[string]any, log workflow.LogFunc) workflow.Step {
	return &customArgsStep{base: newBase(config, log)}
}

func (s *customArgsStep) Validate() error {
	// No required fields.
	return nil
}

func (s *customArgsStep) Execute(_ context.Context, _ *workflow.Context) workflow.Result {
	args := ParseArguments(s.str("arguments"))

	if len(args) > 0 {
		s.log("Custom arguments: "+strings.Join(args, " "), models.LogLevelInfo)
	} else {
		s.log("No custom arguments configured", models.LogLevelInfo)
	}

	return workflow.Result{
		Success: true,
		Message: "Custom arguments configured",
		Output: map[string]any{
			"arguments": args,
		},
	}
}

// ParseArguments splits a space or newline separated argument blob into a
// list, honoring shell quoting so quoted tokens keep internal spaces.
// Empty or whitespace-only input yields an empty list.
func ParseArguments(raw string) []string {
	normalized := strings.NewReplacer("\n", " ", "\r", " ").Replace(raw)
	if strings.TrimSpace(normalized) == "" {
		return nil
	}

	args, err := shlex.Split(normalized)
	if err != nil {
		// Unbalanced quotes: fall back to whitespace splitting.
		return strings.Fields(normalized)
	}
	return args
}

// ExtractCustomArgs scans a step list for custom-argument steps and
// concatenates their parsed tokens in list order. Multiple custom-argument
// steps all contribute.
func ExtractCustomArgs(steps []models.StepConfig) []string {
	var args []string
	for _, cfg := range steps {
		if cfg.Type != TypeCustomArgs {
			continue
		}
		raw, _ := cfg.Config["arguments"].(string)
		args = append(args, ParseArguments(raw)...)
	}
	return args
}
