package workflow

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/forgelabs/appforge/internal/models"
)

// genOutcomePlan generates a non-empty list of booleans where true means
// the step at that position succeeds. The length is generated first so no
// candidate is discarded.
func genOutcomePlan() gopter.Gen {
	return gen.IntRange(1, 20).FlatMap(func(v interface{}) gopter.Gen {
		return gen.SliceOfN(v.(int), gen.Bool())
	}, reflect.TypeOf([]bool{}))
}

func planToSteps(plan []bool) []models.StepConfig {
	steps := make([]models.StepConfig, len(plan))
	for i, succeed := range plan {
		steps[i] = models.StepConfig{
			ID:     fmt.Sprintf("s%d", i),
			Type:   "fake",
			Config: map[string]any{"name": fmt.Sprintf("s%d", i), "fail": !succeed},
		}
	}
	return steps
}

func firstFailure(plan []bool) int {
	for i, succeed := range plan {
		if !succeed {
			return i
		}
	}
	return -1
}

// With stop-on-error enabled, execution halts exactly at the first failing
// step: every step before it ran, the failing step ran, and nothing after
// it was touched.
func TestStopOnErrorHaltsAtFirstFailure(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("execution halts at the first failing step", prop.ForAll(
		func(plan []bool) bool {
			var executed []string
			e := NewExecutor(testRegistry(t, &executed), nil, nil)

			result := e.Execute(context.Background(), "prop", planToSteps(plan), &Context{}, true)

			failAt := firstFailure(plan)
			if failAt < 0 {
				return result.Status == StatusSuccess && len(executed) == len(plan)
			}
			return result.Status == StatusError &&
				len(executed) == failAt+1 &&
				len(result.Steps) == failAt+1
		},
		genOutcomePlan(),
	))

	properties.TestingRun(t)
}

// With stop-on-error disabled every step runs and the terminal status is
// the logical AND of all step successes.
func TestContinueOnErrorRunsEverything(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("every step runs and status aggregates by AND", prop.ForAll(
		func(plan []bool) bool {
			var executed []string
			e := NewExecutor(testRegistry(t, &executed), nil, nil)

			result := e.Execute(context.Background(), "prop", planToSteps(plan), &Context{}, false)

			if len(executed) != len(plan) {
				return false
			}
			if firstFailure(plan) < 0 {
				return result.Status == StatusSuccess
			}
			return result.Status == StatusError
		},
		genOutcomePlan(),
	))

	properties.TestingRun(t)
}
