package snippet

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: values a snippet logs come back verbatim in the transcript,
// one line per console call.
func TestEvaluateEcho_Property(t *testing.T) {
	ev := newTestEvaluator(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("logged integers print verbatim", prop.ForAll(
		func(n int) bool {
			got := ev.Evaluate(ctx, fmt.Sprintf("console.log(%d)", n))
			return got == strconv.Itoa(n)
		},
		gen.IntRange(-1_000_000_000, 1_000_000_000),
	))

	properties.Property("logged strings print verbatim", prop.ForAll(
		func(s string) bool {
			got := ev.Evaluate(ctx, fmt.Sprintf("console.log(%q)", s))
			return got == s
		},
		gen.AlphaString(),
	))

	properties.Property("arithmetic happens in the engine", prop.ForAll(
		func(a, b int) bool {
			got := ev.Evaluate(ctx, fmt.Sprintf("console.log(%d + %d)", a, b))
			return got == strconv.Itoa(a+b)
		},
		gen.IntRange(-1_000_000, 1_000_000),
		gen.IntRange(-1_000_000, 1_000_000),
	))

	properties.Property("thrown messages come back as the error line", prop.ForAll(
		func(s string) bool {
			got := ev.Evaluate(ctx, fmt.Sprintf("throw new Error(%q)", s))
			return got == "Error: "+s
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// Property: evaluation is a pure function of the source text. Running
// the same snippet twice through the pool yields the same transcript.
func TestEvaluateDeterminism_Property(t *testing.T) {
	ev := newTestEvaluator(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("known snippets evaluate identically on repeat", prop.ForAll(
		func(source string) bool {
			first := ev.Evaluate(ctx, source)
			second := ev.Evaluate(ctx, source)
			return first == second
		},
		gen.OneConstOf(
			"console.log(1); console.log('a', 'b')",
			"",
			"const a = [1, 2]; console.log(a)",
			"throw new Error('boom')",
			"missing + 1",
			"console.warn('w'); console.error('e')",
			"for (let i = 0; i < 5; i++) console.log(i * i)",
			"if (",
		),
	))

	properties.Property("arbitrary sources evaluate identically on repeat", prop.ForAll(
		func(source string) bool {
			first := ev.Evaluate(ctx, source)
			second := ev.Evaluate(ctx, source)
			return first == second
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// Property: no input makes evaluation escape its contract. The result
// is always a plain string and failures are always one line.
func TestEvaluateNeverEscapes_Property(t *testing.T) {
	ev := newTestEvaluator(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("failures collapse to a single line", prop.ForAll(
		func(source string) bool {
			got := ev.Evaluate(ctx, source)
			if strings.HasPrefix(got, "Error: ") {
				return !strings.Contains(got, "\n")
			}
			return true
		},
		gen.AnyString(),
	))

	properties.Property("check failures imply evaluate failures", prop.ForAll(
		func(source string) bool {
			if ev.Check(source) == nil {
				return true // Only parse failures are in scope here
			}
			return strings.HasPrefix(ev.Evaluate(ctx, source), "Error: ")
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
