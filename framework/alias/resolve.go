package alias

import (
	"context"
	"fmt"
	"strings"

	"github.com/romsahel/aliasex/framework/ast"
)

// Picker asks the user to choose one of items. ok is false when the user
// dismissed the prompt.
type Picker interface {
	Pick(ctx context.Context, prompt string, items []string) (choice string, ok bool, err error)
}

// CandidatesFor looks up name in lookup. A dotted name such as
// "Accounts.User" is resolved through its short name and narrowed to the
// candidates ending with the same segments.
func CandidatesFor(lookup func(shortName string) []string, name string) []string {
	candidates := lookup(ast.ShortName(name))
	if !strings.Contains(name, ".") {
		return candidates
	}
	var narrowed []string
	for _, candidate := range candidates {
		if candidate == name || strings.HasSuffix(candidate, "."+name) {
			narrowed = append(narrowed, candidate)
		}
	}
	return narrowed
}

// ResolveCandidates turns the candidates for name into one fully-qualified
// name. A single candidate is used directly; several are offered to picker
// in discovery order. Dismissing the picker yields OutcomeCancelled.
func ResolveCandidates(ctx context.Context, name string, candidates []string, picker Picker) (string, Outcome, error) {
	switch len(candidates) {
	case 0:
		return "", OutcomeNone, newError(KindLookup, ErrModuleNotFound,
			fmt.Sprintf("Module '%s' not found in cache. Try refreshing the cache.", name))
	case 1:
		return candidates[0], OutcomeNone, nil
	}
	prompt := fmt.Sprintf("Multiple modules found for %q. Select one:", name)
	choice, ok, err := picker.Pick(ctx, prompt, candidates)
	if err != nil {
		return "", OutcomeNone, newError(KindEnvironment, err, fmt.Sprintf("Error selecting module: %v", err))
	}
	if !ok || choice == "" {
		return "", OutcomeCancelled, nil
	}
	for _, candidate := range candidates {
		if candidate == choice {
			return choice, OutcomeNone, nil
		}
	}
	return "", OutcomeNone, newError(KindInput, ErrModuleNotFound,
		fmt.Sprintf("Selected module '%s' is not a candidate for %s", choice, name))
}
