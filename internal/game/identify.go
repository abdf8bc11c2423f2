package game

import (
	"strings"

	"golang.org/x/text/cases"
)

// matchCard resolves player-typed text against the given card names. An exact
// (case-folded) name wins outright, even when it is also a prefix of longer
// names: "market" picks market over "market square" instead of being ambiguous.
// Otherwise every name starting with the text is a candidate. It returns the
// single match, or every candidate when there is not exactly one.
func matchCard(names []string, text string) (string, []string) {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(text))
	if needle == "" {
		return "", nil
	}

	var matches []string
	for _, name := range names {
		folded := fold.String(name)
		if folded == needle {
			return name, []string{name}
		}
		if strings.HasPrefix(folded, needle) {
			matches = append(matches, name)
		}
	}
	if len(matches) == 1 {
		return matches[0], matches
	}
	return "", matches
}

// identify turns typed text into one supply card name or a game error.
func identify(names []string, text string) (string, *Error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", newError(KindValidation, "Which card? Type part of its name")
	}
	name, matches := matchCard(names, trimmed)
	switch {
	case name != "":
		return name, nil
	case len(matches) == 0:
		return "", newError(KindNoSuchCard, "There is no card called %s", trimmed)
	default:
		err := newError(KindAmbiguousReference, "%s could be any of: %s", trimmed, strings.Join(matches, ", "))
		err.Matches = matches
		return "", err
	}
}
