package gmkit

import (
	"strconv"
	"strings"
)

// ParseItemTokens parses router tokens of the form "name=quantity" into an
// item mapping. Tokens whose quantity does not parse as a positive integer,
// or whose name is empty after trimming, are discarded; repeated names
// accumulate.
func ParseItemTokens(tokens []string) Items {
	var items = make(Items)
	for _, token := range tokens {
		var name, rawQty, ok = strings.Cut(token, "=")
		if !ok {
			continue
		}

		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		qty, err := strconv.Atoi(strings.TrimSpace(rawQty))
		if err != nil || qty <= 0 {
			continue
		}

		items[name] += qty
	}

	return items
}

// ParseItemNames parses bare-name router tokens for delete commands, trimming
// whitespace and discarding empty tokens.
func ParseItemNames(tokens []string) []string {
	var names = make([]string, 0, len(tokens))
	for _, token := range tokens {
		var name = strings.TrimSpace(token)
		if name == "" {
			continue
		}
		names = append(names, name)
	}

	return names
}
