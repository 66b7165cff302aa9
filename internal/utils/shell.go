package utils

import (
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"
)

// QuoteArgs renders argv as a single shell command line, quoting only the
// words that need it.
func QuoteArgs(argv []string) string {
	words := make([]string, 0, len(argv))

	for _, arg := range argv {
		quoted, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			quoted = arg
		}

		words = append(words, quoted)
	}

	return strings.Join(words, " ")
}

// SplitFlags splits a flag string such as `-O2 -DNAME="a b"` using shell
// word rules. Variables are not expanded.
func SplitFlags(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	fields, err := shell.Fields(s, func(string) string { return "" })
	if err != nil {
		return nil, eris.Wrapf(err, "failed to split flags %q", s)
	}

	return fields, nil
}
