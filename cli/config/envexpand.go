// Package config handles crucible.yaml loading for the crucible commands.
package config

import (
	"os"
	"regexp"
	"strings"
)

// envRef matches ${NAME}, ${NAME:-default} and ${NAME-default}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:?-)?([^}]*)\}`)

// ExpandEnv substitutes environment references in input, shell style:
//
//	${NAME}          value of NAME, or "" when unset
//	${NAME:-dflt}    dflt when NAME is unset or empty
//	${NAME-dflt}     dflt only when NAME is unset
//
// An unset reference is not an error; missing secrets surface when the
// value they feed is validated.
func ExpandEnv(input string) string {
	matches := envRef.FindAllStringSubmatchIndex(input, -1)
	if matches == nil {
		return input
	}

	var b strings.Builder
	b.Grow(len(input))
	last := 0
	for _, m := range matches {
		b.WriteString(input[last:m[0]])
		last = m[1]

		name := input[m[2]:m[3]]
		op, dflt := "", ""
		if m[4] >= 0 {
			op = input[m[4]:m[5]]
			dflt = input[m[6]:m[7]]
		} else if m[6] != m[7] {
			// ${NAME junk} is not a reference
			b.WriteString(input[m[0]:m[1]])
			continue
		}

		value, set := os.LookupEnv(name)
		switch {
		case op == ":-" && value == "":
			value = dflt
		case op == "-" && !set:
			value = dflt
		}
		b.WriteString(value)
	}
	b.WriteString(input[last:])
	return b.String()
}
