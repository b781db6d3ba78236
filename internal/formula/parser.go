// Package formula turns user-typed formulas into evaluated datasets.
//
// A formula is one line of arithmetic mixing numbers, whitelisted math
// functions (np.abs, np.sqrt, ...) and channel references written as
// {origin/name}. References are rewritten into calls to the channel lookup
// primitive before the line is parsed and evaluated against a bundle.
// Nothing in a formula can reach beyond the function table.
package formula

import (
	"regexp"
	"strconv"
	"strings"
)

// LookupFunc is the name of the primitive that fetches a dataset by full name.
const LookupFunc = "channel"

// referencePattern matches the shortest run between a '{' and the next '}'.
// Empty braces and unterminated regions never match.
var referencePattern = regexp.MustCompile(`\{[^}\n]+\}`)

// SplitFormulae splits a block of formulas on line breaks. Lines are returned
// verbatim, empty ones included.
func SplitFormulae(formulae string) []string {
	return strings.Split(formulae, "\n")
}

// ExtractDataNames returns the channel references of formula, left to right,
// without their braces. Duplicates are kept.
func ExtractDataNames(formula string) []string {
	matches := referencePattern.FindAllString(formula, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1:len(m)-1])
	}
	return names
}

// ReplaceNamesInFormula rewrites every {full name} token into a lookup call.
// It returns the rewritten formula and the raw tokens, braces included, in the
// order they were first encountered. All occurrences of a token are replaced
// on the iteration that finds it.
func ReplaceNamesInFormula(formula string) (string, []string) {
	work := formula
	var tokens []string
	for {
		loc := referencePattern.FindStringIndex(work)
		if loc == nil {
			break
		}
		token := work[loc[0]:loc[1]]
		tokens = append(tokens, token)
		work = strings.ReplaceAll(work, token, lookupCall(token[1:len(token)-1]))
	}
	return work, tokens
}

// lookupCall renders the lookup expression for a full name. Braces inside the
// quoted name are escaped so the result can never match referencePattern again.
func lookupCall(fullName string) string {
	quoted := strconv.Quote(fullName)
	quoted = strings.NewReplacer("{", `\x7b`, "}", `\x7d`).Replace(quoted)
	return LookupFunc + "(" + quoted + ")"
}
