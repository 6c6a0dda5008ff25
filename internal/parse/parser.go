// Package parse turns free-form oracle replies into dense verdict lists.
//
// Parse is total: any input, including the empty string, yields exactly
// model.RuleCount verdicts ordered by rule id. Rules the reply does not
// address keep a default false verdict whose reason is DefaultReason(id).
package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/wordrules/internal/model"
)

var (
	verdictLine = regexp.MustCompile(`(?i)ruleId\s*:\s*(\d+)\s*,\s*result\s*:\s*(true|false)\s*,\s*reason\s*:\s*(.+)`)
	// Unicode spacing too: ideographic space and NBSP are common in replies about Chinese words
	whitespace = regexp.MustCompile(`[\s\v\p{Z}\x{85}\x{1c}-\x{1f}]+`)
)

// DefaultReason is the sentinel reason stored for an unanswered rule
func DefaultReason(ruleID int) string {
	return fmt.Sprintf("no answer received for rule %d", ruleID)
}

// Defaults returns the all-unanswered verdict list
func Defaults() []model.Verdict {
	verdicts := make([]model.Verdict, model.RuleCount)
	for i := range verdicts {
		id := i + 1
		verdicts[i] = model.Verdict{RuleID: id, Result: false, Reason: DefaultReason(id)}
	}
	return verdicts
}

// Parse extracts verdicts from raw oracle text.
// Lines are matched independently; a later line for the same rule replaces an earlier one.
func Parse(raw string) []model.Verdict {
	verdicts := Defaults()

	for _, line := range strings.Split(raw, "\n") {
		m := verdictLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		id, err := strconv.Atoi(m[1])
		if err != nil || !model.ValidRuleID(id) {
			continue
		}

		verdicts[id-1] = model.Verdict{
			RuleID: id,
			Result: strings.EqualFold(m[2], "true"),
			Reason: CleanReason(m[3]),
		}
	}

	return verdicts
}

// CleanReason folds line breaks, tabs and whitespace runs into single spaces
func CleanReason(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Answered counts verdicts that carry an oracle answer rather than the default
func Answered(verdicts []model.Verdict) int {
	n := 0
	for _, v := range verdicts {
		if v.Reason != DefaultReason(v.RuleID) {
			n++
		}
	}
	return n
}
