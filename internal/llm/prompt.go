package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/wordrules/internal/model"
)

type promptRule struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
}

// BuildSystemPrompt embeds the full rule catalog and the one-line-per-rule reply format
func BuildSystemPrompt(rules []model.RuleDefinition) string {
	list := make([]promptRule, 0, len(rules))
	for _, r := range rules {
		list = append(list, promptRule{ID: r.ID, Question: r.Question})
	}

	var catalog bytes.Buffer
	enc := json.NewEncoder(&catalog)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(list) // plain structs always encode

	var b strings.Builder
	b.WriteString("Below is the list of rules to check, as a JSON array.\n")
	fmt.Fprintf(&b, "When I send you a word, break it down into its strokes, radicals and tones, then answer true or false for each of the %d rules with a short reason:\n", len(rules))
	b.WriteString(strings.TrimSpace(catalog.String()))
	b.WriteString("\n\n")
	b.WriteString("Answer in exactly this format, keeping ruleId, result and reason for a rule on the same line:\n")
	b.WriteString("ruleId: 1, result: true/false, reason: short reason\n")
	b.WriteString("ruleId: 2, result: true/false, reason: short reason\n")
	b.WriteString("...\n\n")
	b.WriteString("Answer every rule; do not skip any.\n")
	b.WriteString("The reason must not contain line breaks; keep each answer on a single line.\n")
	return b.String()
}
