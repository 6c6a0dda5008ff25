package model

// Verdict is the answer for one rule applied to one word
type Verdict struct {
	RuleID int    `json:"ruleId"`
	Result bool   `json:"result"`
	Reason string `json:"reason"`
}

// WordRecord is the persisted set of verdicts for a word.
// A record written by this tool always carries exactly RuleCount verdicts in ascending rule order.
type WordRecord struct {
	ID        string    `json:"id"`
	Word      string    `json:"word"`
	Questions []Verdict `json:"questions"`
}
