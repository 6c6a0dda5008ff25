package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/wordrules/internal/model"
	"github.com/ppiankov/wordrules/internal/parse"
)

// NormalizeReason makes a reason a single line without double quotes,
// whatever path the verdict took to reach the store
func NormalizeReason(s string) string {
	return parse.CleanReason(strings.ReplaceAll(s, `"`, "'"))
}

// Encode renders a record with one verdict object per line so that diffs
// between two runs of the same word stay readable.
func Encode(rec model.WordRecord) []byte {
	var b bytes.Buffer
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  \"id\": %s,\n", quote(rec.ID))
	fmt.Fprintf(&b, "  \"word\": %s,\n", quote(rec.Word))
	b.WriteString("  \"questions\": [\n")
	for i, v := range rec.Questions {
		fmt.Fprintf(&b, "    {\"ruleId\": %d, \"result\": %t, \"reason\": %s}",
			v.RuleID, v.Result, quote(NormalizeReason(v.Reason)))
		if i < len(rec.Questions)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("  ]\n")
	b.WriteString("}\n")
	return b.Bytes()
}

// quote produces a JSON string literal without HTML escaping
func quote(s string) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // strings always encode
	return strings.TrimSuffix(b.String(), "\n")
}

type rawRecord struct {
	ID        json.RawMessage `json:"id"`
	Word      *string         `json:"word"`
	Questions *[]struct {
		RuleID *int   `json:"ruleId"`
		Result *bool  `json:"result"`
		Reason string `json:"reason"`
	} `json:"questions"`
}

// Decode parses a stored record. A record needs a word and a non-empty
// questions array whose entries carry ruleId and result; anything else is
// reported as ErrCorrupt. The id may be a JSON string or number.
func Decode(data []byte) (*model.WordRecord, error) {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if raw.Word == nil {
		return nil, fmt.Errorf("%w: missing word", ErrCorrupt)
	}
	if raw.Questions == nil || len(*raw.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions array", ErrCorrupt)
	}

	id, err := decodeID(raw.ID)
	if err != nil {
		return nil, err
	}

	rec := &model.WordRecord{
		ID:        id,
		Word:      *raw.Word,
		Questions: make([]model.Verdict, 0, len(*raw.Questions)),
	}
	for i, q := range *raw.Questions {
		if q.RuleID == nil || q.Result == nil {
			return nil, fmt.Errorf("%w: question %d lacks ruleId or result", ErrCorrupt, i)
		}
		rec.Questions = append(rec.Questions, model.Verdict{
			RuleID: *q.RuleID,
			Result: *q.Result,
			Reason: q.Reason,
		})
	}
	return rec, nil
}

func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
	}
	return "", fmt.Errorf("%w: id is neither string nor integer", ErrCorrupt)
}
