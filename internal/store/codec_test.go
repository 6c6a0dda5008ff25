package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/wordrules/internal/model"
)

func TestEncode_LinePerVerdict(t *testing.T) {
	rec := newRecord(12, `a"b<c>`, []model.Verdict{{RuleID: 1, Result: true, Reason: `say "hi"`}})

	out := string(Encode(rec))
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")

	require.Len(t, lines, 4+model.RuleCount+2)
	assert.Equal(t, "{", lines[0])
	assert.Equal(t, `  "id": "12",`, lines[1])
	assert.Equal(t, `  "word": "a\"b<c>",`, lines[2])
	assert.Equal(t, `  "questions": [`, lines[3])
	assert.Equal(t, `    {"ruleId": 1, "result": true, "reason": "say 'hi'"},`, lines[4])
	assert.Equal(t, `    {"ruleId": 150, "result": false, "reason": "no answer received for rule 150"}`, lines[4+model.RuleCount-1])
	assert.Equal(t, "  ]", lines[len(lines)-2])
	assert.Equal(t, "}", lines[len(lines)-1])

	decoded, err := Decode([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, `a"b<c>`, decoded.Word)
	assert.Equal(t, "12", decoded.ID)
}

func TestEncode_EscapesBackslashesAndControlChars(t *testing.T) {
	rec := newRecord(1, "w", []model.Verdict{{RuleID: 1, Result: true, Reason: `back\slash`}})

	decoded, err := Decode(Encode(rec))
	require.NoError(t, err)
	assert.Equal(t, `back\slash`, decoded.Questions[0].Reason)
}

func TestEncode_FoldsLineBreaksInReasons(t *testing.T) {
	rec := newRecord(1, "w", []model.Verdict{{RuleID: 1, Result: true, Reason: "a\nb\tc \"d\""}})

	out := string(Encode(rec))
	assert.Len(t, strings.Split(strings.TrimSuffix(out, "\n"), "\n"), 4+model.RuleCount+2)

	decoded, err := Decode([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "a b c 'd'", decoded.Questions[0].Reason)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		wantID  string
	}{
		{"string id", `{"id": "3", "word": "w", "questions": [{"ruleId": 1, "result": true, "reason": "r"}]}`, false, "3"},
		{"numeric id", `{"id": 3, "word": "w", "questions": [{"ruleId": 1, "result": true}]}`, false, "3"},
		{"no id", `{"word": "w", "questions": [{"ruleId": 1, "result": false}]}`, false, ""},
		{"bad id", `{"id": [1], "word": "w", "questions": [{"ruleId": 1, "result": false}]}`, true, ""},
		{"no word", `{"id": "1", "questions": [{"ruleId": 1, "result": true}]}`, true, ""},
		{"no questions", `{"id": "1", "word": "w"}`, true, ""},
		{"empty questions", `{"id": "1", "word": "w", "questions": []}`, true, ""},
		{"question without result", `{"id": "1", "word": "w", "questions": [{"ruleId": 1}]}`, true, ""},
		{"wrong result type", `{"id": "1", "word": "w", "questions": [{"ruleId": 1, "result": "yes"}]}`, true, ""},
		{"not json", `word_1`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Decode([]byte(tt.data))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrCorrupt)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, rec.ID)
		})
	}
}

func TestDensify(t *testing.T) {
	dense := Densify([]model.Verdict{
		{RuleID: 150, Result: true, Reason: "last"},
		{RuleID: 0, Result: true, Reason: "dropped"},
		{RuleID: 151, Result: true, Reason: "dropped"},
		{RuleID: 3, Result: true, Reason: "first"},
		{RuleID: 3, Result: false, Reason: "second"},
	})

	require.Len(t, dense, model.RuleCount)
	for i, v := range dense {
		assert.Equal(t, i+1, v.RuleID)
	}
	assert.Equal(t, "last", dense[149].Reason)
	assert.Equal(t, model.Verdict{RuleID: 3, Result: false, Reason: "second"}, dense[2])
}
