package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidateInfo_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		info CandidateInfo
		want []string
	}{
		{"all missing", CandidateInfo{}, []string{FieldName, FieldEmail, FieldPhone}},
		{"blank counts as missing", CandidateInfo{Name: StringPtr("  "), Email: StringPtr("a@b.c")}, []string{FieldName, FieldPhone}},
		{"complete", CandidateInfo{Name: StringPtr("Ada"), Email: StringPtr("a@b.c"), Phone: StringPtr("123")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.MissingFields())
		})
	}
}

func TestCandidateInfo_Merge(t *testing.T) {
	base := CandidateInfo{Name: StringPtr("Ada"), Email: StringPtr("old@b.c")}

	merged := base.Merge(CandidateInfo{
		Name:  StringPtr(""),
		Email: StringPtr(" new@b.c "),
		Phone: StringPtr("555"),
	})

	assert.Equal(t, "Ada", Value(merged.Name))
	assert.Equal(t, "new@b.c", Value(merged.Email))
	assert.Equal(t, "555", Value(merged.Phone))
	assert.Equal(t, "old@b.c", Value(base.Email), "merge must not touch the receiver's pointers")
}

func TestValue(t *testing.T) {
	assert.Equal(t, "", Value(nil))
	assert.Equal(t, "x", Value(StringPtr("x")))
}

func TestTotals(t *testing.T) {
	plan := QuestionPlan{Role: "Backend", Difficulties: DefaultDifficulties, CountPerLevel: 2}
	assert.Equal(t, 6, plan.Total())

	report := ScoreReport{Results: []ScoreResult{{Score: 7}, {Score: 2.5}}}
	assert.InDelta(t, 9.5, report.Total(), 0.001)
}
