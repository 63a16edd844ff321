package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/botprobe/internal/model"
)

func resp(body string) *model.Response {
	return &model.Response{ID: 1, Body: body, Author: "bot"}
}

func TestNoErrorKeywords(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"clean body", "Task complete, pushed changes", true},
		{"empty body", "", true},
		{"error prefix", "Error: could not apply patch", false},
		{"uppercase error", "ERROR: SOMETHING BROKE", false},
		{"mixed case failed", "The build Failed: see logs", false},
		{"exception", "exception: nil pointer", false},
		{"traceback", "Traceback (most recent call last)", false},
		{"could not", "I Could Not find the file", false},
		{"unable to", "unable to push branch", false},
		{"error without colon passes", "no errors were found", true},
	}
	v := NoErrorKeywords()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Check(resp(tt.body)))
		})
	}
}

func TestHasSuccessIndicators(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"complete", "Task COMPLETE", true},
		{"committed", "Changes committed to main", true},
		{"pushed", "pushed 3 commits", true},
		{"updated", "Updated the README", true},
		{"no indicator", "working on it", false},
		{"empty", "", false},
	}
	v := HasSuccessIndicators()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Check(resp(tt.body)))
		})
	}
}

func TestContainsIsCaseInsensitive(t *testing.T) {
	v := Contains("Patch Applied")
	assert.True(t, v.Check(resp("the PATCH APPLIED cleanly")))
	assert.False(t, v.Check(resp("nothing happened")))
}

func TestApplyAllPass(t *testing.T) {
	r := resp("Task complete, pushed changes")
	Apply(r, NoErrorKeywords(), HasSuccessIndicators())

	assert.True(t, r.Passed)
	assert.Empty(t, r.FailureDetail)
}

func TestApplyCollectsOnlyFailingNames(t *testing.T) {
	r := resp("working on it")
	Apply(r,
		NoErrorKeywords(),       // passes
		HasSuccessIndicators(),  // fails
		Contains("merge queue"), // fails
	)

	require.False(t, r.Passed)
	assert.Contains(t, r.FailureDetail, "has_success_indicators")
	assert.Contains(t, r.FailureDetail, `contains("merge queue")`)
	assert.NotContains(t, r.FailureDetail, "no_error_keywords")

	parts := strings.Split(r.FailureDetail, "; ")
	assert.Len(t, parts, 2)
}

func TestApplyStrictAnd(t *testing.T) {
	r := resp("Task complete")
	Apply(r,
		HasSuccessIndicators(),
		Func("always_false", func(string) bool { return false }),
	)
	assert.False(t, r.Passed, "one failing validator must fail the set")
}

func TestApplyAbsorbsPanics(t *testing.T) {
	r := resp("Task complete")
	Apply(r,
		Func("panics", func(string) bool { panic("boom") }),
		HasSuccessIndicators(),
	)

	require.False(t, r.Passed)
	assert.Contains(t, r.FailureDetail, "validator panics error: boom")
	assert.NotContains(t, r.FailureDetail, "has_success_indicators")
}

func TestApplyNoValidators(t *testing.T) {
	r := resp("anything")
	Apply(r)
	assert.True(t, r.Passed)
	assert.Empty(t, r.FailureDetail)
}

func TestFuncSeesRawBody(t *testing.T) {
	var seen string
	v := Func("capture", func(body string) bool {
		seen = body
		return true
	})
	v.Check(resp("Exact Body"))
	assert.Equal(t, "Exact Body", seen)
}
