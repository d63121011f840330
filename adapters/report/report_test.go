package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scorecard/domain/core"
	"scorecard/domain/mfa"
	"scorecard/domain/sfa"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary() Summary {
	accepted := func(key []string, gini float64) mfa.Evaluation {
		return mfa.Evaluation{
			Combination: key,
			Status:      mfa.StatusAccepted,
			Variables: []mfa.VariableDiagnostic{
				{Variable: key[0], Coefficient: 0.5, PValue: 1e-6, VIF: 1.2, Correlation: 0.2, Contribution: 0.7},
				{Variable: key[1], Coefficient: -0.2, PValue: 1e-3, VIF: 1.2, Correlation: -0.1, Contribution: 0.3},
			},
			Summary: mfa.Summary{Gini: gini, MaxPValue: 1e-3, MaxVIF: 1.2, SignCheck: true, MinContribution: 0.3, MaxContribution: 0.7},
		}
	}
	return Summary{
		Result: &mfa.SearchResult{
			RunID:    core.NewRunID(),
			Target:   "default_flag",
			Size:     2,
			Accepted: []mfa.Evaluation{accepted([]string{"dti", "grade_woe"}, 0.41), accepted([]string{"dti", "purpose_woe"}, 0.33)},
			Stats:    mfa.SearchStats{Enumerated: 6, Evaluated: 4, Accepted: 2, Rejected: 2},
		},
		Features:  []sfa.FeatureStrength{{Feature: "grade", Kind: "categorical", Bins: 7, TotalIV: 0.31}},
		TopN:      1,
		MaxPValue: 0.05,
		MaxVIF:    2.5,
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleSummary())

	assert.Contains(t, md, "| Accepted | 2 |")
	assert.Contains(t, md, "`dti+grade_woe`")
	assert.NotContains(t, md, "dti+purpose_woe", "only the top N combinations are listed")
	assert.Contains(t, md, "### Best model")
	assert.Contains(t, md, "70.0%")
	assert.Contains(t, md, "## Single-factor strength")
}

func TestMarkdown_NoAccepted(t *testing.T) {
	s := sampleSummary()
	s.Result.Accepted = nil
	s.Features = nil

	md := Markdown(s)
	assert.Contains(t, md, "No combination passed the acceptance rule.")
	assert.NotContains(t, md, "Best model")
}

func TestWriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, WriteHTML(path, sampleSummary()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	page := string(b)
	assert.True(t, strings.Contains(page, "<html"), "complete page expected")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<code>dti+grade_woe</code>")

	assert.Error(t, WriteHTML(path, Summary{}))
}
