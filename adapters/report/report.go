// Package report renders a search summary as Markdown and HTML
package report

import (
	"fmt"
	"os"
	"strings"

	"scorecard/domain/mfa"
	"scorecard/domain/sfa"
	"scorecard/internal/errors"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Summary is the content of one report
type Summary struct {
	Result    *mfa.SearchResult
	Features  []sfa.FeatureStrength // optional single-factor ranking
	TopN      int                   // accepted combinations listed, 0 = all
	MaxPValue float64
	MaxVIF    float64
}

// Markdown renders the summary
func Markdown(s Summary) string {
	var b strings.Builder
	res := s.Result

	fmt.Fprintf(&b, "# Scorecard search `%s`\n\n", res.RunID)
	fmt.Fprintf(&b, "Target `%s`, combinations of %d features. ", res.Target, res.Size)
	fmt.Fprintf(&b, "Accepted when max p-value < %g, max VIF < %g and every coefficient sign matches its raw correlation.\n\n", s.MaxPValue, s.MaxVIF)

	b.WriteString("## Search\n\n| Outcome | Count |\n|---|---:|\n")
	st := res.Stats
	for _, row := range []struct {
		name  string
		count int
	}{
		{"Enumerated", st.Enumerated},
		{"Excluded pair", st.ExcludedPair},
		{"Type mix", st.TypeMix},
		{"Evaluated", st.Evaluated},
		{"Accepted", st.Accepted},
		{"Rejected", st.Rejected},
		{"Fit failed", st.FitFailed},
		{"Skipped", st.Skipped},
	} {
		fmt.Fprintf(&b, "| %s | %d |\n", row.name, row.count)
	}
	if st.Truncated {
		b.WriteString("\nEnumeration stopped at the combination cap.\n")
	}

	b.WriteString("\n## Top combinations\n\n")
	top := res.Accepted
	if s.TopN > 0 && len(top) > s.TopN {
		top = top[:s.TopN]
	}
	if len(top) == 0 {
		b.WriteString("No combination passed the acceptance rule.\n")
	} else {
		b.WriteString("| Rank | Combination | Gini | Max p-value | Max VIF | Contribution range |\n|---:|---|---:|---:|---:|---|\n")
		for i, ev := range top {
			fmt.Fprintf(&b, "| %d | `%s` | %.4f | %.2e | %.3f | %.2f to %.2f |\n", i+1, ev.Combination.Key(),
				ev.Summary.Gini, ev.Summary.MaxPValue, ev.Summary.MaxVIF,
				ev.Summary.MinContribution, ev.Summary.MaxContribution)
		}

		best := top[0]
		fmt.Fprintf(&b, "\n### Best model\n\nIntercept %.4f, %d iterations.\n\n", best.Summary.Intercept, best.Summary.Iterations)
		b.WriteString("| Variable | Coefficient | p-value | VIF | Correlation | Contribution |\n|---|---:|---:|---:|---:|---:|\n")
		for _, v := range best.Variables {
			fmt.Fprintf(&b, "| `%s` | %.4f | %.2e | %.3f | %.3f | %.1f%% |\n",
				v.Variable, v.Coefficient, v.PValue, v.VIF, v.Correlation, 100*v.Contribution)
		}
	}

	if len(s.Features) > 0 {
		b.WriteString("\n## Single-factor strength\n\n| Feature | Kind | Bins | IV | Undefined |\n|---|---|---:|---:|---:|\n")
		for _, f := range s.Features {
			fmt.Fprintf(&b, "| `%s` | %s | %d | %.4f | %d |\n", f.Feature, f.Kind, f.Bins, f.TotalIV, f.Undefined)
		}
	}
	return b.String()
}

// HTML renders the summary as a complete HTML page
func HTML(s Summary) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: fmt.Sprintf("Scorecard search %s", s.Result.RunID),
	})
	return markdown.ToHTML([]byte(Markdown(s)), p, renderer)
}

// WriteHTML writes the HTML page to path
func WriteHTML(path string, s Summary) error {
	if s.Result == nil {
		return errors.InvalidInput("report needs a search result")
	}
	if err := os.WriteFile(path, HTML(s), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write report %s", path)
	}
	return nil
}
