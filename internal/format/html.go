// Package format renders analysis results as HTML fragments for the web
// client.
package format

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"go-medical-analyzer/pkg/models"
)

// subFindingsShown is how many findings are listed per classifier.
const subFindingsShown = 3

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

var resultTemplate = template.Must(template.New("result").Funcs(template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
}).Parse(`<div class="analysis" style="font-family: Arial, sans-serif;">
{{- if .Narrative}}
<div class="narrative">{{.Narrative}}</div>
{{- end}}
{{- with .Result.EnsembleConfidence}}
<h3>Ensemble Analysis Results</h3>
<p><strong>Combined Confidence Score:</strong> {{pct .}}</p>
<p><strong>Recommendation:</strong> {{$.Result.Recommendation}}</p>
{{- end}}
{{- range .Subs}}
<h4>{{.Model}} Analysis</h4>
{{- if .Error}}
<p class="error"><strong>Error:</strong> {{.Error}}</p>
{{- else}}
{{- with .TopFinding}}
<p><strong>Top Prediction:</strong> {{.Label}}</p>
<p><strong>Confidence:</strong> {{pct .Confidence}}</p>
{{- end}}
{{- if .Dataset}}
<p><em>{{.Dataset}}</em></p>
{{- end}}
<ul>
{{- range .Findings}}
<li>{{.Label}}: {{pct .Confidence}}</li>
{{- end}}
</ul>
{{- end}}
{{- end}}
{{- if and (not .Subs) .Result.Findings}}
<h3>Findings</h3>
<ul>
{{- range .Result.Findings}}
<li>{{.Label}}: {{pct .Confidence}}</li>
{{- end}}
</ul>
{{- end}}
{{- with .Result.Assessment}}
<h3>Image Assessment</h3>
<p><strong>Image Type:</strong> {{.ImageType}}</p>
<p><strong>Characteristics:</strong> {{.Characteristics}}</p>
<p><strong>Quality:</strong> {{.Quality}}</p>
<p><strong>Dimensions:</strong> {{.Dimensions}}</p>
<ul>
{{- range .Recommendations}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
{{- if .Result.Dataset}}
<p class="dataset"><strong>Trained on:</strong> {{.Result.Dataset}}</p>
{{- end}}
</div>`))

type view struct {
	Result    *models.AnalysisResult
	Narrative template.HTML
	Subs      []models.SubResult
}

// HTML renders a result. It has no side effects and the same result always
// renders the same markup.
func HTML(result *models.AnalysisResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("nil analysis result")
	}

	v := view{Result: result}
	if result.Narrative != "" {
		narrative, err := Markdown(result.Narrative)
		if err != nil {
			return "", err
		}
		v.Narrative = narrative
	}

	names := make([]string, 0, len(result.SubResults))
	for name := range result.SubResults {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sub := result.SubResults[name]
		if len(sub.Findings) > subFindingsShown {
			sub.Findings = sub.Findings[:subFindingsShown]
		}
		v.Subs = append(v.Subs, sub)
	}

	var buf bytes.Buffer
	if err := resultTemplate.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render analysis: %w", err)
	}
	return buf.String(), nil
}

// Markdown converts model-written markdown to HTML. Raw HTML in the input
// is not passed through.
func Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
