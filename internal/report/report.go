package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"
)

// Outcome is how a research run ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeNoResults Outcome = "no_results"
	OutcomeNoURLs    Outcome = "no_urls"
	OutcomeFailed    Outcome = "failed"  // the extraction job reported failure
	OutcomeTimeout   Outcome = "timeout" // polling attempts ran out
	OutcomeError     Outcome = "error"
)

// Summary records one research run: what was asked, what each stage
// produced and how it ended.
type Summary struct {
	Company      string          `json:"company"`
	Objective    string          `json:"objective"`
	Query        string          `json:"query"`
	Results      int             `json:"results"`
	SelectedURLs []string        `json:"selected_urls"`
	JobID        string          `json:"job_id,omitempty"`
	Attempts     int             `json:"attempts"`
	Outcome      Outcome         `json:"outcome"`
	Error        string          `json:"error,omitempty"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      time.Time       `json:"end_time"`
	Duration     time.Duration   `json:"duration_ns"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// Finish stamps the end time and outcome. A non-nil err is recorded as text.
func (s *Summary) Finish(outcome Outcome, err error) {
	s.EndTime = time.Now().UTC()
	s.Duration = s.EndTime.Sub(s.StartTime)
	s.Outcome = outcome
	if err != nil {
		s.Error = err.Error()
	}
}

// Succeeded reports whether the run produced extracted data.
func (s Summary) Succeeded() bool {
	return s.Outcome == OutcomeSuccess
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

const textTmpl = `Company Research Summary
------------------------
Company:       {{.Company}}
Objective:     {{.Objective}}
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Search:        {{.Results}} results for "{{.Query}}"

Selected URLs:
{{- range .SelectedURLs}}
  {{.}}
{{- else}}
  None
{{- end}}
{{- if .JobID}}

Job:           {{.JobID}} ({{.Attempts}} polls)
{{- end}}
Outcome:       {{.Outcome}}
{{- if .Error}}
Error:         {{.Error}}
{{- end}}
{{- if .Data}}

Data:
{{pretty .Data}}
{{- end}}
`

var textTemplate = template.Must(template.New("textReport").Funcs(template.FuncMap{
	"pretty": pretty,
}).Parse(textTmpl))

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	if err := textTemplate.Execute(w, summary); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	return nil
}

func pretty(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
