package email

import (
	"bytes"
	"fmt"
	"html/template"
)

const (
	subjectHealthAlert = "Client health alert"
	subjectStaleLeads  = "Leads awaiting follow-up"
)

var healthAlertTemplate = template.Must(template.New("health_alert").Parse(`
<h2>Client health dropped</h2>
<p>Client <strong>{{.ClientID}}</strong> moved from
<strong>{{.FromStatus}}</strong> to <strong>{{.ToStatus}}</strong>
with a score of <strong>{{.Score}}</strong>.</p>
<p>Review the client and acknowledge the alert in the dashboard.</p>
`))

var staleLeadsTemplate = template.Must(template.New("stale_leads").Parse(`
<h2>Leads awaiting follow-up</h2>
<p>The following leads have had no activity past the follow-up threshold:</p>
<ul>
{{range .LeadIDs}}<li>{{.}}</li>
{{end}}</ul>
`))

type healthAlertData struct {
	ClientID   string
	FromStatus string
	ToStatus   string
	Score      int
}

type staleLeadsData struct {
	LeadIDs []string
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
