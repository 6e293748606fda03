package cli

const savedPostTemplate = `
=== Saved Post ===

ID:       {{.ID}}
Platform: {{.Platform}}
{{- if .Title }}
Title:    {{.Title}}
{{- end}}
{{- if .SourceRef }}
Source:   {{.Source}} ({{.SourceRef}})
{{- else if .Source }}
Source:   {{.Source}}
{{- end}}
Saved:    {{.CreatedAt.Format "2006-01-02 15:04:05"}}

Content:
---
{{.Body}}
---
`
