package render

import (
	"bytes"
	"html/template"

	"github.com/user/sitewatch/internal/domain"
)

const unknownError = "unknown error"

var cellTemplates = template.Must(template.New("cells").Parse(`
{{define "publish_switch"}}<div class="form-check form-switch">
	<input class="form-check-input toggle-publish-status" type="checkbox" role="switch" id="publish-status-{{.ID}}" data-site-id="{{.ID}}"{{if .IsPublished}} checked{{end}}>
	<label class="form-check-label" for="publish-status-{{.ID}}">{{template "publish_label" .IsPublished}}</label>
</div>{{end}}
{{define "publish_label"}}<span class="publish-status-label {{if .}}text-success{{else}}text-secondary{{end}}">{{if .}}Published{{else}}Unpublished{{end}}</span>{{end}}
{{define "actions"}}<div class="btn-group btn-group-sm">
	<a href="{{.OSSURL}}" target="_blank" class="btn btn-outline-primary view-site-link" data-site-id="{{.ID}}"><i class="bi bi-eye"></i> View</a>
	<button class="btn btn-outline-info preview-site-btn" data-site-id="{{.ID}}" data-site-url="{{.OSSURL}}"><i class="bi bi-window"></i> Preview</button>
	<button class="btn btn-outline-secondary rename-site-btn" data-site-id="{{.ID}}" data-site-name="{{.Name}}"><i class="bi bi-pencil"></i> Rename</button>
	<button class="btn btn-outline-danger delete-site-btn" data-site-id="{{.ID}}" data-site-name="{{.Name}}"><i class="bi bi-trash"></i> Delete</button>
</div>{{end}}
{{define "failed"}}<span class="badge bg-danger">Processing failed</span>
<i class="bi bi-info-circle text-danger failure-detail" data-bs-toggle="tooltip" title="{{.}}"></i>{{end}}
{{define "timeout"}}<span class="badge bg-secondary">Timed out</span>{{end}}
`))

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := cellTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PublishSwitch renders the status cell of a completed site.
func PublishSwitch(site domain.SiteStatus) (string, error) {
	return execute("publish_switch", site)
}

// PublishLabel renders the label inside the publish switch.
func PublishLabel(published bool) (string, error) {
	return execute("publish_label", published)
}

// Actions renders the actions cell of a completed site.
func Actions(site domain.SiteStatus) (string, error) {
	return execute("actions", site)
}

// FailureBadge renders the status cell of a failed site. An empty message
// is replaced by a generic one.
func FailureBadge(message string) (string, error) {
	return execute("failed", FailureMessage(message))
}

// TimeoutBadge renders the status cell of a site whose watch timed out.
func TimeoutBadge() (string, error) {
	return execute("timeout", nil)
}

// FailureMessage returns message, or the generic failure text when empty.
func FailureMessage(message string) string {
	if message == "" {
		return unknownError
	}
	return message
}
