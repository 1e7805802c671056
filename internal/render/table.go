package render

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/sitewatch/internal/domain"
)

// ErrRowNotFound is returned when the table has no row, or no status/actions cell, for a site.
var ErrRowNotFound = errors.New("site row not found")

const (
	statusCellSelector  = "td:nth-child(4)"
	actionsCellSelector = "td:nth-child(5)"
)

// ControlKind identifies an interactive element rendered in a site row.
type ControlKind string

const (
	ControlPreview ControlKind = "preview"
	ControlRename  ControlKind = "rename"
	ControlDelete  ControlKind = "delete"
	ControlToggle  ControlKind = "toggle"
)

// controlSelectors maps each kind to the class the row markup uses for it.
var controlSelectors = map[ControlKind]string{
	ControlPreview: ".preview-site-btn",
	ControlRename:  ".rename-site-btn",
	ControlDelete:  ".delete-site-btn",
	ControlToggle:  ".toggle-publish-status",
}

// Control is a parsed control descriptor: what the element carries in its data attributes.
type Control struct {
	Kind    ControlKind
	SiteID  string
	Name    string
	URL     string
	Checked bool
}

// Table is the site list page. All reads and writes go through its mutex.
type Table struct {
	mu  sync.Mutex
	doc *goquery.Document
}

// NewTable parses the site list page.
func NewTable(r io.Reader) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing site table: %w", err)
	}
	return &Table{doc: doc}, nil
}

// NewTableFromString is NewTable for an in-memory page.
func NewTableFromString(html string) (*Table, error) {
	return NewTable(strings.NewReader(html))
}

// Replace swaps the document for a freshly loaded page.
func (t *Table) Replace(r io.Reader) error {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return fmt.Errorf("parsing site table: %w", err)
	}
	t.mu.Lock()
	t.doc = doc
	t.mu.Unlock()
	return nil
}

func rowSelector(siteID string) string {
	return fmt.Sprintf(`tr[data-site-id="%s"]`, escapeAttr(siteID))
}

// escapeAttr keeps a site id from breaking out of the attribute selector.
func escapeAttr(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// cells returns the row, status cell and actions cell for siteID. Caller holds t.mu.
func (t *Table) cells(siteID string) (row, status, actions *goquery.Selection, err error) {
	row = t.doc.Find(rowSelector(siteID)).First()
	if row.Length() == 0 {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrRowNotFound, siteID)
	}
	status = row.Find(statusCellSelector).First()
	actions = row.Find(actionsCellSelector).First()
	if status.Length() == 0 || actions.Length() == 0 {
		return nil, nil, nil, fmt.Errorf("%w: %s has no status or actions cell", ErrRowNotFound, siteID)
	}
	return row, status, actions, nil
}

// PendingSiteIDs lists the rows currently marked pending, in document order.
func (t *Table) PendingSiteIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ids []string
	t.doc.Find(`tr[data-status="pending"]`).Each(func(i int, s *goquery.Selection) {
		if id, ok := s.Attr("data-site-id"); ok && id != "" {
			ids = append(ids, id)
		}
	})
	return ids
}

// SiteIDs lists every row's site id, in document order.
func (t *Table) SiteIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ids []string
	t.doc.Find(`tr[data-site-id]`).Each(func(i int, s *goquery.Selection) {
		if id := s.AttrOr("data-site-id", ""); id != "" {
			ids = append(ids, id)
		}
	})
	return ids
}

// HasRow reports whether siteID has a row with both cells the reconciler writes to.
func (t *Table) HasRow(siteID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _, _, err := t.cells(siteID)
	return err == nil
}

// RowStatus returns the row's data-status attribute.
func (t *Table) RowStatus(siteID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.doc.Find(rowSelector(siteID)).First().Attr("data-status")
}

// RenderCompleted writes the publish switch and the action buttons.
func (t *Table) RenderCompleted(site domain.SiteStatus) error {
	statusHTML, err := PublishSwitch(site)
	if err != nil {
		return fmt.Errorf("rendering publish switch: %w", err)
	}
	actionsHTML, err := Actions(site)
	if err != nil {
		return fmt.Errorf("rendering actions: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	row, status, actions, err := t.cells(site.ID)
	if err != nil {
		return err
	}
	status.SetHtml(statusHTML)
	actions.SetHtml(actionsHTML)
	row.SetAttr("data-status", domain.JobCompleted)
	return nil
}

// RenderFailed writes the failure badge carrying message as its tooltip.
func (t *Table) RenderFailed(siteID, message string) error {
	badge, err := FailureBadge(message)
	if err != nil {
		return fmt.Errorf("rendering failure badge: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	row, status, _, err := t.cells(siteID)
	if err != nil {
		return err
	}
	status.SetHtml(badge)
	row.SetAttr("data-status", domain.JobFailed)
	return nil
}

// RenderTimedOut writes the neutral timeout badge.
func (t *Table) RenderTimedOut(siteID string) error {
	badge, err := TimeoutBadge()
	if err != nil {
		return fmt.Errorf("rendering timeout badge: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	row, status, _, err := t.cells(siteID)
	if err != nil {
		return err
	}
	status.SetHtml(badge)
	row.SetAttr("data-status", string(domain.StateTimedOut))
	return nil
}

// MarkStatus sets the row's data-status attribute without touching its cells.
func (t *Table) MarkStatus(siteID, status string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	row := t.doc.Find(rowSelector(siteID)).First()
	if row.Length() == 0 {
		return fmt.Errorf("%w: %s", ErrRowNotFound, siteID)
	}
	row.SetAttr("data-status", status)
	return nil
}

// SetPublished reflects a publish state on the switch and its label.
func (t *Table) SetPublished(siteID string, published bool) error {
	label, err := PublishLabel(published)
	if err != nil {
		return fmt.Errorf("rendering publish label: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	row := t.doc.Find(rowSelector(siteID)).First()
	input := row.Find(".toggle-publish-status").First()
	if input.Length() == 0 {
		return fmt.Errorf("%w: %s has no publish switch", ErrRowNotFound, siteID)
	}
	if published {
		input.SetAttr("checked", "")
	} else {
		input.RemoveAttr("checked")
	}
	row.Find(fmt.Sprintf(`label[for="publish-status-%s"]`, escapeAttr(siteID))).SetHtml(label)
	return nil
}

// SetName updates the name carried by the row's rename and delete controls.
func (t *Table) SetName(siteID, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	row := t.doc.Find(rowSelector(siteID)).First()
	if row.Length() == 0 {
		return fmt.Errorf("%w: %s", ErrRowNotFound, siteID)
	}
	row.Find("[data-site-name]").SetAttr("data-site-name", name)
	row.Find(".site-name").SetText(name)
	return nil
}

// RemoveRow deletes the site's row.
func (t *Table) RemoveRow(siteID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	row := t.doc.Find(rowSelector(siteID))
	if row.Length() == 0 {
		return fmt.Errorf("%w: %s", ErrRowNotFound, siteID)
	}
	row.Remove()
	return nil
}

// Controls parses the interactive elements currently rendered in a row.
func (t *Table) Controls(siteID string) ([]Control, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row := t.doc.Find(rowSelector(siteID)).First()
	if row.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRowNotFound, siteID)
	}

	var controls []Control
	for _, kind := range []ControlKind{ControlPreview, ControlRename, ControlDelete, ControlToggle} {
		row.Find(controlSelectors[kind]).Each(func(i int, s *goquery.Selection) {
			c := Control{Kind: kind, SiteID: s.AttrOr("data-site-id", siteID)}
			c.Name = s.AttrOr("data-site-name", "")
			c.URL = s.AttrOr("data-site-url", "")
			_, c.Checked = s.Attr("checked")
			controls = append(controls, c)
		})
	}
	return controls, nil
}

// HTML serializes the whole page.
func (t *Table) HTML() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.doc.Html()
}

// CellHTML returns the inner markup of a row's status and actions cells.
func (t *Table) CellHTML(siteID string) (status, actions string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, s, a, err := t.cells(siteID)
	if err != nil {
		return "", "", err
	}
	if status, err = s.Html(); err != nil {
		return "", "", err
	}
	if actions, err = a.Html(); err != nil {
		return "", "", err
	}
	return status, actions, nil
}
