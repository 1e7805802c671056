package domain

// CommandType names the kind of action a rendered control emits.
type CommandType string

const (
	CommandPreview       CommandType = "preview"
	CommandRename        CommandType = "rename"
	CommandDelete        CommandType = "delete"
	CommandTogglePublish CommandType = "toggle_publish"
)

// Command is emitted by a site row control.
type Command interface {
	Type() CommandType
	Site() string
}

type Preview struct {
	SiteID string
	URL    string
}

type Rename struct {
	SiteID string
	Name   string
}

type Delete struct {
	SiteID string
	Name   string
}

type TogglePublish struct {
	SiteID  string
	Checked bool
}

func (c Preview) Type() CommandType       { return CommandPreview }
func (c Preview) Site() string            { return c.SiteID }
func (c Rename) Type() CommandType        { return CommandRename }
func (c Rename) Site() string             { return c.SiteID }
func (c Delete) Type() CommandType        { return CommandDelete }
func (c Delete) Site() string             { return c.SiteID }
func (c TogglePublish) Type() CommandType { return CommandTogglePublish }
func (c TogglePublish) Site() string      { return c.SiteID }

// CommandResult is what a dispatched command reports back to its caller.
type CommandResult struct {
	Message     string `json:"message"`
	IsPublished *bool  `json:"is_published,omitempty"`
	Name        string `json:"name,omitempty"`
	PreviewURL  string `json:"preview_url,omitempty"`
	Title       string `json:"title,omitempty"`
	Screenshot  []byte `json:"screenshot,omitempty"`
}
