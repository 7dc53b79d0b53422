package catalog

import "time"

// Pack is a themed collection of runnable snippets, stored as one YAML
// file on disk.
type Pack struct {
	ID          string    `yaml:"id" json:"id"`
	Title       string    `yaml:"title" json:"title"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Topic       string    `yaml:"topic,omitempty" json:"topic,omitempty"`
	Snippets    []Snippet `yaml:"snippets" json:"snippets"`
	CreatedAt   time.Time `yaml:"-" json:"created_at"`
	UpdatedAt   time.Time `yaml:"-" json:"updated_at"`
}

// Snippet is one runnable example inside a pack.
type Snippet struct {
	ID     string   `yaml:"id" json:"id"`
	Title  string   `yaml:"title" json:"title"`
	Note   string   `yaml:"note,omitempty" json:"note,omitempty"`
	Source string   `yaml:"source" json:"source"`
	Expect string   `yaml:"expect,omitempty" json:"expect,omitempty"`
	Tags   []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// PackMetadata is the listing view of a pack, without snippet bodies
type PackMetadata struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Topic        string    `json:"topic,omitempty"`
	SnippetCount int       `json:"snippet_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToMetadata converts a pack to its listing view
func (p *Pack) ToMetadata() PackMetadata {
	return PackMetadata{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Topic:        p.Topic,
		SnippetCount: len(p.Snippets),
		UpdatedAt:    p.UpdatedAt,
	}
}

// Match is one search hit
type Match struct {
	PackID  string  `json:"pack_id"`
	Snippet Snippet `json:"snippet"`
	Score   float64 `json:"score"`
}

// Stats summarizes catalog contents
type Stats struct {
	TotalPacks    int            `json:"total_packs"`
	TotalSnippets int            `json:"total_snippets"`
	Topics        map[string]int `json:"topics"`
	LastUpdated   *time.Time     `json:"last_updated,omitempty"`
}
