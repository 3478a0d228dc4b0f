package metadata

import (
	"fmt"
	"time"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/models"
	"github.com/goccy/go-json"
)

const (
	// PostFile is written into each post directory
	PostFile = "metadata.json"
	// FanclubFile is written into each fan club directory
	FanclubFile = "fanclub.json"
)

// FileWriter is the subset of storage the dumps need
type FileWriter interface {
	WriteFile(rel string, data []byte) error
}

// PostMetadata is the metadata.json dump of a post
type PostMetadata struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Comment      string            `json:"comment,omitempty"`
	PostedAt     string            `json:"posted_at"`
	URL          string            `json:"url"`
	Thumbnail    string            `json:"thumbnail,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Fanclub      FanclubRef        `json:"fanclub"`
	Contents     []ContentMetadata `json:"contents"`
	Complete     bool              `json:"complete"`
	DownloadedAt time.Time         `json:"downloaded_at"`
}

// FanclubRef identifies the fan club a post belongs to
type FanclubRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Creator string `json:"creator"`
}

// ContentMetadata summarises one post content
type ContentMetadata struct {
	ID       string   `json:"id"`
	Title    string   `json:"title,omitempty"`
	Category string   `json:"category"`
	Visible  bool     `json:"visible"`
	Comment  string   `json:"comment,omitempty"`
	Plan     string   `json:"plan,omitempty"`
	Files    []string `json:"files,omitempty"`
}

// FanclubMetadata is the fanclub.json dump
type FanclubMetadata struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Creator  string    `json:"creator"`
	Title    string    `json:"title,omitempty"`
	Comment  string    `json:"comment,omitempty"`
	URL      string    `json:"url"`
	Icon     string    `json:"icon,omitempty"`
	Cover    string    `json:"cover,omitempty"`
	DumpedAt time.Time `json:"dumped_at"`
}

// FromPost converts an API post; files maps content ids to the names written for them
func FromPost(baseURL string, post *models.Post, files map[string][]string, complete bool) *PostMetadata {
	meta := &PostMetadata{
		ID:       post.IDString(),
		Title:    post.Title,
		Comment:  post.Comment,
		PostedAt: post.PostedAt,
		URL:      fmt.Sprintf("%s/posts/%d", baseURL, post.ID),
		Fanclub: FanclubRef{
			ID:      post.Fanclub.IDString(),
			Name:    post.Fanclub.DisplayName(),
			Creator: post.Fanclub.Creator(),
		},
		Contents:     make([]ContentMetadata, 0, len(post.PostContents)),
		Complete:     complete,
		DownloadedAt: time.Now(),
	}
	if post.Thumb != nil {
		meta.Thumbnail = post.Thumb.Original
	}
	for _, tag := range post.Tags {
		meta.Tags = append(meta.Tags, tag.Name)
	}

	for i := range post.PostContents {
		c := &post.PostContents[i]
		cm := ContentMetadata{
			ID:       c.IDString(),
			Title:    c.Title,
			Category: c.Category,
			Visible:  c.IsVisible(),
			Comment:  c.Comment,
			Files:    files[c.IDString()],
		}
		if c.Plan != nil {
			cm.Plan = c.Plan.Name
		}
		meta.Contents = append(meta.Contents, cm)
	}

	return meta
}

// FromFanclub converts an API fan club
func FromFanclub(baseURL string, fc *models.Fanclub) *FanclubMetadata {
	meta := &FanclubMetadata{
		ID:       fc.IDString(),
		Name:     fc.DisplayName(),
		Creator:  fc.Creator(),
		Title:    fc.Title,
		Comment:  fc.Comment,
		URL:      fmt.Sprintf("%s/fanclubs/%d", baseURL, fc.ID),
		DumpedAt: time.Now(),
	}
	if fc.Icon != nil {
		meta.Icon = fc.Icon.Original
	}
	if fc.Cover != nil {
		meta.Cover = fc.Cover.Original
	}
	return meta
}

// Save writes v as indented JSON to rel
func Save(w FileWriter, rel string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := w.WriteFile(rel, data); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}
