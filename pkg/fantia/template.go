package fantia

import (
	"path"
	"strings"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/storage"
)

// Template tokens understood in file and directory name templates
const (
	TokenFanclubID    = "[fanclub_id]"
	TokenFanclubName  = "[fanclub_name]"
	TokenCreatorName  = "[creator_name]"
	TokenPostID       = "[post_id]"
	TokenTitle        = "[title]"
	TokenPostedAt     = "[posted_at]"
	TokenPostedShort  = "[posted_short]"
	TokenContentID    = "[content_id]"
	TokenContentTitle = "[content_title]"
	TokenFileID       = "[file_id]"
	TokenFilename     = "[filename]"
	TokenExt          = "[ext]"
)

// Values fills template tokens. Ext carries no leading dot.
type Values struct {
	FanclubID    string
	FanclubName  string
	CreatorName  string
	PostID       string
	Title        string
	PostedAt     string
	PostedShort  string
	ContentID    string
	ContentTitle string
	FileID       string
	Filename     string
	Ext          string
}

func (v Values) replacer() *strings.Replacer {
	return strings.NewReplacer(
		TokenFanclubID, v.FanclubID,
		TokenFanclubName, v.FanclubName,
		TokenCreatorName, v.CreatorName,
		TokenPostID, v.PostID,
		TokenTitle, v.Title,
		TokenPostedAt, v.PostedAt,
		TokenPostedShort, v.PostedShort,
		TokenContentID, v.ContentID,
		TokenContentTitle, v.ContentTitle,
		TokenFileID, v.FileID,
		TokenFilename, v.Filename,
		TokenExt, v.Ext,
	)
}

// RenderDir expands a "/" separated directory template. Each rendered
// component is sanitised on its own, so slashes inside values never add levels.
func RenderDir(tmpl string, v Values) string {
	r := v.replacer()
	var parts []string
	for _, segment := range strings.Split(tmpl, "/") {
		if segment == "" {
			continue
		}
		parts = append(parts, storage.SanitizeName(r.Replace(segment)))
	}
	return path.Join(parts...)
}

// RenderFile expands a file name template. The extension is appended unless
// the template places [ext] itself. Long names lose the end of their stem,
// never the extension.
func RenderFile(tmpl string, v Values) string {
	name := v.replacer().Replace(tmpl)
	if v.Ext == "" {
		return storage.SanitizeFileName(name, "")
	}
	if !strings.Contains(tmpl, TokenExt) {
		return storage.SanitizeFileName(name, v.Ext)
	}
	if stem, ok := strings.CutSuffix(name, "."+v.Ext); ok {
		return storage.SanitizeFileName(stem, v.Ext)
	}
	return storage.SanitizeFileName(name, "")
}

// splitExt returns the name without extension and the extension without dot
func splitExt(name string) (string, string) {
	ext := path.Ext(name)
	if ext == "" || ext == "." {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), strings.ToLower(strings.TrimPrefix(ext, "."))
}
