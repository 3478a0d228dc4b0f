package fantia

import (
	"fmt"
	"strconv"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/models"
	"github.com/goccy/go-json"
)

// BlogImage is an image embedded in a blog content
type BlogImage struct {
	ID  string
	URL string
}

// BlogImages extracts the embedded images from a blog_comment Quill delta,
// resolving site-relative URLs against base.
func BlogImages(base, blogComment string) ([]BlogImage, error) {
	if blogComment == "" {
		return nil, nil
	}

	var delta models.BlogDelta
	if err := json.Unmarshal([]byte(blogComment), &delta); err != nil {
		return nil, fmt.Errorf("failed to parse blog content: %w", err)
	}

	var images []BlogImage
	for i, op := range delta.Ops {
		embed, ok := op.Insert.(map[string]interface{})
		if !ok {
			continue
		}

		if img, ok := embed["fantiaImage"].(map[string]interface{}); ok {
			ref, _ := img["original_url"].(string)
			if ref == "" {
				ref, _ = img["url"].(string)
			}
			if ref == "" {
				continue
			}
			images = append(images, BlogImage{
				ID:  embedID(img["id"], i),
				URL: AbsoluteURL(base, ref),
			})
			continue
		}

		if ref, ok := embed["image"].(string); ok && ref != "" {
			images = append(images, BlogImage{ID: strconv.Itoa(i), URL: AbsoluteURL(base, ref)})
		}
	}
	return images, nil
}

func embedID(v interface{}, fallback int) string {
	switch id := v.(type) {
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case string:
		if id != "" {
			return id
		}
	}
	return strconv.Itoa(fallback)
}
