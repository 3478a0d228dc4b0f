package fantia

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlogImages(t *testing.T) {
	comment := `{"ops":[
		{"insert":"hello\n"},
		{"insert":{"fantiaImage":{"id":11,"url":"/images/11/small.jpg","original_url":"/images/11/original.jpg"}}},
		{"insert":{"fantiaImage":{"id":"12","url":"https://cc.fantia.jp/12.png"}}},
		{"insert":{"image":"https://cc.fantia.jp/raw.gif"}}
	]}`

	images, err := BlogImages(BaseURL, comment)
	require.NoError(t, err)
	require.Len(t, images, 3)

	assert.Equal(t, BlogImage{ID: "11", URL: "https://fantia.jp/images/11/original.jpg"}, images[0])
	assert.Equal(t, BlogImage{ID: "12", URL: "https://cc.fantia.jp/12.png"}, images[1])
	assert.Equal(t, BlogImage{ID: "3", URL: "https://cc.fantia.jp/raw.gif"}, images[2])
}

func TestBlogImagesEmptyAndInvalid(t *testing.T) {
	images, err := BlogImages(BaseURL, "")
	assert.NoError(t, err)
	assert.Empty(t, images)

	_, err = BlogImages(BaseURL, "{not json")
	assert.Error(t, err)
}
