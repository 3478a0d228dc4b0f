package models

import (
	"strconv"
	"time"
)

// Content categories returned by the post API
const (
	CategoryPhotoGallery = "photo_gallery"
	CategoryFile         = "file"
	CategoryBlog         = "blog"
	CategoryText         = "text"
	CategoryProduct      = "product"
)

// VisibleStatusVisible marks contents the session may download
const VisibleStatusVisible = "visible"

// PostedAtLayout is the timestamp format of posted_at
const PostedAtLayout = time.RFC1123Z

// PostResponse is the body of GET /api/v1/posts/{id}
type PostResponse struct {
	Post     Post   `json:"post"`
	Redirect string `json:"redirect,omitempty"`
}

// Post is a Fantia post with its contents
type Post struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	Comment      string        `json:"comment"`
	PostedAt     string        `json:"posted_at"`
	ConvertedAt  string        `json:"converted_at,omitempty"`
	Thumb        *Image        `json:"thumb"`
	Fanclub      Fanclub       `json:"fanclub"`
	PostContents []PostContent `json:"post_contents"`
	Tags         []Tag         `json:"tags,omitempty"`
}

// IDString returns the post id as used in URLs and the progress record
func (p *Post) IDString() string {
	return strconv.FormatInt(p.ID, 10)
}

// PostedTime parses posted_at, returning the zero time if it is malformed
func (p *Post) PostedTime() time.Time {
	t, err := time.Parse(PostedAtLayout, p.PostedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Image is an image reference with size variants
type Image struct {
	Thumb    string `json:"thumb,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Main     string `json:"main,omitempty"`
	Original string `json:"original"`
}

// Tag is a post tag
type Tag struct {
	Name string `json:"name"`
}

// Fanclub describes a fan club
type Fanclub struct {
	ID          int64  `json:"id"`
	Name        string `json:"name,omitempty"`
	FanclubName string `json:"fanclub_name"`
	CreatorName string `json:"creator_name"`
	Title       string `json:"title,omitempty"`
	Comment     string `json:"comment,omitempty"`
	User        User   `json:"user"`
	Icon        *Image `json:"icon"`
	Cover       *Image `json:"cover"`
}

// IDString returns the fan club id as used in URLs and the progress record
func (f *Fanclub) IDString() string {
	return strconv.FormatInt(f.ID, 10)
}

// DisplayName prefers the fan club name, falling back to the creator
func (f *Fanclub) DisplayName() string {
	switch {
	case f.FanclubName != "":
		return f.FanclubName
	case f.Name != "":
		return f.Name
	case f.CreatorName != "":
		return f.CreatorName
	default:
		return f.User.Name
	}
}

// Creator returns the creator name, falling back to the owning user
func (f *Fanclub) Creator() string {
	if f.CreatorName != "" {
		return f.CreatorName
	}
	return f.User.Name
}

// User is a Fantia account
type User struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// PostContent is one section of a post
type PostContent struct {
	ID                int64   `json:"id"`
	Title             string  `json:"title"`
	Category          string  `json:"category"`
	VisibleStatus     string  `json:"visible_status"`
	Comment           string  `json:"comment"`
	PostContentPhotos []Photo `json:"post_content_photos"`
	DownloadURI       string  `json:"download_uri"`
	Filename          string  `json:"filename"`
	BlogComment       string  `json:"blog_comment"`
	Plan              *Plan   `json:"plan,omitempty"`
}

// IsVisible reports whether the session may download this content
func (c *PostContent) IsVisible() bool {
	return c.VisibleStatus == VisibleStatusVisible
}

// IDString returns the content id
func (c *PostContent) IDString() string {
	return strconv.FormatInt(c.ID, 10)
}

// Photo is an image in a photo gallery
type Photo struct {
	ID  int64 `json:"id"`
	URL Image `json:"url"`
}

// Plan is the subscription plan gating a content
type Plan struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
}

// BlogDelta is the Quill delta stored in blog_comment
type BlogDelta struct {
	Ops []BlogOp `json:"ops"`
}

// BlogOp is one delta operation; Insert is either text or an embed object
type BlogOp struct {
	Insert interface{} `json:"insert"`
}

// FanclubResponse is the body of GET /api/v1/fanclubs/{id}
type FanclubResponse struct {
	Fanclub Fanclub `json:"fanclub"`
}

// FollowedFanclubsResponse is the body of GET /api/v1/me/fanclubs
type FollowedFanclubsResponse struct {
	FanclubIDs []int64 `json:"fanclub_ids"`
}

// TimelineResponse is the body of GET /api/v1/me/timelines/posts
type TimelineResponse struct {
	Posts   []Post `json:"posts"`
	HasNext bool   `json:"has_next"`
}
