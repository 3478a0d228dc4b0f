package fantia

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	fterrors "github.com/Rusty-starlightExpress/fantiadl/pkg/errors"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/logger"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/metadata"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/models"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/ratelimit"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/storage"
	"github.com/spf13/afero"
)

const incompleteMarker = ".incomplete"

// Downloader fetches Fantia posts into the output directory
type Downloader struct {
	opts   Options
	client *Client
	store  *storage.Manager
	logger logger.Logger
}

// New creates a downloader. fs may be nil for the OS filesystem.
func New(opts Options, fs afero.Fs, log logger.Logger) (*Downloader, error) {
	opts.applyDefaults()
	if log == nil {
		log = logger.NewNopLogger()
	}

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if opts.RequestsPerMinute > 0 {
		limiter = ratelimit.NewTokenBucket(opts.RequestsPerMinute, opts.Burst)
	}

	client, err := NewClient(ClientOptions{
		BaseURL:   opts.BaseURL,
		SessionID: opts.SessionID,
		UserAgent: opts.UserAgent,
		Timeout:   opts.Timeout,
		Limiter:   limiter,
		Retry:     opts.Retry,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	store, err := storage.NewManager(fs, opts.Directory)
	if err != nil {
		return nil, err
	}
	if opts.ExcludeFile != "" {
		if err := store.LoadExclusions(opts.ExcludeFile); err != nil {
			return nil, err
		}
	}

	log.DebugWithFields("Downloader ready", map[string]interface{}{
		"directory": store.Root(),
		"base_url":  client.BaseURL(),
	})

	return &Downloader{opts: opts, client: client, store: store, logger: log}, nil
}

func (d *Downloader) progress(msg string, fields map[string]interface{}) {
	if d.opts.Quiet {
		d.logger.DebugWithFields(msg, fields)
		return
	}
	d.logger.InfoWithFields(msg, fields)
}

// FetchFanclubPostsSince lists the fan club's posts newer than sincePostID,
// oldest first. An empty sincePostID lists every post. With a post limit only
// the oldest limit posts are returned.
//
// Listing order is not strictly by id, pinned posts come first, so paging
// stops only at the cursor post itself. When the cursor post is gone the
// whole listing is read and cut after the last id above the cursor.
func (d *Downloader) FetchFanclubPostsSince(ctx context.Context, fanclubID, sincePostID string) ([]string, error) {
	var newestFirst []string
	seen := make(map[string]struct{})
	reached := false

	for page := 1; !reached; page++ {
		doc, err := d.client.GetDocument(ctx, FanclubPostsURL(d.opts.BaseURL, fanclubID, page))
		if err != nil {
			return nil, fmt.Errorf("failed to list posts of fan club %s: %w", fanclubID, err)
		}

		pageIDs := postIDsOnPage(doc)
		if len(pageIDs) == 0 {
			break
		}

		added := 0
		for _, id := range pageIDs {
			if sincePostID != "" && id == sincePostID {
				reached = true
				break
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			newestFirst = append(newestFirst, id)
			added++
		}
		if added == 0 {
			break
		}
	}

	if !reached && sincePostID != "" {
		newestFirst = cutAtDeletedCursor(newestFirst, sincePostID)
	}

	ids := make([]string, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		ids = append(ids, newestFirst[i])
	}
	if d.opts.PostLimit > 0 && len(ids) > d.opts.PostLimit {
		ids = ids[:d.opts.PostLimit]
	}

	d.logger.DebugWithFields("Fan club posts listed", map[string]interface{}{
		"fanclub_id":    fanclubID,
		"since":         sincePostID,
		"cursor_listed": reached,
		"new_posts":     len(ids),
	})
	return ids, nil
}

func postIDsOnPage(doc *goquery.Document) []string {
	var ids []string
	doc.Find("a.link-block").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if u, err := url.Parse(href); err == nil {
			if id, ok := PostIDFromPath(u.Path); ok {
				ids = append(ids, id)
			}
		}
	})
	return ids
}

// cutAtDeletedCursor keeps the newest-first ids up to and including the last
// one numerically above since. Non-numeric cursors keep everything.
func cutAtDeletedCursor(newestFirst []string, since string) []string {
	cursor, err := strconv.ParseInt(since, 10, 64)
	if err != nil {
		return newestFirst
	}

	last := -1
	for i, id := range newestFirst {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > cursor {
			last = i
		}
	}
	return newestFirst[:last+1]
}

// FetchPost loads a post from the API
func (d *Downloader) FetchPost(ctx context.Context, postID string) (*models.Post, error) {
	token, err := d.client.CSRFToken(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get csrf token: %w", err)
	}

	var resp models.PostResponse
	headers := map[string]string{
		"X-CSRF-Token":     token,
		"X-Requested-With": "XMLHttpRequest",
		"Referer":          PostPageURL(d.opts.BaseURL, postID),
	}
	if err := d.client.GetJSON(ctx, PostAPIURL(d.opts.BaseURL, postID), headers, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch post: %w", err)
	}
	if resp.Redirect != "" {
		return nil, fterrors.New(fterrors.ErrorTypeAuth, 0, "fantia requested a verification step at %s", resp.Redirect)
	}
	return &resp.Post, nil
}

// DownloadPost downloads every visible content of a post
func (d *Downloader) DownloadPost(ctx context.Context, postID string) error {
	post, err := d.FetchPost(ctx, postID)
	if err != nil {
		return err
	}

	if d.opts.Month != "" {
		posted := post.PostedTime()
		if posted.IsZero() || posted.Format("2006-01") != d.opts.Month {
			d.logger.DebugWithFields("Post outside month filter", map[string]interface{}{
				"post_id":   postID,
				"posted_at": post.PostedAt,
				"month":     d.opts.Month,
			})
			return nil
		}
	}

	vals := postValues(post)
	dir := RenderDir(d.opts.SubdirName, vals)
	if err := d.store.MkdirAll(dir); err != nil {
		return err
	}
	savedBefore := d.store.SavedCount()

	marker := path.Join(dir, incompleteMarker)
	if d.opts.MarkIncompletePosts {
		if err := d.store.Touch(marker); err != nil {
			return err
		}
	}

	d.progress("Downloading post", map[string]interface{}{
		"post_id": postID,
		"title":   post.Title,
		"dir":     dir,
	})

	if d.opts.DownloadThumbnail && post.Thumb != nil && post.Thumb.Original != "" {
		tv := vals
		tv.FileID = "thumb"
		if _, err := d.saveFile(ctx, dir, post.Thumb.Original, serverName(post.Thumb.Original), tv); err != nil {
			return fmt.Errorf("failed to download thumbnail: %w", err)
		}
	}

	complete := true
	files := make(map[string][]string)
	for i := range post.PostContents {
		content := &post.PostContents[i]
		if !content.IsVisible() {
			complete = false
			d.logger.DebugWithFields("Content not visible with current plan", map[string]interface{}{
				"post_id":    postID,
				"content_id": content.ID,
				"status":     content.VisibleStatus,
			})
			continue
		}

		names, err := d.downloadContent(ctx, dir, content, vals)
		if err != nil {
			return fmt.Errorf("content %d: %w", content.ID, err)
		}
		files[content.IDString()] = names
	}

	if d.opts.ParseExternalLinks {
		texts := []string{post.Comment}
		for _, c := range post.PostContents {
			texts = append(texts, c.Comment)
		}
		if links := metadata.ExtractLinks(texts...); len(links) > 0 {
			if err := d.store.WriteFile(path.Join(dir, metadata.LinksFile), metadata.FormatLinks(links)); err != nil {
				return err
			}
		}
	}

	if d.opts.DumpMetadata {
		meta := metadata.FromPost(d.opts.BaseURL, post, files, complete)
		if err := metadata.Save(d.store, path.Join(dir, metadata.PostFile), meta); err != nil {
			return err
		}
	}

	if d.opts.MarkIncompletePosts && complete {
		if err := d.store.Remove(marker); err != nil {
			return err
		}
	}

	// Counts every write, metadata and links files included
	d.progress("Post downloaded", map[string]interface{}{
		"post_id":     postID,
		"files_saved": d.store.SavedCount() - savedBefore,
		"complete":    complete,
	})
	return nil
}

func (d *Downloader) downloadContent(ctx context.Context, dir string, content *models.PostContent, vals Values) ([]string, error) {
	vals.ContentID = content.IDString()
	vals.ContentTitle = content.Title

	var names []string
	save := func(fileID, rawURL, server string) error {
		v := vals
		v.FileID = fileID
		name, err := d.saveFile(ctx, dir, rawURL, server, v)
		if err != nil {
			return err
		}
		if name != "" {
			names = append(names, name)
		}
		return nil
	}

	switch content.Category {
	case models.CategoryPhotoGallery:
		for _, photo := range content.PostContentPhotos {
			if photo.URL.Original == "" {
				continue
			}
			if err := save(strconv.FormatInt(photo.ID, 10), photo.URL.Original, serverName(photo.URL.Original)); err != nil {
				return names, err
			}
		}
	case models.CategoryFile:
		if content.DownloadURI == "" {
			return nil, nil
		}
		server := content.Filename
		if server == "" {
			server = serverName(content.DownloadURI)
		}
		if err := save(content.IDString(), AbsoluteURL(d.opts.BaseURL, content.DownloadURI), server); err != nil {
			return names, err
		}
	case models.CategoryBlog:
		images, err := BlogImages(d.opts.BaseURL, content.BlogComment)
		if err != nil {
			return nil, err
		}
		for _, img := range images {
			if err := save(img.ID, img.URL, serverName(img.URL)); err != nil {
				return names, err
			}
		}
	}

	return names, nil
}

// saveFile downloads rawURL into dir and returns the file name used, or ""
// when the name is excluded.
func (d *Downloader) saveFile(ctx context.Context, dir, rawURL, server string, vals Values) (string, error) {
	vals.Filename, vals.Ext = splitExt(server)

	name := RenderFile(d.opts.Filename, vals)
	if d.opts.UseServerFilenames && server != "" {
		ext := path.Ext(server)
		name = storage.SanitizeFileName(strings.TrimSuffix(server, ext), strings.TrimPrefix(ext, "."))
	}

	if d.store.IsExcluded(name) {
		d.logger.DebugWithFields("File excluded", map[string]interface{}{"file": name})
		return "", nil
	}

	rel := path.Join(dir, name)
	if d.store.Exists(rel) {
		d.logger.DebugWithFields("File already downloaded", map[string]interface{}{"file": rel})
		return name, nil
	}

	err := d.client.Fetch(ctx, rawURL, func(r io.Reader) error {
		_, err := d.store.Save(rel, r)
		return err
	})
	if err != nil {
		return "", err
	}

	d.logger.DebugWithFields("File saved", map[string]interface{}{"file": rel})
	return name, nil
}

func serverName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return path.Base(rawURL)
	}
	return path.Base(u.Path)
}

func postValues(post *models.Post) Values {
	v := Values{
		FanclubID:   post.Fanclub.IDString(),
		FanclubName: post.Fanclub.DisplayName(),
		CreatorName: post.Fanclub.Creator(),
		PostID:      post.IDString(),
		Title:       post.Title,
	}
	if t := post.PostedTime(); !t.IsZero() {
		v.PostedAt = t.Format("2006-01-02_1504")
		v.PostedShort = t.Format("2006-01-02")
	}
	return v
}

// FanclubInfo loads fan club details
func (d *Downloader) FanclubInfo(ctx context.Context, fanclubID string) (*models.Fanclub, error) {
	var resp models.FanclubResponse
	if err := d.client.GetJSON(ctx, FanclubAPIURL(d.opts.BaseURL, fanclubID), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch fan club %s: %w", fanclubID, err)
	}
	return &resp.Fanclub, nil
}

// DownloadFanclub downloads every post of a fan club
func (d *Downloader) DownloadFanclub(ctx context.Context, fanclubID string) error {
	if d.opts.DumpMetadata {
		if err := d.dumpFanclub(ctx, fanclubID); err != nil {
			if !d.opts.ContinueOnError {
				return err
			}
			d.logger.WithError(err).Warn("Fan club metadata skipped")
		}
	}

	ids, err := d.FetchFanclubPostsSince(ctx, fanclubID, "")
	if err != nil {
		return err
	}
	return d.downloadPosts(ctx, ids)
}

func (d *Downloader) dumpFanclub(ctx context.Context, fanclubID string) error {
	fc, err := d.FanclubInfo(ctx, fanclubID)
	if err != nil {
		return err
	}

	vals := Values{
		FanclubID:   fc.IDString(),
		FanclubName: fc.DisplayName(),
		CreatorName: fc.Creator(),
	}
	root := strings.SplitN(d.opts.SubdirName, "/", 2)[0]
	dir := RenderDir(root, vals)
	if err := d.store.MkdirAll(dir); err != nil {
		return err
	}

	if err := metadata.Save(d.store, path.Join(dir, metadata.FanclubFile), metadata.FromFanclub(d.opts.BaseURL, fc)); err != nil {
		return err
	}

	images := map[string]*models.Image{"icon": fc.Icon, "cover": fc.Cover}
	for _, kind := range []string{"icon", "cover"} {
		img := images[kind]
		if img == nil || img.Original == "" {
			continue
		}
		_, ext := splitExt(serverName(img.Original))
		name := kind
		if ext != "" {
			name += "." + ext
		}
		rel := path.Join(dir, name)
		err := d.client.Fetch(ctx, img.Original, func(r io.Reader) error {
			_, err := d.store.Save(rel, r)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to download fan club %s: %w", kind, err)
		}
	}
	return nil
}

func (d *Downloader) downloadPosts(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := d.DownloadPost(ctx, id); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !d.opts.ContinueOnError {
				return fmt.Errorf("post %s: %w", id, err)
			}
			d.logger.WithFields(map[string]interface{}{
				"post_id":    id,
				"error_type": string(fterrors.TypeOf(err)),
			}).WithError(err).Warn("Post failed, continuing")
		}
	}
	return nil
}

// FollowedFanclubs returns the ids of the fan clubs the session follows
func (d *Downloader) FollowedFanclubs(ctx context.Context) ([]string, error) {
	var resp models.FollowedFanclubsResponse
	if err := d.client.GetJSON(ctx, FollowedFanclubsURL(d.opts.BaseURL), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch followed fan clubs: %w", err)
	}

	ids := make([]string, 0, len(resp.FanclubIDs))
	for _, id := range resp.FanclubIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	return ids, nil
}

// PaidFanclubs returns the ids of the fan clubs with a paid plan
func (d *Downloader) PaidFanclubs(ctx context.Context) ([]string, error) {
	var ids []string
	seen := make(map[string]struct{})

	for page := 1; ; page++ {
		doc, err := d.client.GetDocument(ctx, PaidPlansURL(d.opts.BaseURL, page))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch paid plans: %w", err)
		}

		added := 0
		doc.Find(`a[href^="/fanclubs/"]`).Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			id, ok := FanclubIDFromPath(href)
			if !ok {
				return
			}
			if _, dup := seen[id]; dup {
				return
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
			added++
		})
		if added == 0 {
			break
		}
	}
	return ids, nil
}

// DownloadPaidFanclubs downloads every fan club with a paid plan
func (d *Downloader) DownloadPaidFanclubs(ctx context.Context) error {
	ids, err := d.PaidFanclubs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := d.DownloadFanclub(ctx, id); err != nil {
			if ctx.Err() != nil || !d.opts.ContinueOnError {
				return err
			}
			d.logger.WithFields(map[string]interface{}{
				"fanclub_id": id,
				"error_type": string(fterrors.TypeOf(err)),
			}).WithError(err).Warn("Fan club failed, continuing")
		}
	}
	return nil
}

// DownloadNewPosts downloads the n newest posts of the session's timeline
func (d *Downloader) DownloadNewPosts(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}

	var ids []string
	for page := 1; len(ids) < n; page++ {
		var resp models.TimelineResponse
		if err := d.client.GetJSON(ctx, TimelineURL(d.opts.BaseURL, page), nil, &resp); err != nil {
			return fmt.Errorf("failed to fetch timeline: %w", err)
		}
		for _, p := range resp.Posts {
			if len(ids) == n {
				break
			}
			ids = append(ids, p.IDString())
		}
		if !resp.HasNext || len(resp.Posts) == 0 {
			break
		}
	}

	return d.downloadPosts(ctx, ids)
}

// DownloadURL downloads a fantia.jp post or fan club URL
func (d *Downloader) DownloadURL(ctx context.Context, rawURL string) error {
	kind, id := ParseURL(rawURL)
	switch kind {
	case URLPost:
		return d.DownloadPost(ctx, id)
	case URLFanclub:
		return d.DownloadFanclub(ctx, id)
	default:
		return fmt.Errorf("unsupported URL: %s", rawURL)
	}
}
