// Package fantia downloads posts from fantia.jp.
//
// This package includes:
//   - A session cookie HTTP client with rate limiting and typed errors
//   - Fan club post listing by scraping the newest-first post index
//   - Post downloads for photo galleries, file attachments and blog images
//   - File and directory name templates
//
// Example usage:
//
//	dl, err := fantia.New(fantia.Options{SessionID: sid, Directory: "out"}, nil, log)
//	if err != nil {
//	    return err
//	}
//
//	ids, err := dl.FetchFanclubPostsSince(ctx, "12345", "67890")
//	for _, id := range ids {
//	    if err := dl.DownloadPost(ctx, id); err != nil {
//	        return err
//	    }
//	}
package fantia
