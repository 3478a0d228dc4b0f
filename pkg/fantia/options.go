package fantia

import (
	"time"

	"github.com/Rusty-starlightExpress/fantiadl/pkg/config"
	"github.com/Rusty-starlightExpress/fantiadl/pkg/retry"
)

// Options is the immutable configuration of a Downloader
type Options struct {
	SessionID string
	BaseURL   string
	UserAgent string

	Directory  string
	Filename   string
	SubdirName string

	Quiet               bool
	ContinueOnError     bool
	PostLimit           int
	Month               string
	ExcludeFile         string
	DumpMetadata        bool
	ParseExternalLinks  bool
	DownloadThumbnail   bool
	UseServerFilenames  bool
	MarkIncompletePosts bool

	Timeout           time.Duration
	RequestsPerMinute int
	Burst             int
	Retry             retry.Policy
}

// OptionsFromConfig derives downloader options from the loaded configuration
func OptionsFromConfig(cfg *config.Config, sessionID string) Options {
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.Retry.MaxAttempts
	policy.Backoff = &retry.ExponentialBackoff{
		BaseDelay:    cfg.Retry.InitialDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
		Multiplier:   cfg.Retry.BackoffMultiplier,
		JitterFactor: 0.1,
	}

	return Options{
		SessionID:           sessionID,
		BaseURL:             cfg.Fantia.BaseURL,
		UserAgent:           cfg.Fantia.UserAgent,
		Directory:           cfg.Output.Directory,
		Filename:            cfg.Output.Filename,
		SubdirName:          cfg.Output.SubdirName,
		Quiet:               cfg.Download.Quiet,
		ContinueOnError:     cfg.Download.ContinueOnError,
		PostLimit:           cfg.Download.PostLimit,
		Month:               cfg.Download.Month,
		ExcludeFile:         cfg.Download.ExcludeFile,
		DumpMetadata:        cfg.Download.DumpMetadata,
		ParseExternalLinks:  cfg.Download.ParseExternalLinks,
		DownloadThumbnail:   cfg.Download.DownloadThumbnail,
		UseServerFilenames:  cfg.Download.UseServerFilenames,
		MarkIncompletePosts: cfg.Download.MarkIncompletePosts,
		Timeout:             cfg.Download.Timeout,
		RequestsPerMinute:   cfg.RateLimit.RequestsPerMinute,
		Burst:               cfg.RateLimit.BurstSize,
		Retry:               policy,
	}
}

func (o *Options) applyDefaults() {
	if o.BaseURL == "" {
		o.BaseURL = BaseURL
	}
	if o.Directory == "" {
		o.Directory = "."
	}
	if o.Filename == "" {
		o.Filename = config.DefaultFilename
	}
	if o.SubdirName == "" {
		o.SubdirName = config.DefaultSubdirName
	}
}
