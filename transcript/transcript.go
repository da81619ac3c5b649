// Package transcript wraps the transcript extraction and rewriting
// endpoints.
package transcript

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"time"

	scribe "github.com/goliatone/go-scribe"
	"github.com/goliatone/go-scribe/audio"
)

const (
	DefaultTone         = "professional"
	DefaultClarityLevel = 1
	DefaultLength       = "medium"
	DefaultLimit        = 10

	FormatText = "txt"
	FormatPDF  = "pdf"

	TextTypeOriginal  = "original"
	TextTypeRewritten = "rewritten"
	TextTypeSummary   = "summary"
)

// Transcript is an extracted video transcript
type Transcript struct {
	ID            int64        `json:"id"`
	UserID        int64        `json:"user_id,omitempty"`
	YoutubeID     string       `json:"youtube_id"`
	Title         string       `json:"title"`
	OriginalText  string       `json:"original_text"`
	RewrittenText string       `json:"rewritten_text,omitempty"`
	Summary       string       `json:"summary,omitempty"`
	CreatedAt     time.Time    `json:"created_at,omitempty"`
	AudioFiles    []audio.File `json:"audio_files,omitempty"`
}

// WatchURL returns the link to the source video
func (t Transcript) WatchURL() string {
	if t.YoutubeID == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(t.YoutubeID)
}

// RewriteRequest asks for an AI rewrite of a transcript
type RewriteRequest struct {
	TranscriptID int64  `json:"transcript_id"`
	Tone         string `json:"tone"`
	ClarityLevel int    `json:"clarity_level"`
}

// RewriteResult carries the rewritten text
type RewriteResult struct {
	TranscriptID  int64  `json:"transcript_id,omitempty"`
	RewrittenText string `json:"rewritten_text"`
}

// SummaryRequest asks for a summary of a transcript
type SummaryRequest struct {
	TranscriptID int64  `json:"transcript_id"`
	Length       string `json:"length"`
}

// SummaryResult carries the generated summary
type SummaryResult struct {
	TranscriptID int64  `json:"transcript_id,omitempty"`
	Summary      string `json:"summary"`
}

// DownloadOptions selects which text to download and in which format
type DownloadOptions struct {
	TextType string
	Format   string
}

// Client calls the transcript endpoints
type Client struct {
	api *scribe.Client
}

// NewClient returns a transcript client sharing api's session
func NewClient(api *scribe.Client) *Client {
	return &Client{api: api}
}

type extractRequest struct {
	YoutubeURL string `json:"youtube_url"`
}

// Extract submits a video link for transcription. The link is validated
// locally first.
func (c *Client) Extract(ctx context.Context, youtubeURL string) (*Transcript, error) {
	form := scribe.ExtractForm{YoutubeURL: youtubeURL}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	out := new(Transcript)
	if err := c.api.Post(ctx, "/api/transcript/extract", extractRequest{YoutubeURL: youtubeURL}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one transcript
func (c *Client) Get(ctx context.Context, id int64) (*Transcript, error) {
	out := new(Transcript)
	if err := c.api.Get(ctx, path(id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns a page of the user's transcripts. A non positive limit
// uses DefaultLimit.
func (c *Client) List(ctx context.Context, skip, limit int) ([]Transcript, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := url.Values{}
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))

	var out []Transcript
	if err := c.api.Get(ctx, "/api/transcript/list", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Rewrite requests rewritten text. Zero values use the default tone and
// clarity level.
func (c *Client) Rewrite(ctx context.Context, req RewriteRequest) (*RewriteResult, error) {
	if req.Tone == "" {
		req.Tone = DefaultTone
	}
	if req.ClarityLevel == 0 {
		req.ClarityLevel = DefaultClarityLevel
	}

	out := new(RewriteResult)
	if err := c.api.Post(ctx, "/api/transcript/rewrite", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Summarize requests a summary
func (c *Client) Summarize(ctx context.Context, req SummaryRequest) (*SummaryResult, error) {
	if req.Length == "" {
		req.Length = DefaultLength
	}

	out := new(SummaryResult)
	if err := c.api.Post(ctx, "/api/transcript/summary", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a transcript
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.api.Delete(ctx, path(id), nil)
}

// Download writes the selected text to w
func (c *Client) Download(ctx context.Context, id int64, opts DownloadOptions, w io.Writer) (int64, error) {
	if opts.TextType == "" {
		opts.TextType = TextTypeOriginal
	}
	if opts.Format == "" {
		opts.Format = FormatText
	}

	query := url.Values{}
	query.Set("text_type", opts.TextType)
	query.Set("format", opts.Format)

	return c.api.Download(ctx, "/api/download/transcript/"+strconv.FormatInt(id, 10), query, w)
}

func path(id int64) string {
	return "/api/transcript/" + strconv.FormatInt(id, 10)
}
