// Package audio wraps the speech synthesis endpoints.
package audio

import (
	"context"
	"io"
	"strconv"
	"time"

	scribe "github.com/goliatone/go-scribe"
)

const (
	TextTypeOriginal  = "original"
	TextTypeRewritten = "rewritten"

	DefaultVoiceModel = "default"
)

// File is a synthesized audio artifact
type File struct {
	ID            int64     `json:"id"`
	TranscriptID  int64     `json:"transcript_id"`
	CloudinaryURL string    `json:"cloudinary_url"`
	PublicID      string    `json:"public_id,omitempty"`
	FileType      string    `json:"file_type,omitempty"`
	VoiceModel    string    `json:"voice_model,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// Voice is a selectable speech model
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GenerateRequest asks for speech synthesis of a transcript
type GenerateRequest struct {
	TranscriptID int64  `json:"transcript_id"`
	TextType     string `json:"text_type"`
	VoiceModel   string `json:"voice_model"`
}

// Client calls the audio endpoints
type Client struct {
	api *scribe.Client
}

// NewClient returns an audio client sharing api's session
func NewClient(api *scribe.Client) *Client {
	return &Client{api: api}
}

// Generate synthesizes speech. Empty text type and voice fall back to
// the original text and the default voice.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*File, error) {
	if req.TextType == "" {
		req.TextType = TextTypeOriginal
	}
	if req.VoiceModel == "" {
		req.VoiceModel = DefaultVoiceModel
	}

	out := new(File)
	if err := c.api.Post(ctx, "/api/audio/generate", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one audio record
func (c *Client) Get(ctx context.Context, id int64) (*File, error) {
	out := new(File)
	if err := c.api.Get(ctx, path(id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Voices lists the available voice models
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	var out []Voice
	if err := c.api.Get(ctx, "/api/audio/voices", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an audio record
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.api.Delete(ctx, path(id), nil)
}

// Download writes the audio bytes to w
func (c *Client) Download(ctx context.Context, id int64, w io.Writer) (int64, error) {
	return c.api.Download(ctx, "/api/download/audio/"+strconv.FormatInt(id, 10), nil, w)
}

func path(id int64) string {
	return "/api/audio/" + strconv.FormatInt(id, 10)
}
