package devserver

import (
	"fmt"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	scribe "github.com/goliatone/go-scribe"
)

var summaryWords = map[string]int{
	"short":  12,
	"medium": 30,
	"long":   60,
}

// ExtractPayload submits a video link
type ExtractPayload struct {
	YoutubeURL string `json:"youtube_url"`
}

// RewritePayload requests rewritten text
type RewritePayload struct {
	TranscriptID int64  `json:"transcript_id"`
	Tone         string `json:"tone"`
	ClarityLevel int    `json:"clarity_level"`
}

// Validate will validate the payload
func (p RewritePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.TranscriptID, validation.Required),
		validation.Field(&p.ClarityLevel, validation.Min(0), validation.Max(5)),
	)
}

// SummaryPayload requests a summary
type SummaryPayload struct {
	TranscriptID int64  `json:"transcript_id"`
	Length       string `json:"length"`
}

// Validate will validate the payload
func (p SummaryPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.TranscriptID, validation.Required),
		validation.Field(&p.Length, validation.In("short", "medium", "long")),
	)
}

func (s *Server) extractTranscript(c *fiber.Ctx) error {
	payload := new(ExtractPayload)
	if err := c.BodyParser(payload); err != nil {
		return validationDetail(c, err)
	}
	if err := (scribe.ExtractForm{YoutubeURL: payload.YoutubeURL}).Validate(); err != nil {
		return validationDetail(c, err)
	}

	videoID := youtubeID(payload.YoutubeURL)
	if videoID == "" {
		return detail(c, fiber.StatusBadRequest, "Could not find a video id in the URL")
	}

	tr, err := s.repo.CreateTranscript(c.UserContext(), &Transcript{
		UserID:       currentUserID(c),
		YoutubeID:    videoID,
		Title:        "YouTube video " + videoID,
		OriginalText: cannedTranscript(videoID),
	})
	if err != nil {
		return err
	}

	s.logger.Info("Transcript extracted", "transcript_id", tr.ID, "youtube_id", videoID)
	return c.Status(fiber.StatusCreated).JSON(tr)
}

func (s *Server) getTranscript(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return detail(c, fiber.StatusNotFound, "Transcript not found")
	}
	tr, err := s.repo.GetTranscript(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return transcriptErr(c, err)
	}
	return c.JSON(tr)
}

func (s *Server) listTranscripts(c *fiber.Ctx) error {
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 10)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	records, err := s.repo.ListTranscripts(c.UserContext(), currentUserID(c), skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(records)
}

func (s *Server) rewriteTranscript(c *fiber.Ctx) error {
	payload := new(RewritePayload)
	if err := c.BodyParser(payload); err != nil {
		return validationDetail(c, err)
	}
	if payload.Tone == "" {
		payload.Tone = "professional"
	}
	if payload.ClarityLevel == 0 {
		payload.ClarityLevel = 1
	}
	if err := payload.Validate(); err != nil {
		return validationDetail(c, err)
	}

	tr, err := s.repo.GetTranscript(c.UserContext(), currentUserID(c), payload.TranscriptID)
	if err != nil {
		return transcriptErr(c, err)
	}

	tr.RewrittenText = rewrite(tr.OriginalText, payload.Tone, payload.ClarityLevel)
	if err := s.repo.UpdateTranscript(c.UserContext(), tr, "rewritten_text"); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"transcript_id":  tr.ID,
		"rewritten_text": tr.RewrittenText,
	})
}

func (s *Server) summarizeTranscript(c *fiber.Ctx) error {
	payload := new(SummaryPayload)
	if err := c.BodyParser(payload); err != nil {
		return validationDetail(c, err)
	}
	if payload.Length == "" {
		payload.Length = "medium"
	}
	if err := payload.Validate(); err != nil {
		return validationDetail(c, err)
	}

	tr, err := s.repo.GetTranscript(c.UserContext(), currentUserID(c), payload.TranscriptID)
	if err != nil {
		return transcriptErr(c, err)
	}

	tr.Summary = firstWords(tr.OriginalText, summaryWords[payload.Length])
	if err := s.repo.UpdateTranscript(c.UserContext(), tr, "summary"); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"transcript_id": tr.ID,
		"summary":       tr.Summary,
	})
}

func (s *Server) deleteTranscript(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return detail(c, fiber.StatusNotFound, "Transcript not found")
	}
	if err := s.repo.DeleteTranscript(c.UserContext(), currentUserID(c), id); err != nil {
		return transcriptErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "Transcript deleted successfully"})
}

func (s *Server) downloadTranscript(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return detail(c, fiber.StatusNotFound, "Transcript not found")
	}

	textType := c.Query("text_type", "original")
	format := c.Query("format", "txt")
	if format != "txt" {
		return detail(c, fiber.StatusBadRequest, fmt.Sprintf("Unsupported format: %s", format))
	}

	tr, err := s.repo.GetTranscript(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return transcriptErr(c, err)
	}

	var body string
	switch textType {
	case "original":
		body = tr.OriginalText
	case "rewritten":
		body = tr.RewrittenText
	case "summary":
		body = tr.Summary
	default:
		return detail(c, fiber.StatusBadRequest, fmt.Sprintf("Unsupported text type: %s", textType))
	}
	if body == "" {
		return detail(c, fiber.StatusNotFound, fmt.Sprintf("No %s text available", textType))
	}

	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="transcript_%d_%s.txt"`, tr.ID, textType))
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(body)
}

func transcriptErr(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrRecordNotFound) {
		return detail(c, fiber.StatusNotFound, "Transcript not found")
	}
	return err
}

// youtubeID pulls the video id out of the usual link shapes
func youtubeID(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	switch {
	case host == "youtu.be" || host == "youtube.be":
		return strings.Trim(u.Path, "/")
	case strings.HasSuffix(host, "youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live") {
			return parts[1]
		}
	}
	return ""
}

func cannedTranscript(videoID string) string {
	return fmt.Sprintf(
		"This is the development transcript for video %s. "+
			"The speaker opens with an introduction to the topic and outlines the main points. "+
			"Each point is then explained with a short example. "+
			"The talk closes with a summary and a call to action for the audience.",
		videoID,
	)
}

func rewrite(text, tone string, clarity int) string {
	return fmt.Sprintf("[%s, clarity %d] %s", tone, clarity, strings.Join(strings.Fields(text), " "))
}

func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if n <= 0 || len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}
