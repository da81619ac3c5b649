package devserver

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// GeneratePayload requests speech synthesis
type GeneratePayload struct {
	TranscriptID int64  `json:"transcript_id"`
	TextType     string `json:"text_type"`
	VoiceModel   string `json:"voice_model"`
}

// Validate will validate the payload
func (p GeneratePayload) Validate() error {
	voices := make([]any, 0, len(defaultVoices))
	for _, v := range defaultVoices {
		voices = append(voices, v.ID)
	}
	return validation.ValidateStruct(&p,
		validation.Field(&p.TranscriptID, validation.Required),
		validation.Field(&p.TextType, validation.Required, validation.In("original", "rewritten")),
		validation.Field(&p.VoiceModel, validation.Required, validation.In(voices...)),
	)
}

func (s *Server) generateAudio(c *fiber.Ctx) error {
	payload := new(GeneratePayload)
	if err := c.BodyParser(payload); err != nil {
		return validationDetail(c, err)
	}
	if payload.TextType == "" {
		payload.TextType = "original"
	}
	if payload.VoiceModel == "" {
		payload.VoiceModel = "default"
	}
	if err := payload.Validate(); err != nil {
		return validationDetail(c, err)
	}

	userID := currentUserID(c)
	tr, err := s.repo.GetTranscript(c.UserContext(), userID, payload.TranscriptID)
	if err != nil {
		return transcriptErr(c, err)
	}
	if payload.TextType == "rewritten" && tr.RewrittenText == "" {
		return detail(c, fiber.StatusBadRequest, "Transcript has no rewritten text yet")
	}

	af, err := s.repo.CreateAudio(c.UserContext(), &AudioFile{
		TranscriptID: tr.ID,
		UserID:       userID,
		PublicID:     uuid.NewString(),
		FileType:     payload.TextType,
		VoiceModel:   payload.VoiceModel,
	})
	if err != nil {
		return err
	}

	af.CloudinaryURL = fmt.Sprintf("%s/api/download/audio/%d", c.BaseURL(), af.ID)
	if err := s.repo.UpdateAudio(c.UserContext(), af, "cloudinary_url"); err != nil {
		return err
	}

	s.logger.Info("Audio generated", "audio_id", af.ID, "transcript_id", tr.ID, "voice", af.VoiceModel)
	return c.Status(fiber.StatusCreated).JSON(af)
}

func (s *Server) voices(c *fiber.Ctx) error {
	return c.JSON(defaultVoices)
}

func (s *Server) getAudio(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return detail(c, fiber.StatusNotFound, "Audio not found")
	}
	af, err := s.repo.GetAudio(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return audioErr(c, err)
	}
	return c.JSON(af)
}

func (s *Server) deleteAudio(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return detail(c, fiber.StatusNotFound, "Audio not found")
	}
	if err := s.repo.DeleteAudio(c.UserContext(), currentUserID(c), id); err != nil {
		return audioErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "Audio deleted successfully"})
}

func (s *Server) downloadAudio(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return detail(c, fiber.StatusNotFound, "Audio not found")
	}
	af, err := s.repo.GetAudio(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return audioErr(c, err)
	}

	c.Set(fiber.HeaderContentType, "audio/wav")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="audio_`+strconv.FormatInt(af.ID, 10)+`.wav"`)
	return c.Send(silence(8000, 1))
}

func audioErr(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrRecordNotFound) {
		return detail(c, fiber.StatusNotFound, "Audio not found")
	}
	return err
}

// silence renders a mono 8-bit PCM WAV of the given length
func silence(sampleRate, seconds int) []byte {
	samples := sampleRate * seconds
	buf := new(bytes.Buffer)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+samples))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(8))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(samples))
	buf.Write(bytes.Repeat([]byte{0x80}, samples))

	return buf.Bytes()
}
