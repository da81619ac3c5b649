package devserver

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Username      string     `bun:"username,notnull,unique" json:"username"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	FullName      string     `bun:"full_name" json:"full_name,omitempty"`
	ProfilePhoto  string     `bun:"profile_photo" json:"profile_photo,omitempty"`
	LoggedInAt    *time.Time `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

// Transcript is an extracted video transcript owned by a user
type Transcript struct {
	bun.BaseModel `bun:"table:transcripts,alias:tr"`
	ID            int64        `bun:"id,pk,autoincrement" json:"id"`
	UserID        uuid.UUID    `bun:"user_id,notnull,type:uuid" json:"-"`
	YoutubeID     string       `bun:"youtube_id,notnull" json:"youtube_id"`
	Title         string       `bun:"title" json:"title"`
	OriginalText  string       `bun:"original_text" json:"original_text"`
	RewrittenText string       `bun:"rewritten_text" json:"rewritten_text,omitempty"`
	Summary       string       `bun:"summary" json:"summary,omitempty"`
	CreatedAt     time.Time    `bun:"created_at,notnull" json:"created_at"`
	AudioFiles    []*AudioFile `bun:"rel:has-many,join:id=transcript_id" json:"audio_files"`
}

// AudioFile is a synthesized rendition of a transcript
type AudioFile struct {
	bun.BaseModel `bun:"table:audio_files,alias:af"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	TranscriptID  int64     `bun:"transcript_id,notnull" json:"transcript_id"`
	UserID        uuid.UUID `bun:"user_id,notnull,type:uuid" json:"-"`
	CloudinaryURL string    `bun:"cloudinary_url" json:"cloudinary_url"`
	PublicID      string    `bun:"public_id" json:"public_id"`
	FileType      string    `bun:"file_type" json:"file_type"`
	VoiceModel    string    `bun:"voice_model" json:"voice_model"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Voice is a selectable speech model
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var defaultVoices = []Voice{
	{ID: "default", Name: "Default"},
	{ID: "warm", Name: "Warm"},
	{ID: "narrator", Name: "Narrator"},
}
