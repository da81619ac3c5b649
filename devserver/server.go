// Package devserver is a small backend implementing the transcript
// service REST contract. It issues real tokens and stores accounts, but
// transcripts, rewrites and audio are canned.
package devserver

import (
	"context"
	"net"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	scribe "github.com/goliatone/go-scribe"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultAddr   = ":8000"
	DefaultDSN    = "file:scribe-dev.db?cache=shared"
	DefaultIssuer = "scribe-devserver"
)

// Config holds the dev server options
type Config struct {
	Addr       string        `yaml:"addr"`
	DSN        string        `yaml:"dsn"`
	SigningKey string        `yaml:"signing_key"`
	Issuer     string        `yaml:"issuer"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.DSN, validation.Required),
		validation.Field(&c.SigningKey, validation.Required, validation.RuneLength(16, 0)),
	)
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.DSN == "" {
		c.DSN = DefaultDSN
	}
	if c.Issuer == "" {
		c.Issuer = DefaultIssuer
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = time.Hour
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
	return c
}

// Server is the development backend
type Server struct {
	cfg    Config
	app    *fiber.App
	repo   *Repository
	tokens *TokenIssuer
	logger scribe.Logger
	now    func() time.Time
}

// New opens the repository and wires every route
func New(ctx context.Context, cfg Config, logger scribe.Logger) (*Server, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = scribe.NopLogger()
	}

	repo, err := OpenRepository(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		repo:   repo,
		tokens: NewTokenIssuer([]byte(cfg.SigningKey), cfg.TokenTTL, cfg.Issuer),
		logger: logger,
		now:    time.Now,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "scribe-devserver",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.routes()

	return s, nil
}

// App exposes the fiber application, mostly for app.Test
func (s *Server) App() *fiber.App {
	return s.app
}

// Tokens returns the issuer used for bearer tokens
func (s *Server) Tokens() *TokenIssuer {
	return s.tokens
}

// Listen serves on the configured address until Shutdown
func (s *Server) Listen() error {
	s.logger.Info("Dev server listening", "addr", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

// Serve accepts connections on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Dev server listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown stops accepting requests and closes the database
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	if cerr := s.repo.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *Server) routes() {
	api := s.app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/login", s.login)
	auth.Post("/register", s.register)
	auth.Post("/refresh", s.protected(), s.refresh)
	auth.Post("/logout", s.protected(), s.logout)
	auth.Get("/me", s.protected(), s.me)

	users := api.Group("/users", s.protected())
	users.Get("/profile", s.me)
	users.Put("/profile", s.updateProfile)
	users.Put("/password", s.changePassword)

	transcripts := api.Group("/transcript", s.protected())
	transcripts.Post("/extract", s.extractTranscript)
	transcripts.Post("/rewrite", s.rewriteTranscript)
	transcripts.Post("/summary", s.summarizeTranscript)
	transcripts.Get("/list", s.listTranscripts)
	transcripts.Get("/:id", s.getTranscript)
	transcripts.Delete("/:id", s.deleteTranscript)

	audio := api.Group("/audio", s.protected())
	audio.Post("/generate", s.generateAudio)
	audio.Get("/voices", s.voices)
	audio.Get("/:id", s.getAudio)
	audio.Delete("/:id", s.deleteAudio)

	download := api.Group("/download", s.protected())
	download.Get("/transcript/:id", s.downloadTranscript)
	download.Get("/audio/:id", s.downloadAudio)

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
