package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"

	"github.com/goliatone/go-print"
	scribe "github.com/goliatone/go-scribe"
	"github.com/goliatone/go-scribe/activitymap"
	"github.com/goliatone/go-scribe/audio"
	"github.com/goliatone/go-scribe/store"
	"github.com/goliatone/go-scribe/transcript"
	"github.com/goliatone/go-scribe/users"
	"go.uber.org/zap"
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":          {"login -email EMAIL -password PASSWORD", runLogin},
	"register":       {"register -username NAME -email EMAIL -password PASSWORD -confirm PASSWORD [-name FULL_NAME]", runRegister},
	"logout":         {"logout", runLogout},
	"whoami":         {"whoami", runWhoami},
	"refresh":        {"refresh", runRefresh},
	"profile":        {"profile", runProfile},
	"extract":        {"extract YOUTUBE_URL", runExtract},
	"list":           {"list [-skip N] [-limit N]", runList},
	"show":           {"show ID", runShow},
	"rewrite":        {"rewrite [-tone TONE] [-clarity N] ID", runRewrite},
	"summary":        {"summary [-length short|medium|long] ID", runSummary},
	"delete":         {"delete ID", runDelete},
	"download":       {"download [-type original|rewritten|summary] [-out FILE] ID", runDownload},
	"voices":         {"voices", runVoices},
	"speak":          {"speak [-type original|rewritten] [-voice VOICE] ID", runSpeak},
	"audio":          {"audio ID", runAudio},
	"download-audio": {"download-audio [-out FILE] ID", runDownloadAudio},
}

type app struct {
	manager     *scribe.Manager
	transcripts *transcript.Client
	audio       *audio.Client
	users       *users.Client
	out         io.Writer
}

func main() {
	configPath := flag.String("config", scribe.DefaultConfigPath, "Path to YAML config file")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	name := flag.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := setup(ctx, *configPath, scribe.NewZapLogger(logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := cmd.run(ctx, a, flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", scribe.UserMessage(err, err.Error()))
		cleanup()
		os.Exit(1)
	}
}

func setup(ctx context.Context, configPath string, logger scribe.Logger) (*app, func(), error) {
	opts, err := scribe.LoadOptions(configPath)
	if err != nil {
		return nil, nil, err
	}

	// credentials must survive between invocations
	if opts.Store.Driver == scribe.StoreDriverMemory {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, nil, err
		}
		opts.Store.Driver = scribe.StoreDriverFile
		opts.Store.Path = filepath.Join(dir, "scribe", "credentials.json")
	}

	tokens, closeStore, err := store.Open(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	client, err := scribe.NewClient(opts, tokens)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	client.WithLogger(logger)

	decoder := scribe.NewDecoder().WithLogger(logger)
	stopJWKS := func() {}
	switch {
	case opts.GetJWKSURL() != "":
		decoder, stopJWKS, err = decoder.WithJWKS(opts.GetJWKSURL())
		if err != nil {
			closeStore()
			return nil, nil, err
		}
	case opts.GetSigningKey() != "":
		decoder = decoder.WithSigningKey([]byte(opts.GetSigningKey()))
	}

	manager := scribe.NewManager(client, decoder).
		WithLogger(logger).
		WithActivitySink(activitySink(tokens, logger))
	client.OnUnauthorized(func(_ context.Context, evt scribe.UnauthorizedEvent) {
		fmt.Fprintf(os.Stderr, "session ended, sign in again with: scribe login (%s)\n", evt.LoginRoute)
	})

	if _, err := manager.Restore(ctx); err != nil {
		logger.Warn("Unable to restore session", "error", err)
	}

	cleanup := func() {
		manager.Close()
		stopJWKS()
		closeStore()
	}

	return &app{
		manager:     manager,
		transcripts: transcript.NewClient(client),
		audio:       audio.NewClient(client),
		users:       users.NewClient(client),
		out:         os.Stdout,
	}, cleanup, nil
}

// activitySink records to a redis stream when credentials live in redis
func activitySink(tokens scribe.TokenStore, logger scribe.Logger) scribe.ActivitySink {
	if rs, ok := tokens.(*store.RedisStore); ok {
		return activitymap.NewStreamSink(rs.Client(), activitymap.DefaultStream, 1000)
	}
	return activitymap.LoggerSink(logger)
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: scribe [-config FILE] [-v] <command> [args]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
}

func (a *app) print(v any) {
	fmt.Fprintln(a.out, print.MaybePrettyJSON(v))
}

func (a *app) requireSession(ctx context.Context) error {
	if !a.manager.IsAuthenticated(ctx) {
		return fmt.Errorf("not signed in, run: scribe login")
	}
	return nil
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected a single id argument")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	form := scribe.LoginForm{}
	fs.StringVar(&form.Email, "email", "", "Account email")
	fs.StringVar(&form.Password, "password", "", "Account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	session, err := scribe.SubmitLogin(ctx, a.manager, form)
	if err != nil {
		return formError(err, scribe.LoginFailedMessage)
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", session.DisplayName())
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	form := scribe.RegisterForm{}
	fs.StringVar(&form.FullName, "name", "", "Full name")
	fs.StringVar(&form.Username, "username", "", "Username")
	fs.StringVar(&form.Email, "email", "", "Account email")
	fs.StringVar(&form.Password, "password", "", "Account password")
	fs.StringVar(&form.ConfirmPassword, "confirm", "", "Password confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	session, err := scribe.SubmitRegister(ctx, a.manager, form)
	if err != nil {
		return formError(err, scribe.RegisterFailedMessage)
	}
	fmt.Fprintf(a.out, "Welcome %s\n", session.DisplayName())
	return nil
}

func formError(err error, fallback string) error {
	fields := scribe.FieldErrors(err)
	if _, ok := fields["form"]; ok {
		return fmt.Errorf("%s", scribe.UserMessage(err, fallback))
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msg := ""
	for _, k := range keys {
		msg += fmt.Sprintf("\n  %s: %s", k, fields[k])
	}
	return fmt.Errorf("invalid input:%s", msg)
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.manager.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func runWhoami(ctx context.Context, a *app, _ []string) error {
	session, ok := a.manager.Session(ctx)
	if !ok {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	a.print(session)
	return nil
}

func runRefresh(ctx context.Context, a *app, _ []string) error {
	session, err := a.manager.Refresh(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Session valid until %s\n", session.ExpiresAt.Local())
	return nil
}

func runProfile(ctx context.Context, a *app, _ []string) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	profile, err := a.users.Profile(ctx)
	if err != nil {
		return err
	}
	a.print(profile)
	return nil
}

func runExtract(ctx context.Context, a *app, args []string) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("expected a YouTube URL")
	}
	tr, err := a.transcripts.Extract(ctx, args[0])
	if err != nil {
		return formError(err, "")
	}
	a.print(tr)
	return nil
}

func runList(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	skip := fs.Int("skip", 0, "Records to skip")
	limit := fs.Int("limit", transcript.DefaultLimit, "Records to return")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	list, err := a.transcripts.List(ctx, *skip, *limit)
	if err != nil {
		return err
	}
	for _, tr := range list {
		fmt.Fprintf(a.out, "%d\t%s\t%s\n", tr.ID, tr.Title, tr.WatchURL())
	}
	return nil
}

func runShow(ctx context.Context, a *app, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	tr, err := a.transcripts.Get(ctx, id)
	if err != nil {
		return err
	}
	a.print(tr)
	return nil
}

func runRewrite(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("rewrite", flag.ContinueOnError)
	tone := fs.String("tone", transcript.DefaultTone, "Rewrite tone")
	clarity := fs.Int("clarity", transcript.DefaultClarityLevel, "Clarity level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID(fs.Args())
	if err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	res, err := a.transcripts.Rewrite(ctx, transcript.RewriteRequest{
		TranscriptID: id,
		Tone:         *tone,
		ClarityLevel: *clarity,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, res.RewrittenText)
	return nil
}

func runSummary(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	length := fs.String("length", transcript.DefaultLength, "Summary length")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID(fs.Args())
	if err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	res, err := a.transcripts.Summarize(ctx, transcript.SummaryRequest{TranscriptID: id, Length: *length})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, res.Summary)
	return nil
}

func runDelete(ctx context.Context, a *app, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	if err := a.transcripts.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted transcript %d\n", id)
	return nil
}

func runDownload(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	textType := fs.String("type", transcript.TextTypeOriginal, "Text to download")
	out := fs.String("out", "", "Output file, stdout when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID(fs.Args())
	if err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	return writeTo(*out, a.out, func(w io.Writer) (int64, error) {
		return a.transcripts.Download(ctx, id, transcript.DownloadOptions{TextType: *textType}, w)
	})
}

func runVoices(ctx context.Context, a *app, _ []string) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	voices, err := a.audio.Voices(ctx)
	if err != nil {
		return err
	}
	for _, v := range voices {
		fmt.Fprintf(a.out, "%s\t%s\n", v.ID, v.Name)
	}
	return nil
}

func runSpeak(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("speak", flag.ContinueOnError)
	textType := fs.String("type", audio.TextTypeOriginal, "Text to synthesize")
	voice := fs.String("voice", audio.DefaultVoiceModel, "Voice model")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID(fs.Args())
	if err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	file, err := a.audio.Generate(ctx, audio.GenerateRequest{
		TranscriptID: id,
		TextType:     *textType,
		VoiceModel:   *voice,
	})
	if err != nil {
		return err
	}
	a.print(file)
	return nil
}

func runAudio(ctx context.Context, a *app, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	file, err := a.audio.Get(ctx, id)
	if err != nil {
		return err
	}
	a.print(file)
	return nil
}

func runDownloadAudio(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("download-audio", flag.ContinueOnError)
	out := fs.String("out", "", "Output file, stdout when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := parseID(fs.Args())
	if err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	if *out == "" {
		*out = fmt.Sprintf("audio_%d.wav", id)
	}
	return writeTo(*out, a.out, func(w io.Writer) (int64, error) {
		return a.audio.Download(ctx, id, w)
	})
}

func writeTo(path string, stdout io.Writer, fn func(io.Writer) (int64, error)) error {
	if path == "" {
		_, err := fn(stdout)
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := fn(f)
	if err != nil {
		os.Remove(path)
		return err
	}
	fmt.Fprintf(stdout, "Wrote %d bytes to %s\n", n, path)
	return nil
}
