package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/veform/veform/internal/flow"
	"github.com/veform/veform/internal/forms"
	"github.com/veform/veform/internal/genai"
	"github.com/veform/veform/internal/genreply"
	"github.com/veform/veform/internal/models"
	"github.com/veform/veform/internal/transport"
	"github.com/veform/veform/internal/util"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	form, err := loadForm(flags)
	if err != nil {
		slog.Error("Failed to load form", "error", err)
		os.Exit(1)
	}

	channel, err := buildChannel(flags)
	if err != nil {
		slog.Error("Failed to build reply channel", "error", err)
		os.Exit(1)
	}

	slog.Info("Bootstrapping veform", "formId", form.ID, "fields", len(form.Fields))
	if err := run(form, channel); err != nil {
		slog.Error("veform failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("veform exited successfully")
}

// Config holds environment configuration.
type Config struct {
	WSURL     string
	FormURL   string
	FormFile  string
	FormID    string
	OpenAIKey string
}

// Flags holds command line flag values.
type Flags struct {
	wsURL    *string
	formURL  *string
	formFile *string
	formID   *string
}

// initializeLogger sets up structured logging. VEFORM_DEBUG=false drops the
// level from debug to info.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("VEFORM_DEBUG", true) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and
// the .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}
	return Config{
		WSURL:     os.Getenv("VEFORM_WS_URL"),
		FormURL:   os.Getenv("VEFORM_FORM_URL"),
		FormFile:  os.Getenv("VEFORM_FORM_FILE"),
		FormID:    os.Getenv("VEFORM_FORM_ID"),
		OpenAIKey: os.Getenv("OPENAI_API_KEY"),
	}
}

// parseCommandLineFlags parses flags, with environment values as defaults.
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		wsURL:    flag.String("ws-url", config.WSURL, "websocket URL of the remote resolution service"),
		formURL:  flag.String("form-url", config.FormURL, "base URL to fetch the form definition from"),
		formFile: flag.String("form-file", config.FormFile, "path to a local form definition JSON file"),
		formID:   flag.String("form-id", config.FormID, "form identifier to fetch"),
	}
	flag.Parse()
	return flags
}

// loadForm resolves the form definition: a local file wins, then a served
// form.
func loadForm(flags Flags) (*models.Form, error) {
	if *flags.formFile != "" {
		slog.Debug("loading form from file", "path", *flags.formFile)
		return forms.LoadFile(*flags.formFile)
	}
	slog.Debug("fetching form", "url", *flags.formURL, "formId", *flags.formID)
	return forms.Fetch(context.Background(), *flags.formURL, *flags.formID)
}

// buildChannel picks the reply channel: the websocket service when a URL is
// configured, the in-process GenAI resolver otherwise.
func buildChannel(flags Flags) (genreply.Channel, error) {
	if *flags.wsURL != "" {
		slog.Debug("using websocket reply channel", "url", *flags.wsURL)
		return transport.NewWSChannel(*flags.wsURL), nil
	}
	slog.Debug("no websocket URL configured, using in-process GenAI resolver")
	client, err := genai.NewClient()
	if err != nil {
		return nil, err
	}
	return genai.NewResolverChannel(client), nil
}

// run wires the collaborators and drives the conversation to completion.
func run(form *models.Form, channel genreply.Channel) error {
	capture := newConsoleCapture()
	output := newConsoleOutput()
	done := make(chan error, 1)

	var conv *flow.Conversation
	client := genreply.NewClient(channel,
		func(msg models.ServerMessage) { conv.HandleServerMessage(msg) },
		func() { conv.ChannelReady() },
	)

	conv, err := flow.NewConversation(form, client, output, flow.Options{
		Handlers: &consoleHandlers{done: done},
		Capture:  capture,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := client.Start(ctx); err != nil {
		return err
	}
	defer client.Stop()
	if err := capture.Start(ctx); err != nil {
		return err
	}
	defer capture.Stop()
	conv.CaptureReady()

	go func() {
		for utterance := range capture.Utterances() {
			conv.HandleInput(utterance)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-done:
		return err
	case s := <-sig:
		slog.Info("shutting down on signal", "signal", s.String())
		return nil
	}
}

// consoleHandlers completes the run when the conversation ends.
type consoleHandlers struct {
	done chan error
}

func (h *consoleHandlers) FieldChanged(previous, next models.ConversationStateEntry) bool {
	slog.Debug("field changed", "from", previous.Name, "to", next.Name)
	return false
}

func (h *consoleHandlers) Complete(state models.ConversationState) {
	for _, entry := range state {
		slog.Info("answer", "field", entry.Name, "valid", entry.Valid, "answer", entry.Answer.String())
	}
	h.done <- nil
}

func (h *consoleHandlers) Error(reason string) {
	h.done <- errorString(reason)
}

type errorString string

func (e errorString) Error() string { return string(e) }
