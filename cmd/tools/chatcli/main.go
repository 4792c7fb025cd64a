// Command chatcli is a terminal front-end for the assistant relay. It runs the gate and
// the relay in-process against the configured assistant.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/assistant-relay/backend/internal/config"
	"github.com/zhouzirui/assistant-relay/backend/internal/logger"
	chatModel "github.com/zhouzirui/assistant-relay/backend/internal/model/chat"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/assistant"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/auth"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/chat"
	"github.com/zhouzirui/assistant-relay/backend/internal/service/relay"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	verbose := flag.Bool("v", false, "log run polling to stderr")
	flag.Parse()

	bootLog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	if err := godotenv.Load(*envFile); err != nil {
		bootLog.Warn().Err(err).Msg("could not load env file, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	logCfg := cfg.Log
	logCfg.Level = "warn"
	if *verbose {
		logCfg.Level = "debug"
	}
	log := logger.NewWithWriter(logCfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)

	sessions, err := chat.NewService(1)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session store")
	}
	session, err := sessions.CreateSession(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session")
	}

	gateway := assistant.NewOpenAIGateway(cfg.Assistant)
	cli := &terminal{
		in:       bufio.NewScanner(os.Stdin),
		out:      os.Stdout,
		gate:     auth.NewGatekeeper(cfg.Auth.Password, sessions),
		relay:    relay.New(sessions, gateway, cfg.Assistant.AssistantID, assistant.PolicyFromConfig(cfg.Assistant)),
		sessions: sessions,
		prompts:  chatModel.Prompts{First: cfg.UI.FirstPlaceholder, Next: cfg.UI.Placeholder},
		title:    cfg.UI.Title,
	}

	if err := cli.run(ctx, session.ID); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("chat session aborted")
	}
}

type terminal struct {
	in       *bufio.Scanner
	out      io.Writer
	gate     *auth.Gatekeeper
	relay    *relay.Relay
	sessions *chat.Service
	prompts  chatModel.Prompts
	title    string
}

func (t *terminal) run(ctx context.Context, sessionID string) error {
	fmt.Fprintln(t.out, "Client Login")
	for {
		password, err := t.prompt("Please enter the password to access the assistant: ")
		if err != nil {
			return err
		}
		if _, err := t.gate.Unlock(ctx, sessionID, password); err == nil {
			break
		} else if !errors.Is(err, auth.ErrInvalidPassword) {
			return err
		}
		fmt.Fprintln(t.out, "Password incorrect")
	}

	fmt.Fprintf(t.out, "\n%s\n", t.title)
	for {
		transcript, err := t.sessions.LoadTranscript(ctx, sessionID)
		if err != nil {
			return err
		}

		text, err := t.prompt(t.prompts.Placeholder(transcript) + "\n> ")
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		fmt.Fprint(t.out, "Thinking...")
		reply, err := t.relay.Send(ctx, sessionID, text, func(chatModel.RunStatus) {
			fmt.Fprint(t.out, ".")
		})
		fmt.Fprintln(t.out)

		var runErr *assistant.RunError
		switch {
		case errors.As(err, &runErr):
			fmt.Fprintf(t.out, "Run failed with status: %s\n\n", runErr.Status)
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(t.out, "Error: %v\n\n", err)
		default:
			fmt.Fprintf(t.out, "\nassistant: %s\n\n", reply.Content)
		}
	}
}

func (t *terminal) prompt(label string) (string, error) {
	fmt.Fprint(t.out, label)
	if !t.in.Scan() {
		if err := t.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return t.in.Text(), nil
}
