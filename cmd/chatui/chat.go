package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/chatui/internal/config"
	"github.com/vango-dev/chatui/pkg/chat"
	"github.com/vango-dev/chatui/pkg/dom"
	"github.com/vango-dev/chatui/pkg/webdb"
)

func chatCmd(flags *globalFlags) *cobra.Command {
	var (
		serverURL string
		model     string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a running server from the terminal",
		Long: `Chat with a running chatui server from the terminal.

Every line read from stdin is sent as a prompt and the reply is streamed
back. Both sides are saved to the local chat database.

Commands:
  /new          start a new session
  /sessions     list saved sessions
  /resume <id>  continue a saved session
  /theme        toggle the saved theme
  /quit         leave

Examples:
  chatui chat
  chatui chat --server=http://localhost:8080 --model=mistral`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if serverURL != "" {
				cfg.Chat.ServerURL = serverURL
			}
			if model != "" {
				cfg.Chat.Model = model
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runChat(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "Chat server address (default from chatui.json)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model to chat with (default from chatui.json)")

	return cmd
}

func runChat(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	store, err := openChatStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.DB().Close()

	client, err := chat.Dial(ctx, cfg.Chat.ServerURL, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	// Replies arrive on the pump goroutine; done is signalled at the end
	// of each one so the prompt loop can wait for it.
	done := make(chan struct{}, 1)
	client.OnFrame = func(frame string) {
		if frame == chat.EndOfMessage {
			fmt.Fprintln(out)
			select {
			case done <- struct{}{}:
			default:
			}
			return
		}
		fmt.Fprint(out, frame)
	}

	ctrl, err := chat.NewController(ctx, dom.NewDocument(), store, client, chat.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	models, err := chat.FetchModels(fetchCtx, http.DefaultClient, cfg.Chat.ServerURL)
	cancel()
	if err != nil {
		slog.Warn("could not list models", "error", err)
	} else {
		ctrl.SetModels(models)
	}
	ctrl.Page().SelectModel(cfg.Chat.Model)

	pumpErr := make(chan error, 1)
	go func() { pumpErr <- chat.Pump(ctx, client, ctrl) }()

	success(out, "Connected to %s (model: %s)", cfg.Chat.ServerURL, ctrl.Page().SelectedModel())

	lines := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !lines.Scan() {
			return lines.Err()
		}
		line := strings.TrimSpace(lines.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := chatCommand(ctx, ctrl, store, out, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		ctrl.SetInput(line)
		if err := ctrl.Submit(ctx); err != nil {
			return err
		}
		if !ctrl.IsConnected() {
			fmt.Fprintln(out, chat.NoticeReconnect)
			return <-pumpErr
		}

		select {
		case <-done:
		case err := <-pumpErr:
			if err == nil {
				fmt.Fprintln(out, chat.NoticeDisconnected)
			}
			return err
		case <-ctx.Done():
			return nil
		}
	}
}

func chatCommand(ctx context.Context, ctrl *chat.Controller, store *chat.Store, out io.Writer, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/new":
		store.NewSession()
		info(out, "Started a new session")

	case "/sessions":
		sessions, err := store.Sessions(ctx)
		if err != nil {
			return false, err
		}
		if len(sessions) == 0 {
			info(out, "No saved sessions")
		}
		for _, s := range sessions {
			marker := " "
			if s.ID == store.CurrentSession() {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %4d  %s  %s\n", marker, s.ID,
				time.UnixMilli(s.Timestamp).Format(time.DateTime), s.Title)
		}

	case "/resume":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: /resume <id>")
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("invalid session id %q", fields[1])
		}
		if err := store.Resume(ctx, id); err != nil {
			return false, err
		}
		msgs, err := store.Messages(ctx, id)
		if err != nil {
			return false, err
		}
		for _, m := range msgs {
			fmt.Fprintf(out, "%s: %s\n", m.Sender, m.Message)
		}

	case "/theme":
		if err := ctrl.ToggleTheme(ctx); err != nil {
			return false, err
		}
		info(out, "Theme set to %s", ctrl.Page().Theme())

	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
	return false, nil
}

// openChatStore opens the chat database configured in cfg.
func openChatStore(ctx context.Context, cfg *config.Config) (*chat.Store, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return chat.NewStore(db,
		chat.WithTitleLength(cfg.Chat.TitleLength),
		chat.WithHistoryLimit(cfg.Chat.HistoryLimit),
		chat.WithStoreLogger(slog.Default()),
	), nil
}

func openDB(ctx context.Context, cfg *config.Config) (*webdb.DB, error) {
	opts := []webdb.Option{
		webdb.WithDir(cfg.StorageDir()),
		webdb.WithLogger(slog.Default()),
	}
	if cfg.Storage.MaxReaders > 0 {
		opts = append(opts, webdb.WithMaxReaders(cfg.Storage.MaxReaders))
	}
	if cfg.StorageDir() != "" {
		if err := os.MkdirAll(cfg.StorageDir(), 0o755); err != nil {
			return nil, err
		}
	}
	return webdb.Open(ctx, cfg.Storage.Database, chat.DBVersion, chat.Schema(), opts...)
}
