package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/auth"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/config"
	"github.com/xh-polaris/chatstream-core-api/pkg/chatevent"
	"github.com/xh-polaris/chatstream-core-api/pkg/client"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	server         string
	token          string
	conversationId string
	filePath       string
)

var rootCmd = &cobra.Command{
	Use:   "chatctl",
	Short: "chatctl talks to a chatstream-core-api server",
}

var tokenCmd = &cobra.Command{
	Use:   "token <userId>",
	Short: "Issue a token for a user with the server's auth config ($CONFIG_PATH)",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

var sendCmd = &cobra.Command{
	Use:   "send [content]",
	Short: "Send one message and stream the reply to the terminal",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSend,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&server, "server", envOr("CHATSTREAM_SERVER", "http://127.0.0.1:8080"), "server base url")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("CHATSTREAM_TOKEN"), "bearer token")
	sendCmd.Flags().StringVarP(&conversationId, "conversation", "c", "", "continue an existing conversation")
	sendCmd.Flags().StringVarP(&filePath, "file", "f", "", "attach a file")
	rootCmd.AddCommand(sendCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSend(cmd *cobra.Command, args []string) error {
	req := &client.Request{}
	if len(args) > 0 {
		req.Content = args[0]
	}
	if filePath != "" {
		f, err := loadFile(filePath)
		if err != nil {
			return err
		}
		req.File = f
	}
	if req.Content == "" && req.File == nil {
		return errors.New("nothing to send: pass content or --file")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	c := client.New(server, token)
	var history []*chatevent.Message
	if conversationId != "" {
		var err error
		if history, err = c.Messages(ctx, conversationId); err != nil {
			return fmt.Errorf("load conversation: %w", err)
		}
	}
	r := client.NewReconstructor(conversationId, history)

	out := cmd.OutOrStdout()
	err := c.Send(ctx, r, req, func(e *chatevent.Event) {
		switch e.Type {
		case chatevent.TypeChunk:
			_, _ = fmt.Fprint(out, e.Content)
		case chatevent.TypeComplete:
			_, _ = fmt.Fprintln(out)
		case chatevent.TypeError:
			_, _ = fmt.Fprintf(out, "\n[error] %s\n", e.Message)
		}
	})
	if err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\n[failed] %v\n", err)
	}

	_, _ = fmt.Fprintf(out, "\n--- conversation %s ---\n", r.ConversationId())
	for _, it := range r.Messages() {
		mark := ""
		if it.Local {
			mark = " (local)"
		}
		_, _ = fmt.Fprintf(out, "[%s%s] %s\n", it.Message.Role, mark, it.Message.Content)
	}
	return err
}

func runToken(cmd *cobra.Command, args []string) error {
	uid, err := bson.ObjectIDFromHex(args[0])
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	c, err := config.NewConfig()
	if err != nil {
		return err
	}
	t, err := auth.Issue(c.Auth, uid, time.Now())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), t)
	return nil
}

func loadFile(p string) (*client.File, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	mt := mime.TypeByExtension(filepath.Ext(p))
	if mt == "" {
		mt = "application/octet-stream"
	}
	return &client.File{Filename: filepath.Base(p), MimeType: mt, Base64Payload: base64.StdEncoding.EncodeToString(b)}, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
