// Command chat 在終端機與食譜助手對話
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"recipe-assistant/internal/app"
	"recipe-assistant/internal/core/conversation"
	"recipe-assistant/internal/infrastructure/config"
	"recipe-assistant/internal/pkg/common"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	storePath string
	logLevel  string
	jsonOut   bool
)

var rootCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to the recipe assistant",
	Long: `Starts an interactive conversation with the recipe assistant.
With a message argument, answers that single message and exits.
Type "exit" or "quit" (or press Ctrl-D) to leave the conversation.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

func init() {
	rootCmd.Flags().StringVar(&storePath, "store", "", "recipe store file (overrides STORE_PATH)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "error", "log level: debug, info, warn, error")
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "print full replies as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if storePath != "" {
		cfg.Store.Backend = "file"
		cfg.Store.Path = storePath
	}

	// 預設只輸出錯誤日誌，避免打斷對話
	if err := common.InitLogger(logLevel, cfg.LogDir); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer common.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		return printReply(cmd, a.Assistant.Handle(ctx, "", args[0]))
	}

	fmt.Fprintf(out, "Recipe assistant ready (%d saved recipes). Say \"help\" to see what I can do.\n", a.Store.Len())

	var sessionID string
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		reply := a.Assistant.Handle(ctx, sessionID, line)
		sessionID = reply.SessionID
		if err := printReply(cmd, reply); err != nil {
			return err
		}
		if ctx.Err() != nil {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		common.LogWarn("讀取輸入失敗", zap.Error(err))
		return err
	}
	fmt.Fprintln(out, "Bye!")
	return nil
}

func printReply(cmd *cobra.Command, reply conversation.Reply) error {
	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reply)
	}
	fmt.Fprintln(out, reply.Message)
	if reply.Online {
		fmt.Fprintln(out, "(found online, not saved)")
	}
	fmt.Fprintln(out)
	return nil
}
