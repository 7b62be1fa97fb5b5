package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lumopack/lumobot/internal/flow"
	"github.com/lumopack/lumobot/internal/genai"
	"github.com/lumopack/lumobot/internal/models"
	"github.com/lumopack/lumobot/internal/pricing"
	"github.com/lumopack/lumobot/internal/store"
	"github.com/lumopack/lumobot/internal/util"
	"github.com/spf13/cobra"
)

const (
	cliUserID    = "cli"
	quitCommand  = "/quit"
	resetCommand = "/reset"
)

var (
	chatAPIKey         string
	chatModel          string
	chatBaseURL        string
	chatPricingCatalog string
	chatSessionID      string
)

var (
	// Styles
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	stepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	quickReplyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive ordering interview",
	Long: `Start an interview with the LumoPack assistant.

Type your answers in Thai or English. /reset starts over and /quit leaves.
With an OpenAI API key the assistant phrases its questions with the model;
otherwise it uses the built-in texts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := newChatSessions()
		if err != nil {
			return err
		}
		sessionID := chatSessionID
		if sessionID == "" {
			sessionID = util.NewSessionID()
		}
		return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), sessions, sessionID)
	},
}

// chatSessions is the part of flow.SessionManager the REPL drives.
type chatSessions interface {
	Handle(ctx context.Context, sessionID, userID, text string) (flow.Reply, error)
	Reset(ctx context.Context, sessionID string) (*models.ConversationState, error)
}

// newChatSessions wires an in-memory session manager from the chat flags.
func newChatSessions() (*flow.SessionManager, error) {
	var pricingOpts []pricing.Option
	if chatPricingCatalog != "" {
		pricingOpts = append(pricingOpts, pricing.WithCatalogFile(chatPricingCatalog))
	}
	calc, err := pricing.NewCalculator(pricingOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing catalog: %w", err)
	}

	st := store.NewInMemoryStore()
	flowOpts := []flow.Option{flow.WithOrderSaver(st)}
	if chatAPIKey != "" {
		genaiOpts := []genai.Option{genai.WithAPIKey(chatAPIKey)}
		if chatModel != "" {
			genaiOpts = append(genaiOpts, genai.WithModel(chatModel))
		}
		if chatBaseURL != "" {
			genaiOpts = append(genaiOpts, genai.WithBaseURL(chatBaseURL))
		}
		client, err := genai.NewClient(genaiOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create GenAI client: %w", err)
		}
		flowOpts = append(flowOpts, flow.WithPhraser(client))
	}
	return flow.NewSessionManager(st, flow.NewOrchestrator(calc, flowOpts...)), nil
}

// runChat reads one customer turn per line from in until EOF or /quit.
func runChat(ctx context.Context, in io.Reader, out io.Writer, sessions chatSessions, sessionID string) error {
	fmt.Fprintln(out, bannerStyle.Render("LumoPack packaging assistant"))
	fmt.Fprintln(out, stepStyle.Render(fmt.Sprintf("session %s, %s starts over, %s leaves", sessionID, resetCommand, quitCommand)))

	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(out, promptStyle.Render("คุณ> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case quitCommand:
			return nil
		case resetCommand:
			if _, err := sessions.Reset(ctx, sessionID); err != nil && !errors.Is(err, models.ErrSessionNotFound) {
				fmt.Fprintln(out, errorStyle.Render("reset failed: "+err.Error()))
				continue
			}
			fmt.Fprintln(out, stepStyle.Render("เริ่มต้นใหม่แล้วค่ะ"))
			continue
		}

		reply, err := sessions.Handle(ctx, sessionID, cliUserID, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(out, errorStyle.Render("ขออภัยค่ะ ระบบขัดข้อง: "+err.Error()))
			continue
		}
		renderReply(out, reply)
	}
}

// renderReply prints the reply text, its step and any quick replies.
func renderReply(out io.Writer, reply flow.Reply) {
	fmt.Fprintln(out, stepStyle.Render(fmt.Sprintf("[%d/%d %s]", int(reply.Step), int(models.LastStep), reply.Step)))
	fmt.Fprintln(out, botStyle.Render(reply.Text))
	if len(reply.QuickReplies) > 0 {
		fmt.Fprintln(out, quickReplyStyle.Render("→ "+strings.Join(reply.QuickReplies, " / ")))
	}
	if reply.Complete {
		fmt.Fprintln(out, stepStyle.Render("order complete"))
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&chatAPIKey, "openai-api-key", os.Getenv("OPENAI_API_KEY"), "OpenAI API key for phrased replies")
	chatCmd.Flags().StringVar(&chatModel, "genai-model", os.Getenv("GENAI_MODEL"), "Chat model name")
	chatCmd.Flags().StringVar(&chatBaseURL, "genai-base-url", os.Getenv("GENAI_BASE_URL"), "OpenAI-compatible API base URL")
	chatCmd.Flags().StringVar(&chatPricingCatalog, "pricing-catalog", os.Getenv("PRICING_CATALOG"), "Path to a YAML pricing catalog")
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "Session ID (generated when empty)")
}
