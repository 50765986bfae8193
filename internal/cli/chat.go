package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"catalograg/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the catalog assistant in the terminal",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	chat, closeStore, err := newChatUseCase(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	cfg := GetConfig()
	summary := fmt.Sprintf("collection %s · %s", cfg.Store.Collection, cfg.Generation.Model)
	model := tui.New(cmd.Context(), chat, summary)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}
