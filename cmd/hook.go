package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/theapemachine/recall-go/pkg/config"
	"github.com/theapemachine/recall-go/pkg/hooks"
)

/*
hookEvent is the JSON document the host runtime writes to stdin when it
invokes a hook. Field names follow the host's context record.
*/
type hookEvent struct {
	WorkingDirectory  string `json:"workingDirectory"`
	SessionID         string `json:"sessionId"`
	UserMessage       string `json:"userMessage,omitempty"`
	ConversationState string `json:"conversationState,omitempty"`
	PreviousContext   string `json:"previousContext,omitempty"`
	Trigger           string `json:"trigger,omitempty"`
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Host event entry points (reads the event context from stdin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var sessionStartCmd = &cobra.Command{
	Use:   "session-start",
	Short: "Build project context and inject an initial memory set",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHook(cmd, func(runner *hooks.Runner, hc hooks.HookContext) {
			runner.SessionStart(cmd.Context(), hc)
		})
	},
}

var userMessageCmd = &cobra.Command{
	Use:   "user-message",
	Short: "Decide whether a mid-conversation message warrants retrieval",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHook(cmd, func(runner *hooks.Runner, hc hooks.HookContext) {
			runner.UserMessage(cmd.Context(), hc)
		})
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "session-end",
	Short: "Consolidate the finished session into a stored memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHook(cmd, func(runner *hooks.Runner, hc hooks.HookContext) {
			runner.SessionEnd(cmd.Context(), hc)
		})
	},
}

func init() {
	rootCmd.AddCommand(hookCmd)
	hookCmd.AddCommand(sessionStartCmd)
	hookCmd.AddCommand(userMessageCmd)
	hookCmd.AddCommand(sessionEndCmd)
}

/*
runHook decodes the event from stdin, wires the runner, and hands the
event to the handler. Injections are written to stdout where the host
captures them; a broken event document is the only hard error, so a
degraded pipeline never fails the host event.
*/
func runHook(cmd *cobra.Command, handler func(*hooks.Runner, hooks.HookContext)) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read event context: %w", err)
	}

	var event hookEvent
	if len(data) > 0 {
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("failed to parse event context: %w", err)
		}
	}

	if event.WorkingDirectory == "" {
		event.WorkingDirectory, _ = os.Getwd()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	runner, err := hooks.NewRunner(cfg, stateDir())
	if err != nil {
		return err
	}

	handler(runner, hooks.HookContext{
		WorkingDirectory:  event.WorkingDirectory,
		SessionID:         event.SessionID,
		UserMessage:       event.UserMessage,
		ConversationState: event.ConversationState,
		PreviousContext:   event.PreviousContext,
		Trigger:           event.Trigger,
		InjectSystemMessage: func(block string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), block)
			return err
		},
	})

	log.Debug("hook finished", "command", cmd.Name(), "session", event.SessionID)

	return nil
}
