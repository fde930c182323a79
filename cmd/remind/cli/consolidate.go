package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yashdiniz/focusa-remind/pkg/core"
	"github.com/yashdiniz/focusa-remind/pkg/intelligence"
	"github.com/yashdiniz/focusa-remind/pkg/profile"
)

var (
	extractFacts   bool
	dedup          bool
	dedupThreshold float64
	maxSteps       int
	tokenBudget    int
	promptFile     string
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate [message]",
	Short: "Turn a conversational message into memory changes",
	Long: `consolidate runs the memory agent over one user message. The agent
retrieves related facts, asks the configured LLM what to add, update or
delete, and applies the changes. Pass "-" to read the message from stdin.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		message, err := readMessage(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		prompt, err := readPrompt(promptFile)
		if err != nil {
			return err
		}

		client, err := openClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()
		if client.LLM() == nil {
			return fmt.Errorf("%w: %w", core.ErrInvalidConfig, intelligence.ErrNoLLM)
		}

		profiles, err := openProfiles(client.Config())
		if err != nil {
			return err
		}
		defer profiles.Close()
		p, err := profile.Lookup(cmd.Context(), profiles, userID)
		if err != nil {
			return err
		}

		agent := buildAgent(client, prompt)
		result, err := agent.Run(cmd.Context(), intelligence.Turn{
			UserID:  userID,
			Content: message,
			Profile: p,
		})
		if result != nil {
			if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil && err == nil {
				err = werr
			}
		}
		return err
	},
}

func buildAgent(client *core.Client, prompt string) *intelligence.Agent {
	var policy intelligence.Policy = intelligence.NewLLMPolicy(client.LLM())
	if prompt != "" {
		policy = intelligence.NewLLMPolicyWithPrompt(client.LLM(), prompt)
	}
	if dedup {
		policy = intelligence.NewDedupPolicy(policy, client, dedupThreshold)
	}

	opts := []intelligence.AgentOption{
		intelligence.WithAgentConfig(client.Config().Agent),
		intelligence.WithMaxSteps(maxSteps),
	}
	if tokenBudget > 0 {
		opts = append(opts, intelligence.WithTokenBudget(tokenBudget))
	}
	if extractFacts {
		opts = append(opts, intelligence.WithExtractor(intelligence.NewFactExtractor(client.LLM())))
	}
	return intelligence.NewAgent(client, policy, opts...)
}

// readPrompt returns the trimmed contents of path, or "" when path is empty.
func readPrompt(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: prompt file: %w", core.ErrInvalidConfig, err)
	}
	prompt := strings.TrimSpace(string(b))
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt file %q is empty", core.ErrInvalidConfig, path)
	}
	return prompt, nil
}

func readMessage(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		args = []string{string(b)}
	}
	message := strings.TrimSpace(strings.Join(args, " "))
	if message == "" {
		return "", fmt.Errorf("%w: empty message", core.ErrInvalidInput)
	}
	return message, nil
}

func init() {
	RootCmd.AddCommand(consolidateCmd)

	consolidateCmd.Flags().BoolVar(&extractFacts, "extract", true, "Extract atomic facts before deciding")
	consolidateCmd.Flags().BoolVar(&dedup, "dedup", false, "Drop added facts that are already stored")
	consolidateCmd.Flags().Float64Var(&dedupThreshold, "dedup-threshold", intelligence.DefaultDuplicateThreshold, "Similarity at which an added fact counts as a duplicate")
	consolidateCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Step cap (default: AGENT_MAX_STEPS)")
	consolidateCmd.Flags().IntVar(&tokenBudget, "token-budget", 0, "Token budget (default: AGENT_TOKEN_BUDGET)")
	consolidateCmd.Flags().StringVar(&promptFile, "prompt-file", "", "File whose text replaces the built-in decision instructions")
}
