package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dt-pm-tools/issue-kb/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure GitHub and model provider credentials",
	Long:  `Interactively set up the GitHub token, default model, output directory and provider API keys. Settings are saved to ~/.issue-kb.yaml. Leave an answer empty to keep the current value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		// Load existing config for defaults
		existing, err := config.LoadFile(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg := existing

		cfg.Model = prompt(reader, "Default model", existing.Model)
		cfg.OutputDir = prompt(reader, "Output directory", existing.OutputDir)

		secrets := []struct {
			label string
			value *string
		}{
			{"GitHub token", &cfg.GitHubToken},
			{"OpenAI API key", &cfg.Providers.OpenAI.APIKey},
			{"Anthropic API key", &cfg.Providers.Anthropic.APIKey},
			{"Volcengine API key", &cfg.Providers.Volcengine.APIKey},
		}
		for _, s := range secrets {
			v, err := promptSecret(s.label, *s.value != "")
			if err != nil {
				return err
			}
			if v != "" {
				*s.value = v
			}
		}

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		path := configPath()
		if err := config.Save(cfg, path); err != nil {
			return err
		}

		fmt.Printf("Configuration saved to %s\n", path)
		return nil
	},
}

func prompt(reader *bufio.Reader, label, current string) string {
	if current != "" {
		fmt.Printf("%s [%s]: ", label, current)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	return line
}

func promptSecret(label string, isSet bool) (string, error) {
	hint := "input hidden"
	if isSet {
		hint = "input hidden, empty keeps current"
	}
	fmt.Printf("%s (%s): ", label, hint)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(string(b)), nil
}

func init() {
	rootCmd.AddCommand(configCmd)
}
