package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

A context holds vendor credentials, the listen address and the tenant file
of one deployment.

Configuration is stored in ~/.callbridge/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add a new context",
	Long: `Add a new context with the specified name.

Example:
  callbridge config add-context prod --openai-key KEY --tenant-file /etc/callbridge/tenants.yaml
  callbridge config add-context dev --gemini-key KEY --listen 127.0.0.1:9000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		flags := cmd.Flags()

		get := func(flag string) (string, error) {
			v, err := flags.GetString(flag)
			if err != nil {
				return "", fmt.Errorf("failed to read '%s' flag: %w", flag, err)
			}
			return v, nil
		}

		values := make(map[string]string)
		for _, flag := range []string{
			"openai-key", "openai-url", "gemini-key", "listen",
			"tenant-file", "data-dir", "speech-model",
		} {
			v, err := get(flag)
			if err != nil {
				return err
			}
			values[flag] = v
		}
		if values["openai-key"] == "" && values["gemini-key"] == "" {
			return fmt.Errorf("--openai-key or --gemini-key is required")
		}

		ctx := &cli.Context{
			Listen:      values["listen"],
			TenantFile:  values["tenant-file"],
			DataDir:     values["data-dir"],
			SpeechModel: values["speech-model"],
		}
		if values["openai-key"] != "" {
			ctx.OpenAI = &cli.Credentials{APIKey: values["openai-key"], BaseURL: values["openai-url"]}
		}
		if values["gemini-key"] != "" {
			ctx.Gemini = &cli.Credentials{APIKey: values["gemini-key"]}
		}

		if err := getConfig().AddContext(name, ctx); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q added successfully", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := getConfig().DeleteContext(name); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted", name)
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := getConfig().UseContext(name); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q", name)
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Display the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if len(cfg.Contexts) == 0 {
			fmt.Println("No contexts configured")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tLISTEN\tPROVIDERS\tTENANT_FILE")
		for _, name := range cfg.ListContexts() {
			ctx := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			tenantFile := ctx.TenantFile
			if tenantFile == "" {
				tenantFile = "(none)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", current, name, ctx.ListenAddr(), contextProviders(ctx), tenantFile)
		}
		return w.Flush()
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		view := struct {
			Path           string                  `json:"path"`
			CurrentContext string                  `json:"current_context,omitempty"`
			Contexts       map[string]*cli.Context `json:"contexts,omitempty"`
		}{
			Path:           cfg.Path(),
			CurrentContext: cfg.CurrentContext,
			Contexts:       make(map[string]*cli.Context, len(cfg.Contexts)),
		}
		for name, ctx := range cfg.Contexts {
			view.Contexts[name] = ctx.Masked()
		}
		return outputResult(view, outputFile, outputJSON)
	},
}

// contextProviders lists the vendors ctx has credentials for.
func contextProviders(ctx *cli.Context) string {
	switch {
	case ctx.OpenAI != nil && ctx.Gemini != nil:
		return "openai,gemini"
	case ctx.OpenAI != nil:
		return "openai"
	case ctx.Gemini != nil:
		return "gemini"
	}
	return "-"
}

func init() {
	configAddContextCmd.Flags().String("openai-key", "", "OpenAI API key")
	configAddContextCmd.Flags().String("openai-url", "", "OpenAI realtime websocket URL (optional)")
	configAddContextCmd.Flags().String("gemini-key", "", "Gemini API key")
	configAddContextCmd.Flags().String("listen", "", "HTTP listen address (default "+cli.DefaultListen+")")
	configAddContextCmd.Flags().String("tenant-file", "", "tenant file (YAML)")
	configAddContextCmd.Flags().String("data-dir", "", "data directory for the prompt cache")
	configAddContextCmd.Flags().String("speech-model", "", "model used to render prompts")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
