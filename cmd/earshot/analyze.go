package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrWong99/earshot/internal/service"
)

func newAnalyzeCmd(v *viper.Viper) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "analyze [text...]",
		Short: "Analyze text and print the result as JSON",
		Long: `Analyze the given text, or standard input when no text is given, and print
the result as JSON. The configured vocabulary and lexicon apply; results are
not published.`,
		Example: `  earshot analyze "John Smith went to Paris yesterday. Is this great?"
  echo "I hate this terrible awful day" | earshot analyze`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(v)
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			if len(args) == 0 || text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimRight(string(data), "\r\n")
			}

			svc, err := service.New(cfg)
			if err != nil {
				return err
			}
			res, err := svc.AnalyzeText(cmd.Context(), text)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(res)
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "print single-line JSON")
	return cmd
}
