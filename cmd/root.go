package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hunter/src/log"
)

var verbosity int

var rootCmd = &cobra.Command{
	Use:   "hunter",
	Short: "Evaluate LLM answers for groundedness, relevance, coherence and completeness",
	Long: `hunter scores LLM answers against reference documents on four metrics:
groundedness, relevance, coherence and completeness. Judging is pluggable:
an Ollama or OpenAI model acts as judge, or a deterministic lexical judge
runs fully offline.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		settingDefaultConfig()
		return log.Setup(viper.GetString("log.mode"), verbosity)
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "raise log verbosity")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
