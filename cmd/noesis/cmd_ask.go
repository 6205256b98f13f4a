package main

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"noesis/internal/pipeline"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question through the blocking pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")

		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.shutdown()

		intent := pipeline.InferIntent(question)
		answer, err := app.orch.Run(cmd.Context(), question, nil, intent)
		if err != nil {
			return err
		}

		cmd.Println(renderMarkdown(answer))
		return nil
	},
}

// renderMarkdown pretty-prints an answer for the terminal, falling back to
// the raw text when rendering is disabled or fails.
func renderMarkdown(text string) string {
	if plain {
		return text
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
