package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"noesis/internal/pipeline"
)

var (
	thinkingStyle = lipgloss.NewStyle().Faint(true).Italic(true)
	labelStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

var streamCmd = &cobra.Command{
	Use:   "stream <question>",
	Short: "Answer one question, streaming plan and answer as they are generated",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")

		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.shutdown()

		intent := pipeline.InferIntent(question)
		out := cmd.OutOrStdout()

		for ev := range app.orch.Stream(cmd.Context(), question, nil, intent) {
			switch ev.Type {
			case pipeline.EventThinkingStart:
				fmt.Fprintln(out, style(labelStyle, "thinking"))
			case pipeline.EventThinkingDelta:
				fmt.Fprint(out, style(thinkingStyle, ev.Text))
			case pipeline.EventThinkingComplete:
				fmt.Fprintf(out, "\n%s\n", style(labelStyle, "answer ("+string(ev.Route)+")"))
			case pipeline.EventRoadmapTrigger:
				if ev.Text != "" {
					fmt.Fprintln(out, style(labelStyle, "roadmap: "+ev.Text))
				}
			case pipeline.EventAnswerDelta:
				fmt.Fprint(out, ev.Text)
			case pipeline.EventAnswerComplete:
				fmt.Fprintln(out)
			case pipeline.EventPipelineError:
				fmt.Fprintln(out, style(errorStyle, ev.Text))
			}
		}
		return nil
	},
}

func style(s lipgloss.Style, text string) string {
	if plain {
		return text
	}
	return s.Render(text)
}
