package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"podcaster/internal/feeds"
	"podcaster/internal/services"
)

func requestText(args []string) (string, error) {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return "", services.Wrap(services.ErrValidation, "cli", "request", "a request describing the podcast is required", nil)
	}
	return text, nil
}

func newPremiseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "premise <request...>",
		Short: "Generate a podcast name and description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := requestText(args)
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, true, func(c context.Context, s *session) error {
				res, err := s.svc.Premise(c, text)
				if err != nil {
					return err
				}
				if ctx.jsonFlag {
					return writeJSON(cmd, res)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Podcast: %s\n", res.Premise.PodcastName)
				fmt.Fprintf(out, "Description: %s\n", res.Premise.PodcastDescription)
				printFeedLine(out, res.Feed, res.FeedCreated)
				return nil
			})
		},
	}
}

func newEpisodePremiseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "episode <request...>",
		Short: "Generate a podcast episode name and description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := requestText(args)
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, true, func(c context.Context, s *session) error {
				res, err := s.svc.EpisodePremise(c, text)
				if err != nil {
					return err
				}
				if ctx.jsonFlag {
					return writeJSON(cmd, res)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Podcast: %s\n", res.Premise.PodcastName)
				fmt.Fprintf(out, "Episode: %s\n", res.Premise.EpisodeName)
				fmt.Fprintf(out, "Description: %s\n", res.Premise.EpisodeDescription)
				printFeedLine(out, res.Feed, res.FeedCreated)
				return nil
			})
		},
	}
}

func newScriptCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "script <request...>",
		Short: "Write an episode script and store it as a new episode",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := requestText(args)
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, true, func(c context.Context, s *session) error {
				res, err := s.svc.Script(c, text)
				if err != nil {
					return err
				}
				if ctx.jsonFlag {
					return writeJSON(cmd, res)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: %s\n\n", res.Script.PodcastName, res.Script.EpisodeName)
				fmt.Fprintln(out, strings.TrimSpace(res.Script.ScriptText))
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Episode %s stored; upload audio to publish it.\n", res.Episode.ID)
				return nil
			})
		},
	}
}

func printFeedLine(out io.Writer, record *feeds.FeedRecord, created bool) {
	if record == nil {
		return
	}
	verb := "Using"
	if created {
		verb = "Created"
	}
	fmt.Fprintf(out, "%s feed %q (%s)\n", verb, record.Feed.Title, record.ID)
}
