package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"podcaster/internal/feeds"
)

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	episodesCmd := &cobra.Command{
		Use:   "episodes",
		Short: "List and manage stored episodes",
	}
	episodesCmd.AddCommand(newEpisodesListCommand(ctx))
	episodesCmd.AddCommand(newEpisodesShowCommand(ctx))
	episodesCmd.AddCommand(newEpisodesAudioCommand(ctx))
	return episodesCmd
}

func newEpisodesListCommand(ctx *commandContext) *cobra.Command {
	var withAudio bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List episodes, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, false, func(c context.Context, s *session) error {
				records, err := s.svc.Episodes(c, withAudio)
				if err != nil {
					return err
				}
				if ctx.jsonFlag {
					return writeJSON(cmd, records)
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No episodes")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{rec.ID, rec.Episode.Title, yesNo(rec.HasAudio), rec.Episode.PubDate})
				}
				writeTable(cmd.OutOrStdout(), []string{"ID", "Title", "Audio", "Published"}, rows, nil)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&withAudio, "with-audio", false, "Only list episodes with uploaded audio")
	return cmd
}

func newEpisodesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an episode and its script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, false, func(c context.Context, s *session) error {
				record, err := s.svc.Episode(c, strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if ctx.jsonFlag {
					return writeJSON(cmd, record)
				}
				printEpisode(cmd, record)
				return nil
			})
		},
	}
}

func printEpisode(cmd *cobra.Command, record *feeds.EpisodeRecord) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", record.Episode.Title)
	fmt.Fprintf(out, "ID: %s\nAudio: %s\n", record.ID, yesNo(record.HasAudio))
	for _, seg := range record.Segments {
		if seg.Kind == feeds.DocTagText {
			fmt.Fprintf(out, "\n%s\n", seg.Text)
		}
	}
}

func newEpisodesAudioCommand(ctx *commandContext) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "mark-audio <id>",
		Short: "Mark an episode audio-complete, optionally storing an mp3",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withSession(cmd, false, func(c context.Context, s *session) error {
				var (
					record *feeds.EpisodeRecord
					err    error
				)
				if strings.TrimSpace(file) != "" {
					f, openErr := os.Open(file)
					if openErr != nil {
						return fmt.Errorf("open audio file: %w", openErr)
					}
					defer f.Close()
					record, _, err = s.svc.StoreAudio(c, id, f)
				} else {
					record, err = s.svc.MarkAudioComplete(c, id)
				}
				if err != nil {
					return err
				}
				if ctx.jsonFlag {
					return writeJSON(cmd, record)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Episode %s is audio-complete\n", record.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "mp3 file to store as the episode audio")
	return cmd
}
