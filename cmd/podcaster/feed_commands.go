package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"podcaster/internal/feeds"
)

func newFeedCommand(ctx *commandContext) *cobra.Command {
	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Inspect and edit the workspace feed",
	}
	feedCmd.AddCommand(newFeedShowCommand(ctx))
	feedCmd.AddCommand(newFeedRSSCommand(ctx))
	feedCmd.AddCommand(newFeedSetCommand(ctx))
	return feedCmd
}

func newFeedShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the workspace feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, false, func(c context.Context, s *session) error {
				record, err := s.svc.Feed(c)
				if err != nil {
					return err
				}
				if ctx.jsonFlag {
					return writeJSON(cmd, record)
				}
				writeTable(cmd.OutOrStdout(), []string{"Field", "Value"}, feedRows(record), nil)
				return nil
			})
		},
	}
}

func feedRows(record *feeds.FeedRecord) [][]string {
	f := record.Feed
	explicit := ""
	if f.Explicit != nil {
		explicit = yesNo(*f.Explicit)
	}
	return [][]string{
		{"id", record.ID},
		{"guid", f.GUID},
		{"title", f.Title},
		{"summary", f.Summary},
		{"author", f.Author},
		{"language", f.Language},
		{"category", f.Category},
		{"copyright", f.Copyright},
		{"web_url", f.WebURL},
		{"image_url", f.ImageURL},
		{"explicit", explicit},
	}
}

func newFeedRSSCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rss",
		Short: "Print the feed as RSS XML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, false, func(c context.Context, s *session) error {
				body, err := s.svc.RSS(c)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			})
		},
	}
}

func newFeedSetCommand(ctx *commandContext) *cobra.Command {
	var (
		title, summary, author, language string
		category, copyright, web, image  string
		explicit                         bool
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update feed metadata; unset flags keep their current values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, false, func(c context.Context, s *session) error {
				record, err := s.svc.Feed(c)
				if err != nil {
					return err
				}
				next := record.Feed
				flags := cmd.Flags()
				for name, target := range map[string]*string{
					"title": &next.Title, "summary": &next.Summary, "author": &next.Author,
					"language": &next.Language, "category": &next.Category, "copyright": &next.Copyright,
					"web-url": &next.WebURL, "image-url": &next.ImageURL,
				} {
					if flags.Changed(name) {
						value, _ := flags.GetString(name)
						*target = value
					}
				}
				if flags.Changed("explicit") {
					next.Explicit = feeds.Bool(explicit)
				}
				updated, err := s.svc.ReplaceFeed(c, next)
				if err != nil {
					return err
				}
				if ctx.jsonFlag {
					return writeJSON(cmd, updated)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated feed %q\n", updated.Feed.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Feed title")
	cmd.Flags().StringVar(&summary, "summary", "", "Feed summary")
	cmd.Flags().StringVar(&author, "author", "", "Feed author")
	cmd.Flags().StringVar(&language, "language", "", "Feed language")
	cmd.Flags().StringVar(&category, "category", "", "iTunes category")
	cmd.Flags().StringVar(&copyright, "copyright", "", "Copyright notice")
	cmd.Flags().StringVar(&web, "web-url", "", "Feed website")
	cmd.Flags().StringVar(&image, "image-url", "", "Feed artwork URL")
	cmd.Flags().BoolVar(&explicit, "explicit", false, "Mark the feed explicit")
	return cmd
}
