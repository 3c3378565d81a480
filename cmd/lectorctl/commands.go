package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reader-annotations/internal/domain"
	"reader-annotations/internal/position"
	"reader-annotations/pkg/sanitize"
)

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(v)
			if err != nil {
				return err
			}
			defer c.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%s)\n", c.Store.Driver())
			return nil
		},
	}
}

func newSanitizeCmd(v *viper.Viper) *cobra.Command {
	var maxLength int
	cmd := &cobra.Command{
		Use:   "sanitize [text]",
		Short: "Print text the way it would be stored",
		Long:  "Sanitize prints its argument, or standard input when no argument is given, after markup and invisible characters are removed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw string
			if len(args) == 1 {
				raw = args[0]
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				raw = string(b)
			}
			limit := maxLength
			if limit == 0 {
				limit = v.GetInt(keyMaxLength)
			}
			fmt.Fprintln(cmd.OutOrStdout(), sanitize.Text(raw, limit))
			return nil
		},
	}
	cmd.Flags().IntVar(&maxLength, "max-length", 0, "maximum length in characters")
	return cmd
}

func newPositionCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "position <json>",
		Short: "Validate a position and print its canonical form and identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := position.Resolve([]byte(args[0]), domain.BookFormat(format))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "key:      %s\n", res.Key)
			fmt.Fprintf(out, "position: %s\n", res.Position)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(domain.FormatPDF), "book format (pdf or epub)")
	return cmd
}

func newBooksCmd(v *viper.Viper) *cobra.Command {
	books := &cobra.Command{
		Use:   "books",
		Short: "Inspect a user's books",
	}

	var userID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List a user's books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(v)
			if err != nil {
				return err
			}
			defer c.Close()

			all, err := c.BookService.ListBooks(cmd.Context(), userID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tFORMAT\tPAGE\tSTATUS")
			for _, b := range all {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\n", b.ID, b.Title, b.Format, b.CurrentPage, b.TotalPages, b.Status)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&userID, "user", "", "owner id")
	_ = list.MarkFlagRequired("user")

	books.AddCommand(list)
	return books
}

func newGoalsCmd(v *viper.Viper) *cobra.Command {
	goals := &cobra.Command{
		Use:   "goals",
		Short: "Inspect and set reading goals",
	}

	var userID string
	var asJSON bool
	progress := &cobra.Command{
		Use:   "progress",
		Short: "Show progress for the goal windows covering now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(v)
			if err != nil {
				return err
			}
			defer c.Close()

			list, err := c.GoalService.GetGoalProgress(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return printGoals(cmd.OutOrStdout(), list, asJSON)
		},
	}
	progress.Flags().StringVar(&userID, "user", "", "owner id")
	progress.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	_ = progress.MarkFlagRequired("user")

	var goalType, period string
	var target int
	set := &cobra.Command{
		Use:   "set",
		Short: "Set the target of a goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(v)
			if err != nil {
				return err
			}
			defer c.Close()

			g, err := c.GoalService.SetGoal(cmd.Context(), userID,
				domain.GoalType(strings.ToLower(goalType)), domain.GoalPeriod(strings.ToLower(period)), target)
			if err != nil {
				return err
			}
			return printGoals(cmd.OutOrStdout(), []*domain.ReadingGoal{g}, false)
		},
	}
	set.Flags().StringVar(&userID, "user", "", "owner id")
	set.Flags().StringVar(&goalType, "type", "", "pages, minutes or books")
	set.Flags().StringVar(&period, "period", "", "daily, weekly, monthly or yearly")
	set.Flags().IntVar(&target, "target", 0, "target value")
	for _, name := range []string{"user", "type", "period", "target"} {
		_ = set.MarkFlagRequired(name)
	}

	goals.AddCommand(progress, set)
	return goals
}

func printGoals(w io.Writer, goals []*domain.ReadingGoal, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(goals)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tPERIOD\tWINDOW\tPROGRESS")
	for _, g := range goals {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d (%.0f%%)\n",
			g.Type, g.Period, g.WindowStart.Format("2006-01-02"), g.Current, g.Target, g.Percent)
	}
	return tw.Flush()
}
