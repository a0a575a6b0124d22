package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tendant/library-store/pkg/libstore"
	"github.com/tendant/library-store/pkg/libstore/report"
	"github.com/tendant/library-store/pkg/libstore/scan"
)

type deleteOptions struct {
	actor     string
	dryRun    bool
	all       bool
	org       string
	reportDir string
	yes       bool
}

func (c *cli) deleteCmd() *cobra.Command {
	var opts deleteOptions
	cmd := &cobra.Command{
		Use:   "delete [library-key]",
		Short: "Delete a library and all of its blocks",
		Example: `  libadmin delete library-v1:OpenedX+lib1
  libadmin delete library-v1:OpenedX+lib1 --dry-run
  libadmin delete --all --org OpenedX --report-dir ./reports --yes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.all == (len(args) == 1) {
				return errors.New("specify exactly one library key or --all")
			}
			if opts.org != "" && !opts.all {
				return errors.New("--org only applies with --all")
			}
			if opts.all {
				return c.deleteAll(cmd.Context(), opts)
			}
			return c.deleteOne(cmd.Context(), args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.actor, "actor", "libadmin", "actor recorded on deleted records")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "list what would be deleted without deleting")
	flags.BoolVar(&opts.all, "all", false, "delete every live library")
	flags.StringVar(&opts.org, "org", "", "with --all, only delete libraries of this organization")
	flags.StringVar(&opts.reportDir, "report-dir", "", "write a CSV report of deleted records to this directory")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (c *cli) deleteOne(ctx context.Context, key string, opts deleteOptions) error {
	if _, err := libstore.ParseLibraryKey(key); err != nil {
		return err
	}

	if !opts.dryRun && !opts.yes {
		ok, err := c.confirm(fmt.Sprintf("Delete library %s and all of its blocks?", key))
		if err != nil || !ok {
			return err
		}
	}

	result, err := c.svc.DeleteLibrary(ctx, libstore.DeleteLibraryRequest{
		Key:    key,
		Actor:  opts.actor,
		DryRun: opts.dryRun,
	})
	if result == nil {
		return err
	}
	c.printResult(result)

	if reportErr := c.writeReport(opts.reportDir, report.Rows(result)); reportErr != nil {
		return errors.Join(err, reportErr)
	}
	return err
}

func (c *cli) deleteAll(ctx context.Context, opts deleteOptions) error {
	if !opts.dryRun && !opts.yes {
		scope := "every library"
		if opts.org != "" {
			scope = "every library of " + opts.org
		}
		ok, err := c.confirm(fmt.Sprintf("Delete %s and all of their blocks?", scope))
		if err != nil || !ok {
			return err
		}
	}

	processor := scan.NewDeleteProcessor(c.svc, opts.actor, opts.dryRun)
	scanResult, err := scan.New(c.svc, c.logger).Scan(ctx, scan.ScanOptions{
		Org:       opts.org,
		Processor: processor,
	})

	var rows []report.Row
	for _, result := range processor.Results() {
		c.printResult(result)
		rows = append(rows, report.Rows(result)...)
	}
	if reportErr := c.writeReport(opts.reportDir, rows); reportErr != nil {
		err = errors.Join(err, reportErr)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "\n%d libraries found, %d processed, %d failed\n",
		scanResult.TotalFound, scanResult.TotalProcessed, scanResult.TotalFailed)
	for _, key := range scanResult.FailedKeys {
		color.New(color.FgRed).Fprintf(c.stdout, "  %s: %v\n", key, scanResult.Errors[key])
	}
	if scanResult.TotalFailed > 0 {
		return fmt.Errorf("%d libraries failed to delete", scanResult.TotalFailed)
	}
	return nil
}

func (c *cli) printResult(result *libstore.DeletionResult) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	key := result.LibraryKey.String()
	switch {
	case result.DryRun:
		yellow.Fprintf(c.stdout, "Would delete %s (%d blocks)\n", key, len(result.Blocks))
		for _, block := range result.Blocks {
			fmt.Fprintf(c.stdout, "  %s\n", block)
		}
	case result.AlreadyDeleted:
		yellow.Fprintf(c.stdout, "%s is already deleted\n", key)
	case result.LibraryDeleted:
		green.Fprintf(c.stdout, "Deleted %s (%d blocks)\n", key, len(result.DeletedBlocks))
	default:
		red.Fprintf(c.stdout, "Partially deleted %s (%d of %d blocks)\n", key, len(result.DeletedBlocks), len(result.Blocks))
	}
}

func (c *cli) writeReport(dir string, rows []report.Row) error {
	if dir == "" || len(rows) == 0 {
		return nil
	}
	path, err := report.WriteFile(dir, rows)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Report written to %s\n", path)
	return nil
}

func (c *cli) confirm(prompt string) (bool, error) {
	fmt.Fprintf(c.stdout, "%s [y/N]: ", prompt)
	scanner := bufio.NewScanner(c.stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return false, err
		}
		return false, errors.New("no confirmation given; pass --yes to skip the prompt")
	}
	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return true, nil
	}
	fmt.Fprintln(c.stdout, "Aborted")
	return false, nil
}

type libraryJSON struct {
	Key         string     `json:"key"`
	DisplayName string     `json:"display_name"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	DeletedBy   string     `json:"deleted_by,omitempty"`
}

func (c *cli) listCmd() *cobra.Command {
	var (
		org            string
		includeDeleted bool
		useJSON        bool
		limit          int
		offset         int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List libraries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			libraries, err := c.svc.ListLibraries(cmd.Context(), libstore.ListLibrariesRequest{
				Org:            org,
				IncludeDeleted: includeDeleted,
				Limit:          limit,
				Offset:         offset,
			})
			if err != nil {
				return fmt.Errorf("failed to list libraries: %w", err)
			}

			if useJSON {
				items := make([]libraryJSON, 0, len(libraries))
				for _, l := range libraries {
					items = append(items, libraryJSON{
						Key:         l.Key.String(),
						DisplayName: l.DisplayName,
						CreatedAt:   l.CreatedAt,
						DeletedAt:   l.DeletedAt,
						DeletedBy:   l.DeletedBy,
					})
				}
				return c.printJSON(items)
			}

			if len(libraries) == 0 {
				fmt.Fprintln(c.stdout, "No libraries found")
				return nil
			}
			w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tNAME\tCREATED\tDELETED")
			for _, l := range libraries {
				deleted := "-"
				if l.DeletedAt != nil {
					deleted = l.DeletedAt.Format(time.RFC3339) + " by " + l.DeletedBy
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.Key, l.DisplayName, l.CreatedAt.Format(time.RFC3339), deleted)
			}
			return w.Flush()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&org, "org", "", "filter by organization")
	flags.BoolVar(&includeDeleted, "include-deleted", false, "include deleted libraries")
	flags.BoolVar(&useJSON, "json", false, "output as JSON")
	flags.IntVar(&limit, "limit", 100, "maximum results")
	flags.IntVar(&offset, "offset", 0, "pagination offset")
	return cmd
}

func (c *cli) blocksCmd() *cobra.Command {
	var useJSON bool
	cmd := &cobra.Command{
		Use:   "blocks <library-key>",
		Short: "List the blocks of a library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := c.svc.GetLibraryBlocks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if useJSON {
				return c.printJSON(view)
			}

			fmt.Fprintf(c.stdout, "%s (%s): %d blocks\n", view.LibraryID, view.DisplayName, len(view.Blocks))
			if len(view.Blocks) == 0 {
				return nil
			}
			w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tNAME")
			for _, b := range view.Blocks {
				fmt.Fprintf(w, "%s\t%s\t%s\n", b.ID, b.BlockType, b.DisplayName)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&useJSON, "json", false, "output as JSON")
	return cmd
}

func (c *cli) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
