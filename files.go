package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/onedrive-index/internal/graph"
	"github.com/tonimelisma/onedrive-index/internal/remotepath"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <account-id> [path]",
		Short: "List files and folders of an account's drive",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runLs,
	}
}

func newDeltaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delta <account-id>",
		Short: "Summarize the drive's change feed",
		Long: `Enumerate the drive's change feed and print a summary plus the delta
link. Pass that link back with --token to see only later changes.`,
		Args: cobra.ExactArgs(1),
		RunE: runDelta,
	}

	cmd.Flags().String("token", "", "delta link from a previous run")

	return cmd
}

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <path>",
		Short: "Show how a drive path is normalized and addressed",
		Args:  cobra.ExactArgs(1),
		RunE:  runPath,
	}
}

// lsEntry is the JSON shape of one listed item.
type lsEntry struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	IsFolder   bool   `json:"is_folder"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at,omitempty"`
	ChildCount int    `json:"child_count,omitempty"`
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	dir := remotepath.Root
	if len(args) > 1 {
		dir = remotepath.Absolute(args[1])
	}

	b, acct, err := cc.loadAccount(ctx, args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	vendor := cc.newVendor()

	// Best effort: an undue or failed renewal leaves the stored token in use.
	cc.newRefresher(b, vendor).RefreshToken(ctx, acct, false)

	client := vendor.Client(acct)

	items, parent, err := listPath(ctx, client, dir)
	if err != nil {
		return err
	}

	sortItems(items, b.settings.Bool(ctx, settingListFoldersFirst, true))

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, lsEntries(parent, items))
	}

	if len(items) == 0 {
		cc.Statusf("%s is empty\n", dir)
		return nil
	}

	printTable(cc.Stdout, []string{"NAME", "SIZE", "MODIFIED"}, lsRows(items))

	return nil
}

// settingListFoldersFirst is the setting that groups folders ahead of files
// in listings.
const settingListFoldersFirst = "list_folders_first"

// listPath lists the folder at p, or returns the single item when p names a
// file. parent is the folder the returned items live in.
func listPath(ctx context.Context, client *graph.Client, p string) (items []graph.Item, parent string, err error) {
	if p != remotepath.Root {
		item, err := client.GetItem(ctx, p)
		if err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", p, err)
		}

		if !item.IsFolder {
			return []graph.Item{*item}, remotepath.Absolute(p + "/.."), nil
		}
	}

	items, err = client.ListChildren(ctx, p)
	if err != nil {
		return nil, "", fmt.Errorf("listing %s: %w", p, err)
	}

	return items, p, nil
}

// sortItems orders items by name, with folders first when foldersFirst.
func sortItems(items []graph.Item, foldersFirst bool) {
	sort.SliceStable(items, func(i, j int) bool {
		if foldersFirst && items[i].IsFolder != items[j].IsFolder {
			return items[i].IsFolder
		}

		return items[i].Name < items[j].Name
	})
}

func lsRows(items []graph.Item) [][]string {
	rows := make([][]string, 0, len(items))

	for i := range items {
		it := &items[i]
		name := it.Name
		size := formatSize(it.Size)

		if it.IsFolder {
			name += "/"

			if it.ChildCount >= 0 {
				size = strconv.Itoa(it.ChildCount) + " items"
			}
		}

		rows = append(rows, []string{name, size, formatTime(it.ModifiedAt)})
	}

	return rows
}

func lsEntries(dir string, items []graph.Item) []lsEntry {
	entries := make([]lsEntry, 0, len(items))

	for i := range items {
		it := &items[i]
		e := lsEntry{
			Name:     it.Name,
			Path:     remotepath.Join(dir, it.Name),
			IsFolder: it.IsFolder,
			Size:     it.Size,
		}

		if !it.ModifiedAt.IsZero() {
			e.ModifiedAt = it.ModifiedAt.UTC().Format("2006-01-02T15:04:05Z")
		}

		if it.IsFolder && it.ChildCount > 0 {
			e.ChildCount = it.ChildCount
		}

		entries = append(entries, e)
	}

	return entries
}

// deltaSummary is the output of the delta command.
type deltaSummary struct {
	Changed   int    `json:"changed"`
	Deleted   int    `json:"deleted"`
	Folders   int    `json:"folders"`
	DeltaLink string `json:"delta_link"`
}

func runDelta(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	token, err := cmd.Flags().GetString("token")
	if err != nil {
		return err
	}

	b, acct, err := cc.loadAccount(ctx, args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	vendor := cc.newVendor()
	cc.newRefresher(b, vendor).RefreshToken(ctx, acct, false)

	items, link, err := vendor.Client(acct).DeltaAll(ctx, token)
	if err != nil {
		return fmt.Errorf("reading change feed: %w", err)
	}

	sum := summarizeDelta(items, link)

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, sum)
	}

	fmt.Fprintf(cc.Stdout, "changed: %d (%d folders)\n", sum.Changed, sum.Folders)
	fmt.Fprintf(cc.Stdout, "deleted: %d\n", sum.Deleted)
	fmt.Fprintf(cc.Stdout, "next:    %s\n", sum.DeltaLink)

	return nil
}

func summarizeDelta(items []graph.Item, link string) deltaSummary {
	sum := deltaSummary{DeltaLink: link}

	for i := range items {
		switch {
		case items[i].IsDeleted:
			sum.Deleted++
		case items[i].IsFolder:
			sum.Changed++
			sum.Folders++
		default:
			sum.Changed++
		}
	}

	return sum
}

// pathView lists the forms a user path takes on its way to a request.
type pathView struct {
	Absolute string `json:"absolute"`
	Encoded  string `json:"encoded"`
	Item     string `json:"item"`
	Children string `json:"children"`
}

func runPath(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	v := pathView{
		Absolute: remotepath.Absolute(args[0]),
		Encoded:  remotepath.RequestPath(args[0], false, false),
		Item:     "/me/drive/root" + remotepath.RequestPath(args[0], true, true),
		Children: "/me/drive/root" + remotepath.RequestPath(args[0], true, false) + "children",
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, v)
	}

	fmt.Fprintf(cc.Stdout, "absolute: %s\n", v.Absolute)
	fmt.Fprintf(cc.Stdout, "encoded:  %s\n", v.Encoded)
	fmt.Fprintf(cc.Stdout, "item:     %s\n", v.Item)
	fmt.Fprintf(cc.Stdout, "children: %s\n", v.Children)

	return nil
}
