package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/onedrive-index/internal/settings"
)

func newSettingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setting",
		Short: "Read and write index settings",
	}

	cmd.AddCommand(newSettingListCmd())
	cmd.AddCommand(newSettingGetCmd())
	cmd.AddCommand(newSettingSetCmd())
	cmd.AddCommand(newSettingUnsetCmd())
	cmd.AddCommand(newSettingRefreshCmd())

	return cmd
}

func newSettingListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all settings",
		Args:  cobra.NoArgs,
		RunE:  runSettingList,
	}
}

func newSettingGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE:  runSettingGet,
	}

	cmd.Flags().String("default", "", "value printed when the key is not set")

	return cmd
}

func newSettingSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting",
		Long: `Store a setting and refresh the settings cache.

With --structured the value is parsed as JSON and stored in its
canonical serialized form.`,
		Args: cobra.ExactArgs(2),
		RunE: runSettingSet,
	}

	cmd.Flags().Bool("structured", false, "parse the value as JSON")

	return cmd
}

func newSettingUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a setting",
		Args:  cobra.ExactArgs(1),
		RunE:  runSettingUnset,
	}
}

func newSettingRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reload settings from the database into the cache",
		Args:  cobra.NoArgs,
		RunE:  runSettingRefresh,
	}
}

func runSettingList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	b, err := cc.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	m, err := b.settings.Load(ctx)
	if err != nil {
		return err
	}

	return printSettings(cc, m)
}

func runSettingGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	def, err := cmd.Flags().GetString("default")
	if err != nil {
		return err
	}

	b, err := cc.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	value := b.settings.Get(ctx, args[0], def)

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, map[string]string{args[0]: value})
	}

	fmt.Fprintln(cc.Stdout, value)

	return nil
}

func runSettingSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	structured, err := cmd.Flags().GetBool("structured")
	if err != nil {
		return err
	}

	value, err := parseSettingValue(args[1], structured)
	if err != nil {
		return err
	}

	b, err := cc.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	if _, err := b.settings.Set(ctx, args[0], value); err != nil {
		return err
	}

	cc.Statusf("Set %s\n", args[0])

	return nil
}

// parseSettingValue turns command-line text into a setting value.
func parseSettingValue(raw string, structured bool) (settings.Value, error) {
	if !structured {
		return settings.Scalar(raw), nil
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return settings.Value{}, fmt.Errorf("parsing structured value: %w", err)
	}

	return settings.ValueOf(v)
}

func runSettingUnset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	b, err := cc.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	if _, err := b.settings.Delete(ctx, args[0]); err != nil {
		return err
	}

	cc.Statusf("Removed %s\n", args[0])

	return nil
}

func runSettingRefresh(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	b, err := cc.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	m, err := b.settings.Refresh(ctx)
	if err != nil {
		return err
	}

	cc.Statusf("Cached %d settings\n", len(m))

	return nil
}

// printSettings writes the mapping as a sorted table or JSON object.
func printSettings(cc *CLIContext, m map[string]string) error {
	if cc.Flags.JSON {
		return printJSON(cc.Stdout, m)
	}

	if len(m) == 0 {
		cc.Statusf("No settings.\n")
		return nil
	}

	printTable(cc.Stdout, []string{"KEY", "VALUE"}, settingRows(m))

	return nil
}

func settingRows(m map[string]string) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, m[k]})
	}

	return rows
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
