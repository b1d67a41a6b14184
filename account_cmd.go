package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/onedrive-index/internal/account"
	"github.com/tonimelisma/onedrive-index/internal/config"
	"github.com/tonimelisma/onedrive-index/internal/graph"
	"github.com/tonimelisma/onedrive-index/internal/settings"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage bound OneDrive accounts",
	}

	cmd.AddCommand(newAccountListCmd())
	cmd.AddCommand(newAccountAddCmd())
	cmd.AddCommand(newAccountShowCmd())
	cmd.AddCommand(newAccountRefreshCmd())
	cmd.AddCommand(newAccountRefreshAllCmd())
	cmd.AddCommand(newAccountRemoveCmd())
	cmd.AddCommand(newAccountLoginURLCmd())
	cmd.AddCommand(newAccountBindCmd())
	cmd.AddCommand(newAccountDrivesCmd())

	return cmd
}

func newAccountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE:  runAccountList,
	}
}

func newAccountAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register an application for a new account",
		Long: `Register the application credentials for a new account.

The account starts switched off. Visit the URL printed by 'account login-url'
and pass the returned code to 'account bind' to finish.`,
		Args: cobra.NoArgs,
		RunE: runAccountAdd,
	}

	cmd.Flags().String("client-id", "", "application (client) ID")
	cmd.Flags().String("client-secret", "", "application client secret")
	cmd.Flags().String("redirect-uri", "", "redirect URI registered with the application")
	cmd.Flags().String("cloud", "", "national cloud: global or cn (default from config)")
	cmd.Flags().String("remark", "", "free-form note")

	if err := cmd.MarkFlagRequired("client-id"); err != nil {
		panic(err)
	}

	return cmd
}

func newAccountShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountShow,
	}
}

func newAccountRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh <id>",
		Short: "Renew the token if due and re-probe the account",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountRefresh,
	}

	cmd.Flags().Bool("force-token", false, "renew the access token even if it is not due")

	return cmd
}

func newAccountRefreshAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-all",
		Short: "Refresh every account",
		Args:  cobra.NoArgs,
		RunE:  runAccountRefreshAll,
	}
}

func newAccountRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete an account and its credentials",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountRemove,
	}
}

func newAccountLoginURLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login-url <id>",
		Short: "Print the consent URL for an account",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountLoginURL,
	}

	cmd.Flags().String("state", "", "OAuth state value (random when empty)")

	return cmd
}

func newAccountBindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bind <id> <code>",
		Short: "Exchange an authorization code and activate the account",
		Args:  cobra.ExactArgs(2),
		RunE:  runAccountBind,
	}
}

func newAccountDrivesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drives <id>",
		Short: "List the drives the account's user can reach",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountDrives,
	}
}

// accountView is the JSON and table shape of one account. Secrets are
// never included.
type accountView struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email,omitempty"`
	Remark      string    `json:"remark,omitempty"`
	Cloud       string    `json:"cloud"`
	Status      string    `json:"status"`
	ClientID    string    `json:"client_id"`
	RedirectURI string    `json:"redirect_uri,omitempty"`
	Expires     time.Time `json:"access_token_expires"`
	DriveType   string    `json:"drive_type,omitempty"`
	QuotaUsed   int64     `json:"quota_used,omitempty"`
	QuotaTotal  int64     `json:"quota_total,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newAccountView(acct *account.Account) accountView {
	v := accountView{
		ID:          acct.ID,
		Email:       acct.Email,
		Remark:      acct.Remark,
		Cloud:       string(acct.Cloud),
		Status:      acct.Status.String(),
		ClientID:    acct.ClientID,
		RedirectURI: acct.RedirectURI,
		Expires:     acct.AccessTokenExpires,
		UpdatedAt:   acct.UpdatedAt,
	}

	if d, ok := acct.Drive(); ok {
		v.DriveType = d.DriveType
		v.QuotaUsed = d.QuotaUsed
		v.QuotaTotal = d.QuotaTotal
	}

	return v
}

func parseAccountID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid account id %q", s)
	}

	return id, nil
}

// loadAccount opens the backend and fetches the account named by arg.
// The caller closes the returned backend.
func (cc *CLIContext) loadAccount(ctx context.Context, arg string) (*backend, *account.Account, error) {
	id, err := parseAccountID(arg)
	if err != nil {
		return nil, nil, err
	}

	b, err := cc.openBackend(ctx)
	if err != nil {
		return nil, nil, err
	}

	acct, err := b.db.GetAccount(ctx, id)
	if err != nil {
		b.Close()
		return nil, nil, err
	}

	return b, acct, nil
}

func (cc *CLIContext) newRefresher(b *backend, vendor *account.Vendor) *account.Refresher {
	return account.NewRefresher(vendor, vendor, b.db, cc.Logger)
}

func runAccountList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	b, err := cc.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	accts, err := b.db.ListAccounts(ctx)
	if err != nil {
		return err
	}

	views := make([]accountView, 0, len(accts))
	for _, a := range accts {
		views = append(views, newAccountView(a))
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, views)
	}

	if len(views) == 0 {
		cc.Statusf("No accounts. Run 'onedrive-index account add' to register one.\n")
		return nil
	}

	now := time.Now()
	rows := make([][]string, 0, len(views))

	for _, v := range views {
		rows = append(rows, []string{
			strconv.FormatInt(v.ID, 10),
			orDash(v.Email),
			v.Cloud,
			v.Status,
			formatExpiry(v.Expires, now),
			v.Remark,
		})
	}

	printTable(cc.Stdout, []string{"ID", "EMAIL", "CLOUD", "STATUS", "TOKEN", "REMARK"}, rows)

	return nil
}

func runAccountAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	flags := cmd.Flags()
	clientID, _ := flags.GetString("client-id")
	clientSecret, _ := flags.GetString("client-secret")
	redirectURI, _ := flags.GetString("redirect-uri")
	cloud, _ := flags.GetString("cloud")
	remark, _ := flags.GetString("remark")

	if cloud == "" {
		cloud = cc.Cfg.Graph.Cloud
	}

	if cloud != string(graph.CloudGlobal) && cloud != string(graph.CloudChina) {
		return fmt.Errorf("unknown cloud %q (want %s or %s)", cloud, graph.CloudGlobal, graph.CloudChina)
	}

	b, err := cc.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	acct := &account.Account{
		Cloud:              graph.Cloud(cloud),
		Remark:             remark,
		ClientID:           clientID,
		ClientSecret:       clientSecret,
		RedirectURI:        redirectURI,
		AccessTokenExpires: time.Unix(0, 0),
		Status:             account.StatusOff,
	}

	if err := b.db.CreateAccount(ctx, acct); err != nil {
		return err
	}

	cc.Logger.Info("account added", slog.Int64("account_id", acct.ID))

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, newAccountView(acct))
	}

	fmt.Fprintf(cc.Stdout, "Added account %d.\n", acct.ID)
	cc.Statusf("Next: onedrive-index account login-url %d\n", acct.ID)

	return nil
}

func runAccountShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	b, acct, err := cc.loadAccount(ctx, args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	v := newAccountView(acct)

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, v)
	}

	printAccountDetail(cc, v, time.Now())

	return nil
}

func printAccountDetail(cc *CLIContext, v accountView, now time.Time) {
	w := cc.Stdout

	fmt.Fprintf(w, "ID:        %d\n", v.ID)
	fmt.Fprintf(w, "Email:     %s\n", orDash(v.Email))
	fmt.Fprintf(w, "Remark:    %s\n", orDash(v.Remark))
	fmt.Fprintf(w, "Cloud:     %s\n", v.Cloud)
	fmt.Fprintf(w, "Status:    %s\n", v.Status)
	fmt.Fprintf(w, "Client ID: %s\n", v.ClientID)
	fmt.Fprintf(w, "Token:     %s\n", formatExpiry(v.Expires, now))

	if v.DriveType != "" {
		fmt.Fprintf(w, "Drive:     %s\n", v.DriveType)
		fmt.Fprintf(w, "Quota:     %s of %s used\n", formatSize(v.QuotaUsed), formatSize(v.QuotaTotal))
	}

	fmt.Fprintf(w, "Updated:   %s\n", formatTime(v.UpdatedAt))
}

func runAccountRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	force, err := cmd.Flags().GetBool("force-token")
	if err != nil {
		return err
	}

	b, acct, err := cc.loadAccount(ctx, args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	r := cc.newRefresher(b, cc.newVendor())

	if force && !r.RefreshToken(ctx, acct, true) {
		cc.Statusf("Token renewal failed for account %d\n", acct.ID)
	}

	if err := r.SyncAccount(ctx, acct); err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, newAccountView(acct))
	}

	fmt.Fprintf(cc.Stdout, "Account %d (%s) is %s.\n", acct.ID, orDash(acct.Label()), acct.Status)

	return nil
}

func runAccountRefreshAll(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	b, err := cc.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	accts, err := b.db.ListAccounts(ctx)
	if err != nil {
		return err
	}

	accts, err = sweepAccounts(ctx, b.settings, accts)
	if err != nil {
		return err
	}

	parallel := b.settings.Int(ctx, settingRefreshParallel, cc.Cfg.Refresh.Parallel)
	parallel = min(max(parallel, 1), config.MaxRefreshParallel)

	r := cc.newRefresher(b, cc.newVendor())
	outcomes := r.RefreshAll(ctx, accts, parallel, &account.KeyedLocker{})

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, outcomes)
	}

	rows := make([][]string, 0, len(outcomes))
	failed := 0

	for _, o := range outcomes {
		result := "saved"

		switch {
		case o.Skipped:
			result = "skipped"
		case !o.Updated:
			result = "failed"
			failed++
		}

		rows = append(rows, []string{strconv.FormatInt(o.AccountID, 10), orDash(o.Label), o.Status.String(), result})
	}

	printTable(cc.Stdout, []string{"ID", "ACCOUNT", "STATUS", "RESULT"}, rows)

	if failed > 0 {
		return fmt.Errorf("%d of %d accounts could not be saved", failed, len(outcomes))
	}

	return nil
}

// Settings that tune the refresh-all sweep at runtime.
const (
	settingRefreshParallel = "refresh_parallel" // overrides refresh.parallel
	settingRefreshSkip     = "refresh_skip"     // JSON array of account IDs
)

// sweepAccounts drops the accounts listed in the refresh_skip setting.
func sweepAccounts(ctx context.Context, svc *settings.Service, accts []*account.Account) ([]*account.Account, error) {
	var skip []int64

	found, err := svc.Decode(ctx, settingRefreshSkip, &skip)
	if err != nil {
		return nil, err
	}

	if !found || len(skip) == 0 {
		return accts, nil
	}

	out := make([]*account.Account, 0, len(accts))

	for _, a := range accts {
		if !slices.Contains(skip, a.ID) {
			out = append(out, a)
		}
	}

	return out, nil
}

func runAccountRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	id, err := parseAccountID(args[0])
	if err != nil {
		return err
	}

	b, err := cc.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.db.DeleteAccount(ctx, id); err != nil {
		return err
	}

	cc.Statusf("Removed account %d\n", id)

	return nil
}

func runAccountLoginURL(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	state, err := cmd.Flags().GetString("state")
	if err != nil {
		return err
	}

	if state == "" {
		state = uuid.NewString()
	}

	b, acct, err := cc.loadAccount(ctx, args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	fmt.Fprintln(cc.Stdout, cc.newVendor().Authenticator(acct).AuthCodeURL(state))

	return nil
}

func runAccountBind(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	b, acct, err := cc.loadAccount(ctx, args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	vendor := cc.newVendor()

	grant, err := vendor.Authenticator(acct).Exchange(ctx, args[1])
	if err != nil {
		return err
	}

	acct.ApplyGrant(grant, time.Now())

	if err := b.db.SaveAccount(ctx, acct); err != nil {
		return fmt.Errorf("saving tokens: %w", err)
	}

	if err := cc.newRefresher(b, vendor).SyncAccount(ctx, acct); err != nil {
		return err
	}

	fmt.Fprintf(cc.Stdout, "Bound account %d (%s), status %s.\n", acct.ID, orDash(acct.Label()), acct.Status)

	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

// drivesView is the JSON shape of the drives command.
type drivesView struct {
	User   string      `json:"user"`
	Email  string      `json:"email,omitempty"`
	Drives []driveView `json:"drives"`
}

type driveView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DriveType  string `json:"drive_type"`
	Owner      string `json:"owner,omitempty"`
	QuotaUsed  int64  `json:"quota_used"`
	QuotaTotal int64  `json:"quota_total"`
}

func runAccountDrives(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	b, acct, err := cc.loadAccount(ctx, args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	vendor := cc.newVendor()
	cc.newRefresher(b, vendor).RefreshToken(ctx, acct, false)

	client := vendor.Client(acct)

	user, err := client.Me(ctx)
	if err != nil {
		return fmt.Errorf("reading profile: %w", err)
	}

	drives, err := client.Drives(ctx)
	if err != nil {
		return fmt.Errorf("listing drives: %w", err)
	}

	v := drivesView{User: user.DisplayName, Email: user.Email, Drives: make([]driveView, 0, len(drives))}

	for i := range drives {
		d := &drives[i]
		v.Drives = append(v.Drives, driveView{
			ID:         d.ID,
			Name:       d.Name,
			DriveType:  d.DriveType,
			Owner:      d.OwnerEmail,
			QuotaUsed:  d.QuotaUsed,
			QuotaTotal: d.QuotaTotal,
		})
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, v)
	}

	cc.Statusf("Signed in as %s (%s)\n", orDash(user.DisplayName), orDash(user.Email))

	rows := make([][]string, 0, len(v.Drives))
	for _, d := range v.Drives {
		rows = append(rows, []string{d.ID, orDash(d.Name), d.DriveType, formatSize(d.QuotaUsed) + " / " + formatSize(d.QuotaTotal)})
	}

	printTable(cc.Stdout, []string{"ID", "NAME", "TYPE", "QUOTA"}, rows)

	return nil
}
