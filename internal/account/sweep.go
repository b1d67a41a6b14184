package account

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of refreshing one account in a sweep.
type Outcome struct {
	AccountID int64
	Label     string
	Updated   bool
	Err       error `json:"-"` // save failure; nil when Updated or Skipped
	Status    Status
	Skipped   bool // context canceled before the account was reached
}

// RefreshAll refreshes every account with at most parallel refreshes in
// flight, holding locker's entry for each account while it runs. Outcomes
// are returned in input order.
func (r *Refresher) RefreshAll(ctx context.Context, accounts []*Account, parallel int, locker *KeyedLocker) []Outcome {
	if parallel < 1 {
		parallel = 1
	}

	if locker == nil {
		locker = &KeyedLocker{}
	}

	outcomes := make([]Outcome, len(accounts))

	var g errgroup.Group
	g.SetLimit(parallel)

	for i, acct := range accounts {
		g.Go(func() error {
			out := Outcome{AccountID: acct.ID}

			if ctx.Err() != nil {
				out.Skipped = true
				out.Label = acct.Label()
				out.Status = acct.Status
				outcomes[i] = out

				return nil
			}

			unlock := locker.Lock(acct.ID)
			out.Err = r.SyncAccount(ctx, acct)
			unlock()

			out.Updated = out.Err == nil
			if out.Err != nil {
				r.logger.Error("account state could not be saved",
					slog.Int64("account_id", acct.ID),
					slog.String("error", out.Err.Error()),
				)
			}

			out.Label = acct.Label()
			out.Status = acct.Status
			outcomes[i] = out

			return nil
		})
	}

	// Workers never return errors.
	_ = g.Wait()

	on := 0

	for _, o := range outcomes {
		if o.Status == StatusOn {
			on++
		}
	}

	r.logger.Info("account sweep complete",
		slog.Int("accounts", len(accounts)),
		slog.Int("on", on),
		slog.Int("parallel", parallel),
	)

	return outcomes
}
