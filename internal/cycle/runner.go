// Package cycle runs one competition settlement: sweep expired
// disqualifications, evaluate every holder against current market
// state, rank the losses, snapshot the cycle and pay the winners.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"lossmine/internal/costbasis"
	"lossmine/internal/domain"
	"lossmine/internal/eligibility"
	"lossmine/internal/idhash"
	"lossmine/internal/payout"
	"lossmine/internal/providers"
	"lossmine/internal/ranking"
	"lossmine/internal/storage"
)

// Runner errors.
var (
	// ErrAlreadyPaid is returned when payout records already exist for
	// the cycle being settled.
	ErrAlreadyPaid = errors.New("cycle already paid")

	// ErrNoSnapshot is returned when settling a cycle that was never
	// snapshotted.
	ErrNoSnapshot = errors.New("no snapshot for cycle")
)

// Stores groups the persistence backends the runner writes through.
type Stores struct {
	Holders           storage.HolderStore
	Acquisitions      storage.AcquisitionStore
	Snapshots         storage.SnapshotStore
	Payouts           storage.PayoutStore
	Disqualifications storage.DisqualificationStore

	// History is optional; nil disables leaderboard archiving.
	History storage.LeaderboardHistoryStore
}

// Options for creating a Runner.
type Options struct {
	Stores Stores
	Market providers.MarketSource
	Params domain.ContestParams

	// Fetcher is optional; when set, Run syncs each holder's activity
	// from the indexer into the acquisition store before evaluating.
	Fetcher *providers.EventFetcher

	Logger zerolog.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Runner executes settlement cycles. A mutex serializes Run calls so
// cycle numbers stay monotonic even when a scheduler and a manual
// trigger race.
type Runner struct {
	stores  Stores
	market  providers.MarketSource
	params  domain.ContestParams
	fetcher *providers.EventFetcher
	log     zerolog.Logger
	now     func() time.Time

	mu sync.Mutex
}

// New creates a Runner.
func New(opts Options) (*Runner, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, fmt.Errorf("contest params: %w", err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		stores:  opts.Stores,
		market:  opts.Market,
		params:  opts.Params,
		fetcher: opts.Fetcher,
		log:     opts.Logger,
		now:     now,
	}, nil
}

// Result summarizes one settlement cycle.
type Result struct {
	Cycle        int64
	Snapshot     *domain.Snapshot
	Payouts      []*domain.PayoutRecord
	SweptWindows int

	// Rejections counts ineligible holders by reason across the whole
	// evaluated set, not just the snapshot's bounded top list.
	Rejections map[string]int

	// Skipped is true when no holder was eligible: the snapshot still
	// records the cycle, but the pool is not paid out.
	Skipped bool
}

// Run executes one full settlement cycle.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runID := uuid.NewString()
	log := r.log.With().Str("run_id", runID).Logger()
	now := r.now()

	cycle, err := r.nextCycle(ctx)
	if err != nil {
		return nil, fmt.Errorf("determine cycle: %w", err)
	}
	log = log.With().Int64("cycle", cycle).Logger()
	log.Info().Msg("cycle started")

	swept, err := r.stores.Disqualifications.SweepExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("sweep disqualifications: %w", err)
	}
	if swept > 0 {
		log.Info().Int("swept", swept).Msg("expired disqualification windows removed")
	}

	price, err := r.market.TokenPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch token price: %w", err)
	}
	pool, err := r.market.PoolBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch pool balance: %w", err)
	}
	balances, err := r.market.HolderBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch holder balances: %w", err)
	}
	log.Info().
		Str("price", price.String()).
		Str("pool", pool.String()).
		Int("holders", len(balances)).
		Msg("market state fetched")

	if r.fetcher != nil {
		if err := r.syncActivity(ctx, balances); err != nil {
			return nil, fmt.Errorf("sync activity: %w", err)
		}
	}

	evaluated := make([]domain.RankedHolder, 0, len(balances))
	rejections := make(map[string]int)
	for _, hb := range balances {
		rh, err := r.evaluateHolder(ctx, hb, price, pool, cycle, now)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", hb.Wallet, err)
		}
		if !rh.Eligible {
			rejections[rh.IneligibleReason]++
		}
		evaluated = append(evaluated, rh)
	}

	ranked := ranking.Rank(evaluated)
	top := ranking.Top(ranked, r.params.TopN)

	snapshot := &domain.Snapshot{
		Cycle:         cycle,
		TimestampMs:   now.UnixMilli(),
		TokenPrice:    price,
		PoolBalance:   pool,
		TotalHolders:  len(balances),
		EligibleCount: len(ranked),
		TopHolders:    top,
	}
	if err := r.stores.Snapshots.Insert(ctx, snapshot); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("cycle %d already snapshotted: %w", cycle, err)
		}
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	if r.stores.History != nil {
		if err := r.stores.History.InsertCycle(ctx, cycle, snapshot.TimestampMs, ranked); err != nil {
			// Archiving is best-effort; the snapshot is the source of truth.
			log.Warn().Err(err).Msg("leaderboard archive failed")
		}
	}

	result := &Result{
		Cycle:        cycle,
		Snapshot:     snapshot,
		SweptWindows: swept,
		Rejections:   rejections,
	}

	if len(ranked) == 0 {
		result.Skipped = true
		log.Info().Msg("no eligible holders, pool carries over")
		return result, nil
	}

	payouts, err := r.settle(ctx, snapshot, now)
	if err != nil {
		return nil, fmt.Errorf("settle cycle %d: %w", cycle, err)
	}
	result.Payouts = payouts

	log.Info().
		Int("eligible", len(ranked)).
		Int("payouts", len(payouts)).
		Msg("cycle settled")
	return result, nil
}

// Settle pays an already-snapshotted cycle. Used to re-drive a cycle
// whose snapshot landed but whose payout failed partway.
func (r *Runner) Settle(ctx context.Context, cycle int64) ([]*domain.PayoutRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot, err := r.stores.Snapshots.GetByCycle(ctx, cycle)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("cycle %d: %w", cycle, ErrNoSnapshot)
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return r.settle(ctx, snapshot, r.now())
}

// nextCycle derives the cycle number: one past the latest snapshot, or
// 1 when none exists.
func (r *Runner) nextCycle(ctx context.Context) (int64, error) {
	latest, err := r.stores.Snapshots.Latest(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 1, nil
		}
		return 0, err
	}
	return latest.Cycle + 1, nil
}

// syncActivity pulls fresh per-wallet events from the indexer into the
// acquisition store. Duplicates are expected on every sync and skipped.
func (r *Runner) syncActivity(ctx context.Context, balances []providers.HolderBalance) error {
	since := make(map[string]time.Time, len(balances))
	for _, hb := range balances {
		holder, err := r.stores.Holders.Get(ctx, hb.Wallet)
		switch {
		case err == nil:
			since[hb.Wallet] = holder.CostBasisResetAt
		case errors.Is(err, storage.ErrNotFound):
			since[hb.Wallet] = time.Time{}
		default:
			return err
		}
	}

	fetched, err := r.fetcher.FetchAll(ctx, since)
	if err != nil {
		return err
	}

	for wallet, events := range fetched {
		for i := range events {
			e := events[i]
			if err := r.stores.Acquisitions.Insert(ctx, &e); err != nil {
				if errors.Is(err, storage.ErrDuplicateKey) {
					continue
				}
				return fmt.Errorf("insert event %s for %s: %w", e.TxSignature, wallet, err)
			}
		}
	}
	return nil
}

// evaluateHolder resolves one wallet's cost basis and activity, runs the
// eligibility chain and persists the refreshed holder record.
func (r *Runner) evaluateHolder(ctx context.Context, hb providers.HolderBalance, price, pool decimal.Decimal, cycle int64, now time.Time) (domain.RankedHolder, error) {
	holder, err := r.stores.Holders.Get(ctx, hb.Wallet)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return domain.RankedHolder{}, err
		}
		holder = &domain.Holder{Wallet: hb.Wallet}
	}

	// Activity and VWAP inputs are scoped to the most recent cost-basis
	// reset; a win draws a line under everything before it.
	var sinceMs int64
	if !holder.CostBasisResetAt.IsZero() {
		sinceMs = holder.CostBasisResetAt.UnixMilli()
	}
	events, err := r.stores.Acquisitions.GetByWalletSince(ctx, hb.Wallet, sinceMs)
	if err != nil {
		return domain.RankedHolder{}, err
	}

	totals := costbasis.Accumulate(events)
	// Layer post-reset buys on top of the totals seeded at reset time.
	totals.Quantity = totals.Quantity.Add(holder.TotalAcquired)
	totals.CostAmount = totals.CostAmount.Add(holder.TotalCostAmount)

	var basis *decimal.Decimal
	if vwap, ok := totals.VWAP(); ok {
		basis = &vwap
	}

	var hasDisposal, hasOutbound bool
	// A reset winner counts as having re-acquired at reset time.
	firstBuy := holder.CostBasisResetAt
	for _, e := range events {
		switch e.Kind {
		case domain.EventDisposal:
			hasDisposal = true
		case domain.EventTransferOut:
			hasOutbound = true
		}
		if e.IsQualifyingBuy() {
			at := time.UnixMilli(e.TimestampMs)
			if firstBuy.IsZero() || at.Before(firstBuy) {
				firstBuy = at
			}
		}
	}

	disqualified, err := r.stores.Disqualifications.ActiveForWallet(ctx, hb.Wallet, now)
	if err != nil {
		return domain.RankedHolder{}, err
	}

	verdict := eligibility.Evaluate(eligibility.Input{
		Wallet:                    hb.Wallet,
		Balance:                   hb.Balance,
		CostBasis:                 basis,
		TotalAcquired:             totals.Quantity,
		LastWinCycle:              holder.LastWinCycle,
		HasDisposal:               hasDisposal,
		HasOutboundTransfer:       hasOutbound,
		FirstAcquisitionAt:        firstBuy,
		HasActiveDisqualification: disqualified,
		CurrentPrice:              price,
		PoolBalance:               pool,
		CurrentCycle:              cycle,
		Now:                       now,
		Params:                    r.params,
	})

	holder.Balance = hb.Balance
	holder.CostBasis = basis
	holder.Eligible = verdict.Eligible
	holder.IneligibleReason = verdict.Reason
	holder.UpdatedAt = now
	if err := r.stores.Holders.Upsert(ctx, holder); err != nil {
		return domain.RankedHolder{}, err
	}

	return domain.RankedHolder{
		Wallet:           hb.Wallet,
		Balance:          hb.Balance,
		CostBasis:        basis,
		CurrentPrice:     price,
		DrawdownPct:      verdict.DrawdownPct,
		LossUsd:          verdict.LossUsd,
		Eligible:         verdict.Eligible,
		IneligibleReason: verdict.Reason,
	}, nil
}

// settle creates payout records and applies the winner state machine.
// Side effects per winner run in a fixed order: payout record, then
// disqualification window, then last-win marker, then cost-basis reset.
func (r *Runner) settle(ctx context.Context, snapshot *domain.Snapshot, now time.Time) ([]*domain.PayoutRecord, error) {
	existing, err := r.stores.Payouts.GetByCycle(ctx, snapshot.Cycle)
	if err != nil {
		return nil, fmt.Errorf("check existing payouts: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrAlreadyPaid
	}

	winnerCount := 0
	for i := range snapshot.TopHolders {
		if snapshot.TopHolders[i].Eligible {
			winnerCount++
		}
	}

	shares := payout.Allocate(snapshot.PoolBalance, r.params.Split, winnerCount)

	records := make([]*domain.PayoutRecord, 0, len(shares))
	for _, share := range shares {
		winner := snapshot.Winner(share.Rank)
		if winner == nil {
			continue
		}

		record := &domain.PayoutRecord{
			PayoutID:    idhash.ComputePayoutID(snapshot.Cycle, share.Rank, winner.Wallet),
			Cycle:       snapshot.Cycle,
			Rank:        share.Rank,
			Wallet:      winner.Wallet,
			Amount:      share.Amount,
			Status:      domain.PayoutStatusPending,
			CreatedAtMs: now.UnixMilli(),
		}
		if err := r.stores.Payouts.Insert(ctx, record); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return nil, ErrAlreadyPaid
			}
			return nil, fmt.Errorf("insert payout rank %d: %w", share.Rank, err)
		}
		records = append(records, record)

		if err := r.applyWin(ctx, snapshot, winner, now); err != nil {
			return nil, fmt.Errorf("apply win rank %d: %w", share.Rank, err)
		}
	}

	return records, nil
}

// applyWin opens the winner's disqualification window, stamps the win
// cycle and resets the cost basis to the snapshot price.
func (r *Runner) applyWin(ctx context.Context, snapshot *domain.Snapshot, winner *domain.RankedHolder, now time.Time) error {
	if r.params.WinnerCooldown > 0 {
		window := &domain.DisqualificationWindow{
			Wallet:    winner.Wallet,
			Reason:    domain.DisqualReasonWinner,
			ExpiresAt: now.Add(r.params.WinnerCooldown),
		}
		if err := r.stores.Disqualifications.Upsert(ctx, window); err != nil {
			return fmt.Errorf("open cooldown window: %w", err)
		}
	}

	holder, err := r.stores.Holders.Get(ctx, winner.Wallet)
	if err != nil {
		return fmt.Errorf("load winner: %w", err)
	}

	cycle := snapshot.Cycle
	holder.LastWinCycle = &cycle

	// Reset: the winner's basis becomes the settlement price, as if the
	// whole balance had been bought at this instant.
	holder.SetCostBasis(snapshot.TokenPrice)
	holder.TotalAcquired = holder.Balance
	holder.TotalCostAmount = holder.Balance.Mul(snapshot.TokenPrice)
	holder.CostBasisResetAt = now
	holder.UpdatedAt = now

	if err := r.stores.Holders.Upsert(ctx, holder); err != nil {
		return fmt.Errorf("persist winner: %w", err)
	}
	return nil
}
