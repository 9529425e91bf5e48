// Package runner sequences one payout run: extend the cache, rebuild
// the lease ledger, distribute per forged block, and emit the payment
// instruction file.
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"github.com/tn-tools/leasepay/internal/cache"
	"github.com/tn-tools/leasepay/internal/client"
	"github.com/tn-tools/leasepay/internal/config"
	"github.com/tn-tools/leasepay/internal/distribution"
	"github.com/tn-tools/leasepay/internal/ledger"
	"github.com/tn-tools/leasepay/internal/metrics"
	"github.com/tn-tools/leasepay/internal/models"
	"github.com/tn-tools/leasepay/internal/payout"
)

// Runner owns the collaborators of a single run.
type Runner struct {
	cfg    config.Config
	client *client.Client
	store  cache.Store
	// ShowProgress draws a fetch progress bar on the terminal.
	ShowProgress bool
}

// New wires a runner from its collaborators.
func New(cfg config.Config, c *client.Client, store cache.Store) *Runner {
	return &Runner{cfg: cfg, client: c, store: store}
}

// Run executes the pipeline. A transport failure aborts before any
// output is written; summaries already appended to the cache survive
// and shorten the next run's fetch range.
func (r *Runner) Run(ctx context.Context) error {
	summaries, err := r.extendCache(ctx)
	if err != nil {
		return err
	}

	slog.Info("Rebuilding lease ledger", "blocks", len(summaries))
	led := ledger.New(ledger.Beneficiary{
		Address: r.cfg.Address,
		Alias:   r.cfg.Alias,
		ChainID: r.cfg.ChainID,
	})
	led.Rebuild(summaries)
	slog.Info("Lease ledger ready",
		"leases", len(led.Leases),
		"cancellations", len(led.Cancellations),
		"forgedBlocks", len(led.ForgedBlocks))

	engine := distribution.NewEngine(led, r.cfg.TokenPerBlock, r.cfg.FeePercentage)
	for _, block := range led.ForgedBlocks {
		if block.Height < r.cfg.StartHeight || block.Height > r.cfg.EndHeight {
			continue
		}
		active, total := engine.ActiveLeasesAt(block)
		engine.Distribute(active, total, block)
		metrics.BlocksDistributed.Inc()
	}

	aggregator := payout.Aggregator{
		Sender:     r.cfg.Address,
		Fee:        r.cfg.PaymentFee,
		Attachment: r.cfg.Attachment,
	}
	instructions := aggregator.Finalize(engine.FeeShares(), engine.TokenShares())
	metrics.InstructionsEmitted.Add(float64(len(instructions)))

	if err := payout.WriteFile(r.cfg.Output, instructions); err != nil {
		return err
	}
	slog.Info("Payments written", "count", len(instructions), "file", r.cfg.Output)
	return nil
}

// extendCache loads the cached prefix, fetches the missing suffix from
// the node, and returns the full summary sequence with every record
// durably appended to the (fresh) cache.
func (r *Runner) extendCache(ctx context.Context) ([]models.BlockSummary, error) {
	cached, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	resume := cache.ResumeHeight(cached)
	metrics.ResumeHeight.Set(float64(resume))
	if len(cached) > 0 {
		slog.Info("Resuming from cache",
			"cachedRange", fmt.Sprintf("[%d, %d]", cached[0].Height, resume-1))
	}

	// Replay the cached prefix into the rotated-fresh cache.
	for _, summary := range cached {
		if err := r.store.Append(summary); err != nil {
			return nil, err
		}
	}

	summaries := cached
	if resume <= r.cfg.EndHeight {
		slog.Info("Fetching blocks", "range", fmt.Sprintf("[%d, %d]", resume, r.cfg.EndHeight))
		bar := r.progressBar(int64(r.cfg.EndHeight - resume + 1))
		report := func(n int) {
			metrics.BlocksFetched.Add(float64(n))
			if bar != nil {
				_ = bar.Add(n)
			}
		}
		blocks, err := r.client.FetchBlocks(ctx, resume, r.cfg.EndHeight, report)
		if err != nil {
			return nil, err
		}
		if bar != nil {
			_ = bar.Finish()
		}

		var previousFeePool int64
		if len(cached) > 0 {
			previousFeePool = cached[len(cached)-1].FeePool
		}
		for _, block := range blocks {
			summary := ledger.Summarize(block, previousFeePool, r.cfg.StartHeight)
			previousFeePool = summary.FeePool
			if err := r.store.Append(summary); err != nil {
				return nil, err
			}
			metrics.BlocksCached.Inc()
			summaries = append(summaries, summary)
		}
	}

	if err := r.store.Commit(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *Runner) progressBar(total int64) *progressbar.ProgressBar {
	if !r.ShowProgress {
		return nil
	}
	return progressbar.NewOptions64(
		total,
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription("Fetching blocks..."),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
