// Package client fetches block ranges from the ledger node's REST API.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/tn-tools/leasepay/internal/models"
)

// FetchWindow is the number of heights requested per call; the node
// caps ranged queries, so larger ranges are split into windows.
const FetchWindow = 100

// Client wraps the node's /blocks/seq endpoint. Connections are reused
// across windows via keep-alive. There are no retries: a transport
// failure aborts the run.
type Client struct {
	http *resty.Client
}

// New returns a client for the node at baseURL. A zero timeout disables
// the per-request deadline.
func New(baseURL string, timeout time.Duration) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Connection", "keep-alive")
	return &Client{http: rc}
}

// FetchBlocks retrieves the full inclusive range [from, to] in ascending
// height order, paginating in FetchWindow-sized windows. Blocks the node
// returns above the upper bound are discarded. report, when non-nil, is
// called with the number of heights covered by each completed window.
func (c *Client) FetchBlocks(ctx context.Context, from, to uint64, report func(int)) ([]models.Block, error) {
	if from > to {
		return nil, nil
	}
	var blocks []models.Block
	for start := from; start <= to; {
		stop := start + FetchWindow - 1
		if stop > to {
			stop = to
		}
		page, err := c.fetchRange(ctx, start, stop)
		if err != nil {
			return nil, err
		}
		for _, block := range page {
			if block.Height <= to {
				blocks = append(blocks, block)
			}
		}
		if report != nil {
			report(int(stop - start + 1))
		}
		if stop == to {
			break
		}
		start = stop + 1
	}
	return blocks, nil
}

func (c *Client) fetchRange(ctx context.Context, from, to uint64) ([]models.Block, error) {
	var page []models.Block
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&page).
		Get(fmt.Sprintf("/blocks/seq/%d/%d", from, to))
	if err != nil {
		return nil, errors.WithMessagef(err, "fetching blocks [%d, %d]", from, to)
	}
	if resp.IsError() {
		return nil, errors.Errorf("node returned %s for blocks [%d, %d]", resp.Status(), from, to)
	}
	return page, nil
}
