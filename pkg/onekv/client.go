// Package onekv fetches per-validator enrollment metadata (rank,
// location, validity, node binary version) from a thousand-validators
// programme HTTP endpoint, keyed back to on-chain account ids for the
// materializer to merge into validator snapshots.
package onekv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// candidate is the wire shape of one /candidates entry, reduced to the
// fields merged into snapshots.
type candidate struct {
	Stash    string `json:"stash"`
	Rank     int    `json:"rank"`
	Location string `json:"location"`
	Version  string `json:"version"`
	Valid    bool   `json:"valid"`
	Validity []struct {
		Valid   bool   `json:"valid"`
		Type    string `json:"type"`
		Details string `json:"details"`
	} `json:"validity"`
}

// Client polls the programme endpoint, caching the candidate set
// between refreshes so one materializer run per finalized block does
// not turn into one HTTP request per block.
type Client struct {
	httpClient *http.Client
	baseURL    string
	refresh    time.Duration
	logger     *log.Logger

	mu        sync.Mutex
	fetchedAt time.Time
	byAccount map[substrate.AccountID]*substrate.OneKVInfo
}

// NewClient builds a Client for the given candidates endpoint.
func NewClient(baseURL string, requestTimeout, refresh time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.Writer(), "[OneKV] ", log.LstdFlags)
	}
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    baseURL,
		refresh:    refresh,
		logger:     logger,
	}
}

// Candidates returns the enrollment info keyed by account id, fetching
// from the endpoint when the cache is older than the refresh interval.
// A fetch failure with a warm cache serves the stale set; the fields
// change on the order of hours, so staleness beats an aborted
// materializer run.
func (c *Client) Candidates(ctx context.Context) (map[substrate.AccountID]*substrate.OneKVInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byAccount != nil && time.Since(c.fetchedAt) < c.refresh {
		return c.byAccount, nil
	}
	fresh, err := c.fetch(ctx)
	if err != nil {
		if c.byAccount != nil {
			c.logger.Printf("refresh failed, serving stale candidates: %v", err)
			return c.byAccount, nil
		}
		return nil, err
	}
	c.byAccount = fresh
	c.fetchedAt = time.Now()
	return c.byAccount, nil
}

func (c *Client) fetch(ctx context.Context) (map[substrate.AccountID]*substrate.OneKVInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/candidates", nil)
	if err != nil {
		return nil, fmt.Errorf("onekv: building candidates request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("onekv: fetching candidates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("onekv: candidates endpoint returned %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("onekv: reading candidates response: %w", err)
	}
	var candidates []candidate
	if err := json.Unmarshal(body, &candidates); err != nil {
		return nil, fmt.Errorf("onekv: decoding candidates response: %w", err)
	}

	byAccount := make(map[substrate.AccountID]*substrate.OneKVInfo, len(candidates))
	for _, cand := range candidates {
		id, err := decodeSS58AccountID(cand.Stash)
		if err != nil {
			c.logger.Printf("skipping candidate with bad stash %q: %v", cand.Stash, err)
			continue
		}
		info := &substrate.OneKVInfo{
			BinaryVersion: cand.Version,
			Rank:          cand.Rank,
			Location:      cand.Location,
			IsEnrolled:    true,
		}
		for _, v := range cand.Validity {
			if v.Valid {
				info.Validity = append(info.Validity, v.Type)
			}
		}
		byAccount[id] = info
	}
	c.logger.Printf("fetched %d candidate(s)", len(byAccount))
	return byAccount, nil
}
