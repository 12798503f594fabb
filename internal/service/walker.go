package service

import (
	"context"
	"fmt"

	"github.com/noah-isme/slack-archv/pkg/slack"
)

// HistoryWalker pages backwards through a conversation. Each page narrows
// Latest to the oldest record already seen.
//
//	w := NewHistoryWalker(client, req, 0)
//	for w.Next(ctx) {
//		use(w.Page())
//	}
//	if err := w.Err(); err != nil { ... }
type HistoryWalker struct {
	fetcher   historyFetcher
	req       slack.HistoryRequest
	maxPages  int
	page      []slack.Record
	pages     int
	more      bool
	done      bool
	truncated bool
	err       error
}

// NewHistoryWalker starts a walk from req. maxPages <= 0 walks until the
// remote reports no more history.
func NewHistoryWalker(fetcher historyFetcher, req slack.HistoryRequest, maxPages int) *HistoryWalker {
	return &HistoryWalker{fetcher: fetcher, req: req, maxPages: maxPages}
}

// Next fetches the following page. It returns false when the walk is over or
// failed.
func (w *HistoryWalker) Next(ctx context.Context) bool {
	if w.done || w.err != nil {
		return false
	}
	if w.maxPages > 0 && w.pages >= w.maxPages {
		w.done = true
		w.truncated = w.more
		return false
	}

	page, err := w.fetcher.ChannelHistory(ctx, w.req)
	if err != nil {
		w.err = fmt.Errorf("fetch history of %s (page %d): %w", w.req.Channel, w.pages+1, err)
		return false
	}
	w.pages++

	if len(page.Records) == 0 {
		w.done = true
		return false
	}

	w.page = page.Records
	w.more = page.HasMore
	if !page.HasMore {
		w.done = true
		return true
	}

	latest := page.Records[len(page.Records)-1].String("ts")
	if latest == "" || latest == w.req.Latest {
		w.done = true
		return true
	}
	w.req.Latest = latest
	return true
}

// Page returns the records of the current page, newest first.
func (w *HistoryWalker) Page() []slack.Record { return w.page }

// Err returns the error that stopped the walk.
func (w *HistoryWalker) Err() error { return w.err }

// Pages returns the number of pages fetched so far.
func (w *HistoryWalker) Pages() int { return w.pages }

// Truncated reports whether the page bound stopped the walk before the
// remote ran out of history.
func (w *HistoryWalker) Truncated() bool { return w.truncated }

// StarWalker pages through a user's stars from page 1 to the last page the
// remote reports.
type StarWalker struct {
	fetcher starFetcher
	userID  string
	count   int
	page    int
	pages   int
	items   []slack.Record
	err     error
}

// NewStarWalker starts a walk over userID's stars.
func NewStarWalker(fetcher starFetcher, userID string, count int) *StarWalker {
	return &StarWalker{fetcher: fetcher, userID: userID, count: count}
}

func (w *StarWalker) Next(ctx context.Context) bool {
	if w.err != nil || (w.page > 0 && w.page >= w.pages) {
		return false
	}
	w.page++

	page, err := w.fetcher.ListStars(ctx, w.userID, w.page, w.count)
	if err != nil {
		w.err = fmt.Errorf("fetch stars of %s (page %d): %w", w.userID, w.page, err)
		return false
	}
	w.pages = page.Pages
	if w.pages < 1 {
		w.pages = 1
	}
	w.items = page.Items
	return true
}

func (w *StarWalker) Items() []slack.Record { return w.items }

func (w *StarWalker) Err() error { return w.err }
