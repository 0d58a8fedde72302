// Package display renders auction state for the terminal.
package display

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rickgao/auction-live/internal/model"
)

// Formatter renders values with locale-aware digit grouping.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// New creates a formatter for a BCP 47 locale such as "ko-KR".
func New(locale string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	return &Formatter{tag: tag, printer: message.NewPrinter(tag)}, nil
}

// Must is New for locales known to be valid.
func Must(locale string) *Formatter {
	f, err := New(locale)
	if err != nil {
		panic(err)
	}
	return f
}

// Locale returns the formatter's language tag.
func (f *Formatter) Locale() language.Tag {
	return f.tag
}

// Amount renders an integer amount with digit grouping.
func (f *Formatter) Amount(n int64) string {
	return f.printer.Sprintf("%d", n)
}

// Remaining renders a countdown. Zero or less renders as "ended".
func Remaining(seconds int64) string {
	if seconds <= 0 {
		return "ended"
	}
	d := seconds / 86400
	h := (seconds % 86400) / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if d > 0 {
		return fmt.Sprintf("%dd %02dh %02dm", d, h, m)
	}
	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	return fmt.Sprintf("%02dm %02ds", m, s)
}

// View renders one status line for an auction view.
func (f *Formatter) View(v model.AuctionView) string {
	if !v.Seeded {
		return v.AuctionID + " loading"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", v.AuctionID, f.Amount(v.CurrentHighestBid))
	if v.HighestBidderLabel != "" {
		fmt.Fprintf(&b, " by %s", v.HighestBidderLabel)
	}
	fmt.Fprintf(&b, " | %s bids | next %s | %s",
		f.Amount(v.BidCount), f.Amount(v.MinimumNextBid()), Remaining(v.RemainingSeconds))
	if v.Status != "" && v.Status != model.StatusLive {
		fmt.Fprintf(&b, " [%s]", v.Status)
	}
	if v.Disconnected {
		b.WriteString(" (reconnecting)")
	}
	return b.String()
}

// ListItem renders one feed row.
func (f *Formatter) ListItem(it model.ListItem, now time.Time) string {
	remaining := int64(0)
	if !it.EndAt.IsZero() {
		remaining = int64(it.EndAt.Sub(now).Seconds())
	}
	return fmt.Sprintf("%-12s %-32s %12s %6s bids  %s",
		it.ID, truncate(it.Title, 32), f.Amount(it.CurrentHighestBid), f.Amount(it.BidCount), Remaining(remaining))
}

// BidEntry renders one history row in local time.
func (f *Formatter) BidEntry(e model.BidEntry) string {
	return fmt.Sprintf("%s  %12s  %s", e.BidTime.Local().Format("2006-01-02 15:04:05"), f.Amount(e.BidAmount), e.Bidder)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
