package houses

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tibialabs/tibia-houses/internal/tibia"
)

// The upstream status column is a closed vocabulary. Anything outside it
// is treated as markup drift and rejected, never defaulted.
//
// Observed phrases:
//
//	rented
//	auctioned (no bid yet)
//	auctioned (5000 gold; 2 days left)
//	auctioned (5000 gold; 1 hour left)
//	auctioned (5000 gold; finished)

var (
	digitRun = regexp.MustCompile(`\d+`)
	bidRe    = regexp.MustCompile(`([0-9][0-9,.]*) gold`)
	timeRe   = regexp.MustCompile(`(\d+) (days?|hours?) left`)
)

// ParseAmount parses a displayed integer, tolerating thousands
// separators and surrounding decoration. The cleaned text must be a
// plain non-negative integer.
func ParseAmount(s string) (int, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, " ", ""))
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount %q", s)
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

// FormatAmount renders n with comma thousands separators, the inverse
// of ParseAmount for separator-formatted input.
func FormatAmount(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// ParseSize parses the size column ("16 sqm") into square meters.
func ParseSize(s string) (int, error) {
	m := digitRun.FindString(s)
	if m == "" {
		return 0, fmt.Errorf("no size in %q", s)
	}
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n, nil
}

// ParseRent parses the rent column. Tibia displays rent in thousands
// ("50k gold" meaning 50000 gold per month).
func ParseRent(s string) (int, error) {
	m := digitRun.FindString(s)
	if m == "" {
		return 0, fmt.Errorf("no rent in %q", s)
	}
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid rent %q", s)
	}
	return n * 1000, nil
}

// FormatRent renders a rent value back in the upstream's k-gold
// convention, the inverse of ParseRent.
func FormatRent(n int) string {
	return fmt.Sprintf("%dk gold", n/1000)
}

// ParseStatus maps the raw status cell onto the Status enumeration.
// Auction countdowns are resolved against now: tibia only shows a day
// or hour granularity, anchored to the 08:00 UTC server save for day
// countdowns and rounded up to the next full hour otherwise.
func ParseStatus(raw string, now time.Time) (Status, error) {
	value := strings.ToLower(tibia.CleanText(raw))

	switch {
	case value == "rented":
		return Status{Kind: StatusRented}, nil
	case value == "auctioned (no bid yet)":
		return Status{Kind: StatusAuctionNoBid}, nil
	case strings.HasPrefix(value, "auctioned"):
		bidMatch := bidRe.FindStringSubmatch(value)
		if bidMatch == nil {
			return Status{}, fmt.Errorf("unknown status %q", raw)
		}
		bid, err := ParseAmount(bidMatch[1])
		if err != nil {
			return Status{}, fmt.Errorf("invalid bid in status %q: %v", raw, err)
		}
		if strings.Contains(value, "finished") {
			return Status{Kind: StatusAuctionFinished, Bid: bid}, nil
		}
		timeMatch := timeRe.FindStringSubmatch(value)
		if timeMatch == nil {
			return Status{}, fmt.Errorf("no time left in status %q", raw)
		}
		n, err := strconv.Atoi(timeMatch[1])
		if err != nil {
			return Status{}, fmt.Errorf("invalid time in status %q", raw)
		}
		return Status{
			Kind:       StatusAuctionWithBid,
			Bid:        bid,
			ExpiryTime: auctionExpiry(now, n, timeMatch[2]),
		}, nil
	}
	return Status{}, fmt.Errorf("unknown status %q", raw)
}

func auctionExpiry(now time.Time, n int, unit string) time.Time {
	t := now.UTC().Truncate(time.Hour)
	if strings.HasPrefix(unit, "day") {
		// Day countdowns end at the server save.
		t = time.Date(t.Year(), t.Month(), t.Day(), 8, 0, 0, 0, time.UTC)
		return t.AddDate(0, 0, n)
	}
	// "1 hour left" means less than a full hour from the next tick.
	return t.Add(time.Duration(n+1) * time.Hour)
}
