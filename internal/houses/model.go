package houses

import (
	"encoding/json"
	"time"
)

// HouseType distinguishes the two residence listings tibia.com serves
// under the houses subtopic.
type HouseType string

const (
	TypeHouse     HouseType = "house"
	TypeGuildhall HouseType = "guildhall"
)

// QueryValue returns the value the upstream site expects in its "type"
// query parameter.
func (t HouseType) QueryValue() string {
	if t == TypeGuildhall {
		return "guildhalls"
	}
	return "houses"
}

func ParseHouseType(s string) (HouseType, bool) {
	switch s {
	case "house", "houses":
		return TypeHouse, true
	case "guildhall", "guildhalls":
		return TypeGuildhall, true
	}
	return "", false
}

type StatusKind string

const (
	StatusRented          StatusKind = "rented"
	StatusAuctionNoBid    StatusKind = "auctionNoBid"
	StatusAuctionWithBid  StatusKind = "auctionWithBid"
	StatusAuctionFinished StatusKind = "auctionFinished"
)

// Status is the normalized form of the upstream status column. Bid and
// ExpiryTime are only meaningful for the auction kinds.
type Status struct {
	Kind       StatusKind
	Bid        int
	ExpiryTime time.Time
}

// TimeLeft reports how much auction time remains at the given instant.
// Finished and non-auction statuses report zero.
func (s Status) TimeLeft(now time.Time) time.Duration {
	if s.Kind != StatusAuctionWithBid || s.ExpiryTime.IsZero() {
		return 0
	}
	left := s.ExpiryTime.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func (s Status) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case StatusAuctionWithBid:
		return json.Marshal(struct {
			Type       StatusKind `json:"type"`
			Bid        int        `json:"bid"`
			ExpiryTime time.Time  `json:"expiryTime"`
		}{s.Kind, s.Bid, s.ExpiryTime})
	case StatusAuctionFinished:
		return json.Marshal(struct {
			Type StatusKind `json:"type"`
			Bid  int        `json:"bid"`
		}{s.Kind, s.Bid})
	default:
		return json.Marshal(struct {
			Type StatusKind `json:"type"`
		}{s.Kind})
	}
}

// House is one validated property listing. Either every field parsed, or
// the row is reported as a failure and no House is emitted.
type House struct {
	ID     int       `json:"id"`
	World  string    `json:"world"`
	Town   string    `json:"town"`
	Type   HouseType `json:"type"`
	Name   string    `json:"name"`
	Size   int       `json:"size"` // sqm
	Rent   int       `json:"rent"` // gold per month
	Status Status    `json:"status"`
}

// RowFailure describes one listing row that could not be turned into a
// House. Row is the 1-based data row index on the page.
type RowFailure struct {
	Row    int    `json:"row"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

// ExtractionResult is the outcome of processing one listings page: the
// rows that assembled cleanly plus the ones that did not. A result with
// zero residences and zero failures means the page was well-formed but
// had nothing listed.
type ExtractionResult struct {
	Residences []House      `json:"residences"`
	Failures   []RowFailure `json:"failures"`
}
