package houses

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStatusMarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		expected string
	}{
		{
			name:     "rented",
			status:   Status{Kind: StatusRented},
			expected: `{"type":"rented"}`,
		},
		{
			name:     "no bid",
			status:   Status{Kind: StatusAuctionNoBid},
			expected: `{"type":"auctionNoBid"}`,
		},
		{
			name: "with bid",
			status: Status{
				Kind:       StatusAuctionWithBid,
				Bid:        5000,
				ExpiryTime: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
			},
			expected: `{"type":"auctionWithBid","bid":5000,"expiryTime":"2026-09-01T08:00:00Z"}`,
		},
		{
			name:     "finished",
			status:   Status{Kind: StatusAuctionFinished, Bid: 12000},
			expected: `{"type":"auctionFinished","bid":12000}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.status)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			if string(got) != tt.expected {
				t.Fatalf("json = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestParseHouseType(t *testing.T) {
	tests := []struct {
		input    string
		expected HouseType
		ok       bool
	}{
		{input: "house", expected: TypeHouse, ok: true},
		{input: "houses", expected: TypeHouse, ok: true},
		{input: "guildhall", expected: TypeGuildhall, ok: true},
		{input: "guildhalls", expected: TypeGuildhall, ok: true},
		{input: "castle", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		got, ok := ParseHouseType(tt.input)
		if ok != tt.ok || (ok && got != tt.expected) {
			t.Fatalf("ParseHouseType(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.expected, tt.ok)
		}
	}
}

func TestHouseTypeQueryValue(t *testing.T) {
	if TypeHouse.QueryValue() != "houses" || TypeGuildhall.QueryValue() != "guildhalls" {
		t.Fatalf("unexpected query values: %q, %q", TypeHouse.QueryValue(), TypeGuildhall.QueryValue())
	}
}
