// Copyright (c) 2025 BVK Chaitanya

package csfloat

import (
	"fmt"
	"net/url"
	"time"
)

type Options struct {
	// RestHostname is the marketplace REST endpoint. RestScheme exists for
	// tests that stand up a plain-http fake marketplace.
	RestHostname string
	RestScheme   string

	HttpClientTimeout time.Duration

	// TransportPerSecond caps the raw request rate of one client, below the
	// account budgets enforced by the rate governor. This smooths bursts the
	// governor would otherwise admit back to back.
	TransportPerSecond int

	// ListingSearchLimit is the number of candidate listings fetched for a
	// ranged order. Different wear sub-ranges attach to different listings,
	// so one listing is not enough.
	ListingSearchLimit int

	// BidFetchLimit and RangedBidFetchLimit are the number of competing bids
	// fetched per listing. Ranged lookups fetch more because many bids get
	// dropped by the wear-overlap filter.
	BidFetchLimit       int
	RangedBidFetchLimit int
}

func (v *Options) setDefaults() {
	if len(v.RestHostname) == 0 {
		v.RestHostname = "csfloat.com"
	}
	if len(v.RestScheme) == 0 {
		v.RestScheme = "https"
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 30 * time.Second
	}
	if v.TransportPerSecond == 0 {
		v.TransportPerSecond = 5
	}
	if v.ListingSearchLimit == 0 {
		v.ListingSearchLimit = 5
	}
	if v.BidFetchLimit == 0 {
		v.BidFetchLimit = 50
	}
	if v.RangedBidFetchLimit == 0 {
		v.RangedBidFetchLimit = 100
	}
}

func (v *Options) Check() error {
	if _, err := url.Parse("https://" + v.RestHostname); err != nil {
		return fmt.Errorf("invalid rest hostname %q: %w", v.RestHostname, err)
	}
	if v.ListingSearchLimit < 1 {
		return fmt.Errorf("listing search limit cannot be below one")
	}
	return nil
}
