// Copyright (c) 2025 BVK Chaitanya

package csfloat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/bvk/floatbid/gobs"
	"github.com/bvk/floatbid/item"
)

// fakeMarketplace serves canned listings and bids the way the marketplace
// REST endpoints do.
type fakeMarketplace struct {
	listings map[string][]*Listing // keyed by def_index query value
	bids     map[string][]*Bid     // keyed by listing id
}

func (f *fakeMarketplace) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/listings", func(w http.ResponseWriter, r *http.Request) {
		listings := f.listings[r.URL.Query().Get("def_index")]
		json.NewEncoder(w).Encode(&ListListingsResponse{Listings: listings})
	})
	mux.HandleFunc("/api/v1/listings/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		// .../listings/<id>/buy-orders
		id := parts[len(parts)-2]
		bids, ok := f.bids[id]
		if !ok {
			http.Error(w, "no such listing", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(bids)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeMarketplace) *Client {
	t.Helper()

	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	c, err := New(1, "test-key", "", nil, &Options{
		RestHostname: strings.TrimPrefix(srv.URL, "http://"),
		RestScheme:   "http",
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestTopCompetingBid(t *testing.T) {
	ctx := context.Background()

	f := &fakeMarketplace{
		listings: map[string][]*Listing{
			"7": {{ID: "a", Price: 1000}, {ID: "b", Price: 1100}},
		},
		bids: map[string][]*Bid{
			"a": {
				{ID: "own", Price: 999, Expression: "DefIndex == 7 and FloatValue >= 0.15 and FloatValue < 0.38"},
				{ID: "x", Price: 520, Expression: "DefIndex == 7 and FloatValue >= 0.15 and FloatValue < 0.38"},
				{ID: "y", Price: 800, Expression: "DefIndex == 7 and FloatValue >= 0.45"},
			},
			"b": {
				// Same standing order as "x" surfacing under another listing.
				{ID: "x2", Price: 520, Expression: "DefIndex == 7 and FloatValue >= 0.15 and FloatValue < 0.38"},
				{ID: "z", Price: 510},
			},
		},
	}
	c := newTestClient(t, f)

	d := &item.Descriptor{
		Kind:       gobs.OrderKindRanged,
		DefIndex:   7,
		PaintIndex: 282,
		Wear:       item.NewRange(0.15, 0.38),
	}
	listings, err := c.FindCompetingListings(ctx, d)
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 2 {
		t.Fatalf("listings: got %d, want 2", len(listings))
	}

	top, err := c.TopCompetingBid(ctx, d, "own", listings)
	if err != nil {
		t.Fatal(err)
	}
	// "y" is outside the wear range, "own" is ours and "z" has no expression
	// so it stays in the running; "x" beats it.
	if top.ID != "x" || top.Price != 520 {
		t.Errorf("top bid: got %s at %d, want x at 520", top.ID, top.Price)
	}
}

func TestTopCompetingBidNoCompetitors(t *testing.T) {
	ctx := context.Background()

	f := &fakeMarketplace{
		listings: map[string][]*Listing{
			"7": {{ID: "a", Price: 1000}},
		},
		bids: map[string][]*Bid{
			"a": {{ID: "own", Price: 500}},
		},
	}
	c := newTestClient(t, f)

	d := &item.Descriptor{Kind: gobs.OrderKindRanged, DefIndex: 7, PaintIndex: 282}
	listings, err := c.FindCompetingListings(ctx, d)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.TopCompetingBid(ctx, d, "own", listings); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("top bid without competitors: got %v, want %v", err, os.ErrNotExist)
	}
}

func TestFindCompetingListingsRelaxesSearch(t *testing.T) {
	ctx := context.Background()

	// The precise wear-filtered query finds nothing; the wear-relaxed query
	// finds nothing either; only the name search succeeds.
	var queries []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/listings", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var listings []*Listing
		switch {
		case q.Has("min_float") || q.Has("max_float"):
			queries = append(queries, "wear")
		case q.Has("def_index"):
			queries = append(queries, "relaxed")
		default:
			queries = append(queries, "name")
			if q.Get("market_hash_name") == "AK-47 | Redline (Field-Tested)" {
				listings = []*Listing{{ID: "n", Price: 900}}
			}
		}
		json.NewEncoder(w).Encode(&ListListingsResponse{Listings: listings})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c, err := New(1, "test-key", "", nil, &Options{
		RestHostname: strings.TrimPrefix(srv.URL, "http://"),
		RestScheme:   "http",
	})
	if err != nil {
		t.Fatal(err)
	}

	d := &item.Descriptor{
		Kind:       gobs.OrderKindRanged,
		Name:       "AK-47 | Redline (Field-Tested)",
		DefIndex:   7,
		PaintIndex: 282,
		Wear:       item.NewRange(0.15, 0.38),
	}
	listings, err := c.FindCompetingListings(ctx, d)
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 1 || listings[0].ID != "n" {
		t.Errorf("listings: got %v, want the name-search result", listings)
	}

	want := []string{"wear", "relaxed", "name"}
	if len(queries) != len(want) {
		t.Fatalf("queries: got %v, want %v", queries, want)
	}
	for i := range want {
		if queries[i] != want[i] {
			t.Errorf("query %d: got %q, want %q", i, queries[i], want[i])
		}
	}
}

func TestFindCompetingListingsNotFound(t *testing.T) {
	ctx := context.Background()

	c := newTestClient(t, &fakeMarketplace{})
	d := &item.Descriptor{Kind: gobs.OrderKindRanged, DefIndex: 7, PaintIndex: 282}
	if _, err := c.FindCompetingListings(ctx, d); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("find listings with empty market: got %v, want %v", err, os.ErrNotExist)
	}
}
