// Copyright (c) 2025 BVK Chaitanya

package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/visvasity/topic"

	"github.com/bvk/floatbid/csfloat"
	"github.com/bvk/floatbid/datastore"
	"github.com/bvk/floatbid/gobs"
	"github.com/bvk/floatbid/outbid"
)

// fakeMarket serves the marketplace endpoints the checker touches and
// records the mutating calls.
type fakeMarket struct {
	mu sync.Mutex

	listings []*csfloat.Listing
	bids     map[string][]*csfloat.Bid

	created    []*csfloat.CreateBuyOrderRequest
	deleted    []string
	failCreate bool
	nextID     int
}

func (f *fakeMarket) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/listings", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(&csfloat.ListListingsResponse{Listings: f.listings})
	})
	mux.HandleFunc("GET /api/v1/listings/{id}/buy-orders", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(f.bids[r.PathValue("id")])
	})
	mux.HandleFunc("POST /api/v1/buy-orders", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failCreate {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		request := new(csfloat.CreateBuyOrderRequest)
		if err := json.NewDecoder(r.Body).Decode(request); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.created = append(f.created, request)
		f.nextID++
		json.NewEncoder(w).Encode(&csfloat.CreateBuyOrderResponse{ID: fmt.Sprintf("new-%d", f.nextID)})
	})
	mux.HandleFunc("DELETE /api/v1/buy-orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.deleted = append(f.deleted, r.PathValue("id"))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeMarket) *csfloat.Client {
	t.Helper()

	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	c, err := csfloat.New(1, "test-key", "", nil, &csfloat.Options{
		RestHostname: strings.TrimPrefix(srv.URL, "http://"),
		RestScheme:   "http",
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func newTestChecker(t *testing.T, db kv.Database, events *topic.Topic[*gobs.OutbidEvent]) *Checker {
	t.Helper()

	engine, err := outbid.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return New(db, engine, events, &Options{
		MinOrderDelay: time.Millisecond,
		MaxOrderDelay: 2 * time.Millisecond,
	})
}

func addTestOrder(t *testing.T, db kv.Database, order *gobs.BuyOrder) *gobs.BuyOrder {
	t.Helper()

	ctx := context.Background()
	err := kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		_, err := datastore.AddOrder(ctx, rw, order)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return order
}

func loadTestOrder(t *testing.T, db kv.Database, accountID int64, uid string) *gobs.BuyOrder {
	t.Helper()

	ctx := context.Background()
	var order *gobs.BuyOrder
	err := kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) (err error) {
		order, err = datastore.LoadOrder(ctx, r, accountID, uid)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return order
}

func TestCheckOrderOutbids(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	f := &fakeMarket{
		listings: []*csfloat.Listing{{ID: "a", Price: 1000}},
		bids: map[string][]*csfloat.Bid{
			"a": {
				{ID: "ext-1", Price: 500, MarketHashName: "AK-47 | Redline (Field-Tested)"},
				{ID: "rival", Price: 520, MarketHashName: "AK-47 | Redline (Field-Tested)"},
			},
		},
	}
	client := newTestClient(t, f)

	events := topic.New[*gobs.OutbidEvent]()
	receiver, err := topic.Subscribe(events, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	defer receiver.Close()
	eventCh, err := topic.ReceiveCh(receiver)
	if err != nil {
		t.Fatal(err)
	}

	c := newTestChecker(t, db, events)
	order := addTestOrder(t, db, &gobs.BuyOrder{
		AccountID: 1,
		OrderID:   "ext-1",
		Kind:      gobs.OrderKindPlain,
		Name:      "AK-47 | Redline (Field-Tested)",
		Price:     500,
		Quantity:  1,
		Active:    true,
	})

	if err := c.CheckOrder(ctx, client, order); err != nil {
		t.Fatal(err)
	}

	saved := loadTestOrder(t, db, 1, order.UID)
	if saved.Price != 521 || saved.OutbidCount != 1 {
		t.Errorf("saved order: got price %d count %d, want 521 and 1", saved.Price, saved.OutbidCount)
	}
	if saved.OrderID != "new-1" {
		t.Errorf("saved order id: got %s, want new-1", saved.OrderID)
	}
	if saved.PendingReplacement {
		t.Errorf("pending replacement flag must be cleared")
	}

	if len(f.deleted) != 1 || f.deleted[0] != "ext-1" {
		t.Errorf("deleted orders: got %v, want [ext-1]", f.deleted)
	}
	if len(f.created) != 1 || f.created[0].MaxPrice != 521 {
		t.Errorf("created orders: got %v", f.created)
	}

	select {
	case event := <-eventCh:
		if event.OldPrice != 500 || event.NewPrice != 521 || event.CompetitorPrice != 520 {
			t.Errorf("unexpected event: %+v", event)
		}
	case <-time.After(5 * time.Second):
		t.Errorf("no outbid event was published")
	}
}

func TestCheckOrderAlreadyTop(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	f := &fakeMarket{
		listings: []*csfloat.Listing{{ID: "a", Price: 1000}},
		bids: map[string][]*csfloat.Bid{
			"a": {
				{ID: "ext-1", Price: 500, MarketHashName: "x"},
				{ID: "rival", Price: 480, MarketHashName: "x"},
			},
		},
	}
	client := newTestClient(t, f)

	c := newTestChecker(t, db, nil)
	order := addTestOrder(t, db, &gobs.BuyOrder{
		AccountID: 1,
		OrderID:   "ext-1",
		Kind:      gobs.OrderKindPlain,
		Name:      "x",
		Price:     500,
		Quantity:  1,
		Active:    true,
	})

	if err := c.CheckOrder(ctx, client, order); err != nil {
		t.Fatal(err)
	}

	saved := loadTestOrder(t, db, 1, order.UID)
	if saved.Price != 500 || saved.OutbidCount != 0 || saved.OrderID != "ext-1" {
		t.Errorf("order must stay unchanged: %+v", saved)
	}
	if len(f.deleted) != 0 || len(f.created) != 0 {
		t.Errorf("no marketplace mutation expected: deleted=%v created=%v", f.deleted, f.created)
	}
}

func TestCheckOrderRecoversFromFailedCreate(t *testing.T) {
	ctx := context.Background()
	db := kvmemdb.New()

	f := &fakeMarket{
		listings: []*csfloat.Listing{{ID: "a", Price: 1000}},
		bids: map[string][]*csfloat.Bid{
			"a": {
				{ID: "ext-1", Price: 500, MarketHashName: "x"},
				{ID: "rival", Price: 520, MarketHashName: "x"},
			},
		},
		failCreate: true,
	}
	client := newTestClient(t, f)

	c := newTestChecker(t, db, nil)
	order := addTestOrder(t, db, &gobs.BuyOrder{
		AccountID: 1,
		OrderID:   "ext-1",
		Kind:      gobs.OrderKindPlain,
		Name:      "x",
		Price:     500,
		Quantity:  1,
		Active:    true,
	})

	if err := c.CheckOrder(ctx, client, order); err == nil {
		t.Fatal("check must fail when the replacement cannot be created")
	}

	// The delete went through but the create did not: the order must be
	// flagged for recovery, with its price untouched.
	saved := loadTestOrder(t, db, 1, order.UID)
	if !saved.PendingReplacement {
		t.Fatalf("pending replacement flag must be set")
	}
	if saved.Price != 500 || saved.OutbidCount != 0 {
		t.Errorf("order must keep its last known price: %+v", saved)
	}

	// Next cycle the marketplace works again: the order is recreated at the
	// stored price without counting as an outbid.
	f.mu.Lock()
	f.failCreate = false
	f.mu.Unlock()

	if err := c.CheckOrder(ctx, client, saved); err != nil {
		t.Fatal(err)
	}
	recovered := loadTestOrder(t, db, 1, order.UID)
	if recovered.PendingReplacement {
		t.Errorf("pending replacement flag must be cleared after recovery")
	}
	if recovered.OrderID != "new-1" {
		t.Errorf("recovered order id: got %s, want new-1", recovered.OrderID)
	}
	if recovered.Price != 500 || recovered.OutbidCount != 0 {
		t.Errorf("recovery must not count as an outbid: %+v", recovered)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) != 1 || f.created[0].MaxPrice != 500 {
		t.Errorf("created orders: got %v", f.created)
	}
}
