// Copyright (c) 2025 BVK Chaitanya

// Package csfloat implements a REST client and competitor-lookup helpers for
// a CSFloat-style skin marketplace. Each client is bound to one account's API
// key and optional outbound proxy; admission control is shared through the
// rate governor.
package csfloat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/bvk/floatbid/ctxutil"
	"github.com/bvk/floatbid/governor"
)

// ErrThrottled indicates the marketplace rejected a request with 429 even
// after the punitive cooldown and one retry.
var ErrThrottled = errors.New("marketplace throttled the request")

type Client struct {
	opts Options

	accountID int64

	key   string
	proxy string

	client *http.Client

	limiter *rate.Limiter

	governor *governor.Governor
}

// New returns a client for one marketplace account. The proxy string may be
// empty, in which case requests go out directly.
func New(accountID int64, key, proxy string, g *governor.Governor, opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("api key cannot be empty")
	}

	transport := http.DefaultTransport
	if len(proxy) != 0 {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", proxy, err)
		}
		transport = &http.Transport{Proxy: http.ProxyURL(u)}
	}

	c := &Client{
		opts:      *opts,
		accountID: accountID,
		key:       key,
		proxy:     proxy,
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.HttpClientTimeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(opts.TransportPerSecond), 1),
		governor: g,
	}
	return c, nil
}

// Close releases resources and destroys the client instance.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) AccountID() int64 {
	return c.accountID
}

// Credentials returns the key and proxy the client was created with, so that
// callers can detect stale clients after an account update.
func (c *Client) Credentials() (key, proxy string) {
	return c.key, c.proxy
}

func (c *Client) restURL(p string, values url.Values) *url.URL {
	return &url.URL{
		Scheme:   c.opts.RestScheme,
		Host:     c.opts.RestHostname,
		Path:     path.Join("/api/v1", p),
		RawQuery: values.Encode(),
	}
}

func (c *Client) do(ctx context.Context, method string, addrURL *url.URL, body []byte) (*http.Response, error) {
	if c.governor != nil {
		if _, err := c.governor.Acquire(ctx, c.accountID); err != nil {
			return nil, err
		}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if len(body) != 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, addrURL.String(), reader)
	if err != nil {
		slog.Error("could not create http request with context", "method", method, "url", addrURL, "err", err)
		return nil, err
	}
	req.Header.Set("Authorization", c.key)
	if len(body) != 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	s := time.Now()
	resp, err := c.client.Do(req)
	if d := time.Now().Sub(s); d > c.opts.HttpClientTimeout {
		slog.Warn(fmt.Sprintf("%s request took %s which is more than the http client timeout %s", method, d, c.opts.HttpClientTimeout))
	}
	return resp, err
}

// httpJSON performs one marketplace call with the full error taxonomy: 429
// triggers the governor's punitive path and one retry, 404 maps to
// os.ErrNotExist, 502 is retried after a short pause and every other
// non-2xx status is a permanent error.
func httpJSON[PT *T, T any](ctx context.Context, c *Client, method string, addrURL *url.URL, request any, response PT) error {
	var body []byte
	if request != nil {
		v, err := json.Marshal(request)
		if err != nil {
			return err
		}
		body = v
	}

	throttled := false
	for {
		resp, err := c.do(ctx, method, addrURL, body)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				slog.Error("could not perform http request", "method", method, "url", addrURL, "err", err)
			}
			return err
		}

		data, err := func() ([]byte, error) {
			defer resp.Body.Close()
			return io.ReadAll(resp.Body)
		}()

		switch {
		case resp.StatusCode == http.StatusOK:
			if err != nil {
				return err
			}
			if response == nil || len(data) == 0 {
				return nil
			}
			if err := json.Unmarshal(data, response); err != nil {
				slog.Error("could not decode response to json", "url", addrURL, "err", err)
				return err
			}
			return nil

		case resp.StatusCode == http.StatusNotFound:
			return os.ErrNotExist

		case resp.StatusCode == http.StatusTooManyRequests:
			if throttled {
				slog.Error("marketplace throttled the retry as well; giving up", "url", addrURL)
				return ErrThrottled
			}
			throttled = true
			if x := resp.Header.Get("Retry-After"); len(x) != 0 {
				if v, err := strconv.Atoi(x); err == nil {
					if err := ctxutil.Sleep(ctx, time.Duration(v)*time.Second); err != nil {
						return err
					}
				}
			}
			if c.governor != nil {
				c.governor.Penalize(ctx, c.accountID)
			}
			if err := context.Cause(ctx); err != nil {
				return err
			}
			continue

		case resp.StatusCode == http.StatusBadGateway:
			slog.Warn("http request returned 502 (will retry)", "method", method, "url", addrURL)
			if err := ctxutil.Sleep(ctx, time.Second); err != nil {
				return err
			}
			continue

		default:
			slog.Error("http request is unsuccessful", "method", method, "url", addrURL, "status", resp.StatusCode, "response", string(data))
			return fmt.Errorf("http %s returned %d", method, resp.StatusCode)
		}
	}
}

// GetListings searches active sell listings with the given query values.
func (c *Client) GetListings(ctx context.Context, values url.Values) ([]*Listing, error) {
	addrURL := c.restURL("/listings", values)
	resp := new(ListListingsResponse)
	if err := httpJSON(ctx, c, http.MethodGet, addrURL, nil, resp); err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("could not get listings", "url", addrURL, "err", err)
		}
		return nil, err
	}
	return resp.Listings, nil
}

// GetBids returns the standing buy orders attached to a listing, highest
// price first.
func (c *Client) GetBids(ctx context.Context, listingID string, limit int) ([]*Bid, error) {
	values := make(url.Values)
	values.Set("limit", strconv.Itoa(limit))
	addrURL := c.restURL(path.Join("/listings", listingID, "buy-orders"), values)
	var bids []*Bid
	if err := httpJSON(ctx, c, http.MethodGet, addrURL, nil, &bids); err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("could not get bids for listing", "listing", listingID, "err", err)
		}
		return nil, err
	}
	return bids, nil
}

// GetSales returns recent sale history for an item name, newest first.
func (c *Client) GetSales(ctx context.Context, name string, limit int) ([]*Sale, error) {
	values := make(url.Values)
	values.Set("limit", strconv.Itoa(limit))
	addrURL := c.restURL(path.Join("/history", url.PathEscape(name), "sales"), values)
	var sales []*Sale
	if err := httpJSON(ctx, c, http.MethodGet, addrURL, nil, &sales); err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("could not get sale history", "name", name, "err", err)
		}
		return nil, err
	}
	return sales, nil
}

// CreateBuyOrder places a new standing buy order and returns its id.
func (c *Client) CreateBuyOrder(ctx context.Context, request *CreateBuyOrderRequest) (string, error) {
	addrURL := c.restURL("/buy-orders", nil)
	resp := new(CreateBuyOrderResponse)
	if err := httpJSON(ctx, c, http.MethodPost, addrURL, request, resp); err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("could not create buy order", "err", err)
		}
		return "", err
	}
	if len(resp.ID) == 0 {
		return "", fmt.Errorf("marketplace did not return a buy order id")
	}
	return resp.ID, nil
}

// DeleteBuyOrder cancels a standing buy order. Deleting an order that is
// already gone returns os.ErrNotExist.
func (c *Client) DeleteBuyOrder(ctx context.Context, orderID string) error {
	addrURL := c.restURL(path.Join("/buy-orders", orderID), nil)
	if err := httpJSON[*struct{}](ctx, c, http.MethodDelete, addrURL, nil, nil); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, os.ErrNotExist) {
			slog.Error("could not delete buy order", "order", orderID, "err", err)
		}
		return err
	}
	return nil
}
