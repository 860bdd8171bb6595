// Copyright (c) 2025 BVK Chaitanya

// Package server exposes the bot controls and the persisted state over HTTP
// endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bvkgo/kv"

	"github.com/bvk/floatbid/api"
	"github.com/bvk/floatbid/bot"
	"github.com/bvk/floatbid/datastore"
	"github.com/bvk/floatbid/gobs"
	"github.com/bvk/floatbid/item"
)

type Server struct {
	db kv.Database

	bot *bot.Bot
}

func New(db kv.Database, b *bot.Bot) *Server {
	return &Server{
		db:  db,
		bot: b,
	}
}

// HandlerMap returns the http handlers to be registered on the http server.
func (s *Server) HandlerMap() map[string]http.Handler {
	return map[string]http.Handler{
		"/api/bot/start":      postJSONHandler(s.doStart),
		"/api/bot/stop":       postJSONHandler(s.doStop),
		"/api/bot/status":     http.HandlerFunc(s.doStatus),
		"/api/account/add":    postJSONHandler(s.doAddAccount),
		"/api/account/list":   postJSONHandler(s.doListAccounts),
		"/api/account/enable": postJSONHandler(s.doSetAccountEnabled),
		"/api/order/add":      postJSONHandler(s.doAddOrder),
		"/api/order/list":     postJSONHandler(s.doListOrders),
		"/api/event/list":     postJSONHandler(s.doListEvents),
	}
}

func postJSONHandler[T1, T2 any](fn func(context.Context, *T1) (*T2, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		request := new(T1)
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(request); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		response, err := fn(r.Context(), request)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, os.ErrNotExist) {
				status = http.StatusNotFound
			} else if errors.Is(err, os.ErrInvalid) {
				status = http.StatusBadRequest
			}
			http.Error(w, err.Error(), status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			slog.Error("could not encode http response (ignored)", "url", r.URL, "err", err)
		}
	})
}

func (s *Server) doStart(ctx context.Context, _ *api.StartRequest) (*api.StartResponse, error) {
	if err := s.bot.Start(ctx); err != nil {
		return nil, err
	}
	return &api.StartResponse{Running: s.bot.IsRunning()}, nil
}

func (s *Server) doStop(ctx context.Context, _ *api.StopRequest) (*api.StopResponse, error) {
	if err := s.bot.Stop(ctx); err != nil {
		return nil, err
	}
	return &api.StopResponse{Running: s.bot.IsRunning()}, nil
}

func (s *Server) doStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.bot.Status()); err != nil {
		slog.Error("could not encode bot status (ignored)", "err", err)
	}
}

func exportAccount(a *gobs.Account) *api.Account {
	return &api.Account{
		ID:            a.ID,
		Name:          a.Name,
		Proxy:         a.Proxy,
		Enabled:       a.Enabled,
		Status:        a.Status,
		ErrorMessage:  a.ErrorMessage,
		LastCheckedAt: a.LastCheckedAt,
	}
}

func (s *Server) doAddAccount(ctx context.Context, request *api.AddAccountRequest) (*api.AddAccountResponse, error) {
	a := &request.Account
	if a.ID == 0 {
		return nil, fmt.Errorf("account id cannot be zero: %w", os.ErrInvalid)
	}
	if len(a.APIKey) == 0 {
		return nil, fmt.Errorf("account api key cannot be empty: %w", os.ErrInvalid)
	}

	save := func(ctx context.Context, rw kv.ReadWriter) error {
		account, err := datastore.LoadAccount(ctx, rw, a.ID)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			account = &gobs.Account{ID: a.ID, Status: gobs.AccountIdle}
		}
		account.Name = a.Name
		account.APIKey = a.APIKey
		account.Proxy = a.Proxy
		account.Enabled = a.Enabled
		return datastore.SaveAccount(ctx, rw, account)
	}
	if err := kv.WithReadWriter(ctx, s.db, save); err != nil {
		return nil, err
	}
	return &api.AddAccountResponse{ID: a.ID}, nil
}

func (s *Server) doListAccounts(ctx context.Context, _ *api.ListAccountsRequest) (*api.ListAccountsResponse, error) {
	response := new(api.ListAccountsResponse)
	load := func(ctx context.Context, r kv.Reader) error {
		accounts, err := datastore.LoadAccounts(ctx, r)
		if err != nil {
			return err
		}
		for _, a := range accounts {
			response.Accounts = append(response.Accounts, exportAccount(a))
		}
		return nil
	}
	if err := kv.WithReader(ctx, s.db, load); err != nil {
		return nil, err
	}
	return response, nil
}

func (s *Server) doSetAccountEnabled(ctx context.Context, request *api.SetAccountEnabledRequest) (*api.SetAccountEnabledResponse, error) {
	save := func(ctx context.Context, rw kv.ReadWriter) error {
		account, err := datastore.LoadAccount(ctx, rw, request.ID)
		if err != nil {
			return err
		}
		account.Enabled = request.Enabled
		return datastore.SaveAccount(ctx, rw, account)
	}
	if err := kv.WithReadWriter(ctx, s.db, save); err != nil {
		return nil, err
	}
	return &api.SetAccountEnabledResponse{Enabled: request.Enabled}, nil
}

func exportOrder(v *gobs.BuyOrder) *api.Order {
	return &api.Order{
		UID:         v.UID,
		AccountID:   v.AccountID,
		OrderID:     v.OrderID,
		Kind:        v.Kind,
		Name:        v.Name,
		DefIndex:    v.DefIndex,
		PaintIndex:  v.PaintIndex,
		WearMin:     v.WearMin,
		WearMax:     v.WearMax,
		Price:       v.Price,
		Quantity:    v.Quantity,
		OutbidCount: v.OutbidCount,
		MaxPrice:    v.MaxPrice,
		Active:      v.Active,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

func (s *Server) doAddOrder(ctx context.Context, request *api.AddOrderRequest) (*api.AddOrderResponse, error) {
	o := &request.Order
	order := &gobs.BuyOrder{
		AccountID:  o.AccountID,
		OrderID:    o.OrderID,
		Kind:       o.Kind,
		Name:       o.Name,
		DefIndex:   o.DefIndex,
		PaintIndex: o.PaintIndex,
		WearMin:    o.WearMin,
		WearMax:    o.WearMax,
		Price:      o.Price,
		Quantity:   o.Quantity,
		MaxPrice:   o.MaxPrice,
		Active:     true,
	}
	if order.Quantity == 0 {
		order.Quantity = 1
	}
	d := item.FromOrder(order)
	if err := d.Check(); err != nil {
		return nil, fmt.Errorf("order targets an invalid item: %v: %w", err, os.ErrInvalid)
	}

	response := new(api.AddOrderResponse)
	save := func(ctx context.Context, rw kv.ReadWriter) (err error) {
		if _, err := datastore.LoadAccount(ctx, rw, order.AccountID); err != nil {
			return fmt.Errorf("could not load account %d: %w", order.AccountID, err)
		}
		response.UID, err = datastore.AddOrder(ctx, rw, order)
		return err
	}
	if err := kv.WithReadWriter(ctx, s.db, save); err != nil {
		return nil, err
	}
	return response, nil
}

func (s *Server) doListOrders(ctx context.Context, request *api.ListOrdersRequest) (*api.ListOrdersResponse, error) {
	response := new(api.ListOrdersResponse)
	load := func(ctx context.Context, r kv.Reader) error {
		orders, err := datastore.AccountOrders(ctx, r, request.AccountID)
		if err != nil {
			return err
		}
		for _, v := range orders {
			response.Orders = append(response.Orders, exportOrder(v))
		}
		return nil
	}
	if err := kv.WithReader(ctx, s.db, load); err != nil {
		return nil, err
	}
	return response, nil
}

func (s *Server) doListEvents(ctx context.Context, request *api.ListEventsRequest) (*api.ListEventsResponse, error) {
	response := new(api.ListEventsResponse)
	load := func(ctx context.Context, r kv.Reader) error {
		events, err := datastore.AccountEvents(ctx, r, request.AccountID)
		if err != nil {
			return err
		}
		for _, v := range events {
			response.Events = append(response.Events, &api.Event{
				AccountID:       v.AccountID,
				OrderUID:        v.OrderUID,
				OrderID:         v.OrderID,
				Name:            v.Name,
				OldPrice:        v.OldPrice,
				NewPrice:        v.NewPrice,
				CompetitorPrice: v.CompetitorPrice,
				Timestamp:       v.Timestamp,
			})
		}
		return nil
	}
	if err := kv.WithReader(ctx, s.db, load); err != nil {
		return nil, err
	}
	return response, nil
}
