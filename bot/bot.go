// Copyright (c) 2025 BVK Chaitanya

// Package bot implements the polling scheduler: it walks all enabled
// accounts on a fixed interval and runs the order reconciliation workflow
// for each of them in sequence.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bvkgo/kv"
	"github.com/visvasity/topic"

	"github.com/bvk/floatbid/checker"
	"github.com/bvk/floatbid/csfloat"
	"github.com/bvk/floatbid/ctxutil"
	"github.com/bvk/floatbid/datastore"
	"github.com/bvk/floatbid/gobs"
	"github.com/bvk/floatbid/governor"
	"github.com/bvk/floatbid/outbid"
	"github.com/bvk/floatbid/syncmap"
)

type Options struct {
	// PollInterval is the time between two passes over all enabled accounts.
	PollInterval time.Duration

	// MinAccountDelay/MaxAccountDelay bound the random pause between two
	// accounts within one pass.
	MinAccountDelay time.Duration
	MaxAccountDelay time.Duration

	Governor governor.Options
	Engine   outbid.Options
	Checker  checker.Options
	CSFloat  csfloat.Options
}

func (v *Options) setDefaults() {
	if v.PollInterval == 0 {
		v.PollInterval = time.Minute
	}
	if v.MinAccountDelay == 0 {
		v.MinAccountDelay = 10 * time.Second
	}
	if v.MaxAccountDelay == 0 {
		v.MaxAccountDelay = 15 * time.Second
	}
}

// AccountStatus is published on the status topic whenever a pass over an
// account completes.
type AccountStatus struct {
	AccountID int64
	Name      string

	Status       string
	ErrorMessage string
}

type Bot struct {
	opts Options

	db kv.Database

	governor *governor.Governor
	engine   *outbid.Engine
	checker  *checker.Checker

	outbidTopic *topic.Topic[*gobs.OutbidEvent]
	statusTopic *topic.Topic[*AccountStatus]

	clients syncmap.Map[int64, *csfloat.Client]

	activeTasks atomic.Int32

	mu sync.Mutex

	// cg is non-nil only while the scheduler is running.
	cg *ctxutil.CloseGroup
}

func New(db kv.Database, opts *Options) (*Bot, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	engine, err := outbid.New(&opts.Engine)
	if err != nil {
		return nil, fmt.Errorf("invalid decision engine options: %w", err)
	}
	b := &Bot{
		opts:        *opts,
		db:          db,
		governor:    governor.New(&opts.Governor),
		engine:      engine,
		outbidTopic: topic.New[*gobs.OutbidEvent](),
		statusTopic: topic.New[*AccountStatus](),
	}
	b.checker = checker.New(db, engine, b.outbidTopic, &opts.Checker)
	return b, nil
}

// Start begins the polling loop. Starting an already running bot is a no-op.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cg != nil {
		slog.Info("bot is already running; start request ignored")
		return nil
	}
	b.cg = new(ctxutil.CloseGroup)
	b.cg.Go(b.goPoll)
	slog.Info("bot started", "poll-interval", b.opts.PollInterval)
	return nil
}

// Stop halts the polling loop and waits for the in-flight pass to unwind.
// Stopping an already stopped bot is a no-op.
func (b *Bot) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cg == nil {
		slog.Info("bot is not running; stop request ignored")
		return nil
	}
	b.cg.Close()
	b.cg = nil

	b.clients.Range(func(id int64, c *csfloat.Client) bool {
		c.Close()
		b.clients.Delete(id)
		return true
	})
	slog.Info("bot stopped")
	return nil
}

func (b *Bot) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cg != nil
}

// OutbidEvents subscribes to completed re-price actions.
func (b *Bot) OutbidEvents() (*topic.Receiver[*gobs.OutbidEvent], error) {
	return topic.Subscribe(b.outbidTopic, 0, false)
}

// StatusUpdates subscribes to per-account status changes.
func (b *Bot) StatusUpdates() (*topic.Receiver[*AccountStatus], error) {
	return topic.Subscribe(b.statusTopic, 0, false)
}

func (b *Bot) goPoll(ctx context.Context) {
	for context.Cause(ctx) == nil {
		if err := b.runCycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Error("could not complete a polling cycle (will retry)", "err", err)
		}
		if err := ctxutil.Sleep(ctx, b.opts.PollInterval); err != nil {
			return
		}
	}
}

// runCycle makes one pass over all enabled accounts, in sequence with a
// randomized pause between accounts.
func (b *Bot) runCycle(ctx context.Context) error {
	var accounts []*gobs.Account
	load := func(ctx context.Context, r kv.Reader) (err error) {
		accounts, err = datastore.EnabledAccounts(ctx, r)
		return err
	}
	if err := kv.WithReader(ctx, b.db, load); err != nil {
		return fmt.Errorf("could not load enabled accounts: %w", err)
	}
	if len(accounts) == 0 {
		slog.Debug("no enabled accounts; nothing to do")
		return nil
	}

	for i, account := range accounts {
		if i > 0 {
			if err := ctxutil.Sleep(ctx, b.accountDelay()); err != nil {
				return err
			}
		}
		if err := b.checkAccount(ctx, account); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			// checkAccount has already flagged the account; the cycle
			// continues with the remaining accounts.
			slog.Error("could not check account (ignored)", "account", account.ID, "err", err)
		}
	}
	return nil
}

func (b *Bot) accountDelay() time.Duration {
	spread := b.opts.MaxAccountDelay - b.opts.MinAccountDelay
	if spread <= 0 {
		return b.opts.MinAccountDelay
	}
	return b.opts.MinAccountDelay + rand.N(spread)
}

func (b *Bot) checkAccount(ctx context.Context, account *gobs.Account) error {
	client, err := b.accountClient(account)
	if err != nil {
		b.saveAccountStatus(ctx, account, err)
		return err
	}

	b.activeTasks.Add(1)
	err = b.checker.CheckAccount(ctx, client, account)
	b.activeTasks.Add(-1)

	if err != nil && errors.Is(err, context.Canceled) {
		return err
	}
	b.saveAccountStatus(ctx, account, err)
	return err
}

// accountClient returns the cached marketplace client for an account,
// replacing it when the account's key or proxy was changed.
func (b *Bot) accountClient(account *gobs.Account) (*csfloat.Client, error) {
	if c, ok := b.clients.Load(account.ID); ok {
		key, proxy := c.Credentials()
		if key == account.APIKey && proxy == account.Proxy {
			return c, nil
		}
		slog.Info("account credentials changed; recreating marketplace client", "account", account.ID)
		b.clients.Delete(account.ID)
		c.Close()
	}
	c, err := csfloat.New(account.ID, account.APIKey, account.Proxy, b.governor, &b.opts.CSFloat)
	if err != nil {
		return nil, fmt.Errorf("could not create marketplace client: %w", err)
	}
	b.clients.Store(account.ID, c)
	return c, nil
}

// saveAccountStatus persists the outcome of one pass over an account and
// publishes it on the status topic.
func (b *Bot) saveAccountStatus(ctx context.Context, account *gobs.Account, cause error) {
	if cause != nil {
		account.Status = gobs.AccountError
		account.ErrorMessage = cause.Error()
	} else {
		account.Status = gobs.AccountOnline
		account.ErrorMessage = ""
		account.LastCheckedAt = time.Now()
	}

	save := func(ctx context.Context, rw kv.ReadWriter) error {
		return datastore.SaveAccount(ctx, rw, account)
	}
	if err := kv.WithReadWriter(ctx, b.db, save); err != nil {
		slog.Error("could not save account status (ignored)", "account", account.ID, "err", err)
		return
	}
	b.statusTopic.Send(&AccountStatus{
		AccountID:    account.ID,
		Name:         account.Name,
		Status:       account.Status,
		ErrorMessage: account.ErrorMessage,
	})
}

type Status struct {
	Running bool `json:"running"`

	PollInterval string `json:"poll_interval"`

	Step       int64 `json:"step"`
	MaxOutbids int   `json:"max_outbids"`

	ActiveTaskCount int `json:"active_task_count"`

	Governor *governor.Status `json:"governor"`
}

func (b *Bot) Status() *Status {
	return &Status{
		Running:         b.IsRunning(),
		PollInterval:    b.opts.PollInterval.String(),
		Step:            b.engine.Step(),
		MaxOutbids:      b.engine.MaxOutbids(),
		ActiveTaskCount: int(b.activeTasks.Load()),
		Governor:        b.governor.Status(),
	}
}
