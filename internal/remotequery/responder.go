// Copyright (c) 2025 RemoteSQL Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package remotequery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"remotesql/cli/internal/bridge"
	"remotesql/cli/internal/bridge/model"
	rqerrors "remotesql/cli/internal/errors"
	"remotesql/cli/internal/logging"
	"remotesql/cli/internal/metrics"
	"remotesql/cli/internal/sqlexec"
	"remotesql/cli/internal/wire"

	"github.com/panjf2000/ants/v2"
	"github.com/pterm/pterm"
)

const (
	// DefaultConcurrency is the number of requests executed at once.
	DefaultConcurrency = 4
	// DefaultExecTimeout bounds one execution and the broadcast of its result.
	DefaultExecTimeout = 10 * time.Second
)

// Responder answers protocol requests from the local database.
// Requests are executed off the delivery goroutine on a bounded worker pool;
// when every worker is busy the request is dropped.
type Responder struct {
	db          sqlexec.Database
	bridge      bridge.Bridge
	prefix      string
	execTimeout time.Duration
	concurrency int
	log         *pterm.Logger
	metrics     *metrics.Responder

	pool    *ants.Pool
	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	closed  atomic.Bool
	once    sync.Once
}

// ResponderOption configures a Responder.
type ResponderOption func(*Responder)

// WithResponderPrefix sets the routing key prefix to answer on.
func WithResponderPrefix(prefix string) ResponderOption {
	return func(r *Responder) { r.prefix = prefix }
}

// WithExecTimeout bounds each execution.
func WithExecTimeout(d time.Duration) ResponderOption {
	return func(r *Responder) { r.execTimeout = d }
}

// WithConcurrency sets the worker pool size.
func WithConcurrency(n int) ResponderOption {
	return func(r *Responder) { r.concurrency = n }
}

// WithResponderLogger sets the logger for dropped and failed requests.
func WithResponderLogger(l *pterm.Logger) ResponderOption {
	return func(r *Responder) { r.log = l }
}

// WithResponderMetrics records request outcomes and execution time on m.
func WithResponderMetrics(m *metrics.Responder) ResponderOption {
	return func(r *Responder) { r.metrics = m }
}

// NewResponder builds a responder over db and b. Call Start to begin answering.
func NewResponder(db sqlexec.Database, b bridge.Bridge, opts ...ResponderOption) (*Responder, error) {
	r := &Responder{
		db:          db,
		bridge:      b,
		prefix:      DefaultPrefix,
		execTimeout: DefaultExecTimeout,
		concurrency: DefaultConcurrency,
		log:         logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}
	if r.execTimeout <= 0 {
		r.execTimeout = DefaultExecTimeout
	}

	pool, err := ants.NewPool(r.concurrency,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(v any) {
			r.log.Error("responder worker panic", r.log.Args("panic", fmt.Sprint(v)))
		}),
	)
	if err != nil {
		return nil, rqerrors.Wrap(rqerrors.SetupFailed, "create worker pool", err)
	}
	r.pool = pool
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r, nil
}

// Start registers the responder on the transport. It is a no-op after the first call.
func (r *Responder) Start() error {
	if r.closed.Load() {
		return ErrClosed
	}
	if r.started.CompareAndSwap(false, true) {
		r.bridge.AddListener(r)
	}
	return nil
}

// Close unregisters the responder, cancels running executions and waits for
// workers to finish.
func (r *Responder) Close() error {
	var err error
	r.once.Do(func() {
		r.closed.Store(true)
		r.bridge.RemoveListener(r)
		r.cancel()
		err = r.pool.ReleaseTimeout(5 * time.Second)
	})
	return err
}

// OnMessage filters protocol requests and hands them to the worker pool.
// Foreign traffic, results of other responders and undecodable payloads are ignored.
func (r *Responder) OnMessage(msg model.Message) {
	if r.closed.Load() || !IsQueryKey(r.prefix, msg.RoutingKey) {
		return
	}
	if wire.IsResult(msg.Data) {
		return
	}
	req, err := wire.DecodeRequest(msg.Data)
	if err != nil {
		r.metrics.Request(metrics.OutcomeMalformed)
		r.log.Debug("discarding malformed request", r.log.Args("routing_key", msg.RoutingKey, "from", msg.From))
		return
	}

	key := msg.RoutingKey
	if err := r.pool.Submit(func() { r.answer(key, req) }); err != nil {
		r.metrics.Request(metrics.OutcomeDropped)
		if errors.Is(err, ants.ErrPoolOverload) {
			r.log.Warn("responder busy, dropping request", r.log.Args("routing_key", key))
		}
	}
}

func (r *Responder) answer(key string, req wire.Request) {
	ctx, cancel := context.WithTimeout(r.ctx, r.execTimeout)
	defer cancel()

	start := time.Now()
	table, err := r.execute(ctx, req)
	if err != nil {
		r.metrics.Request(metrics.OutcomeFailed)
		r.log.Debug("query failed, not answering", r.log.Args("routing_key", key, "error", err.Error()))
		return
	}
	r.metrics.ObserveExec(time.Since(start))

	res, err := bridge.Broadcast(ctx, r.bridge, key, wire.EncodeResult(table))
	if err != nil {
		r.metrics.Request(metrics.OutcomeFailed)
		r.log.Warn("answer not sent", r.log.Args("routing_key", key, "error", err.Error()))
		return
	}
	r.metrics.Request(metrics.OutcomeAnswered)
	r.log.Debug("answered", r.log.Args("routing_key", key, "rows", len(table.Rows), "peers", res.Peers, "sent", res.Sent))
}

func (r *Responder) execute(ctx context.Context, req wire.Request) (*wire.Table, error) {
	rows, err := r.db.Query(ctx, req.Text, req.Args)
	if err != nil {
		return nil, rqerrors.Wrap(rqerrors.QueryFailed, "execute", err)
	}
	defer rows.Close()
	table, err := Materialize(rows)
	if err != nil {
		return nil, rqerrors.Wrap(rqerrors.QueryFailed, "materialize", err)
	}
	return table, nil
}

// Materialize drains rows into a table. It does not close rows.
func Materialize(rows sqlexec.Rows) (*wire.Table, error) {
	t := wire.NewTable(rows.Columns()...)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		t.AddRow(vals...)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}
