package market

import (
	"context"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// commandType represents the type of command sent to the dispatcher.
type commandType int

const (
	cmdOpenAccount commandType = iota
	cmdSubmit
	cmdCancel
	cmdRunMatching
	cmdOwnerSnapshot
	cmdBookSnapshot
	cmdDepth
	cmdStats
)

type openAccountRequest struct {
	cash   decimal.Decimal
	shares int64
}

type submitRequest struct {
	side     Side
	price    decimal.Decimal
	quantity int64
	ownerID  string
}

type response struct {
	data any
	err  error
}

// command is a unified command sent to the dispatcher loop. A single
// channel keeps ordering deterministic across command types.
type command struct {
	typ     commandType
	payload any
	resp    chan *response
}

// Dispatcher is the host-side serializer for an Engine: a buffered
// command channel drained by a single worker, so calls from any number
// of goroutines execute one at a time and in arrival order. The engine
// itself stays lock-free and single-threaded.
type Dispatcher struct {
	engine           *Engine
	isShutdown       atomic.Bool
	cmdChan          chan command
	done             chan struct{}
	shutdownComplete chan struct{}
}

// NewDispatcher wraps an engine. The engine must not be driven directly
// once a dispatcher owns it.
func NewDispatcher(engine *Engine) *Dispatcher {
	return &Dispatcher{
		engine:           engine,
		cmdChan:          make(chan command, 32768),
		done:             make(chan struct{}),
		shutdownComplete: make(chan struct{}),
	}
}

// Start runs the dispatch loop, processing commands in arrival order.
// Returns nil when Shutdown is called and all pending commands are drained.
func (d *Dispatcher) Start() error {
	for {
		select {
		case <-d.done:
			return d.drain()
		case cmd := <-d.cmdChan:
			d.handle(cmd)
		}
	}
}

// Shutdown signals the dispatcher to stop accepting new commands and
// waits for the pending ones to be processed. Returns ctx.Err() if the
// context expires first.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	if d.isShutdown.CompareAndSwap(false, true) {
		close(d.done)
	}

	select {
	case <-d.shutdownComplete:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain processes all remaining commands in the channel before returning.
// Every queued command still gets a response, so no caller is left hanging.
func (d *Dispatcher) drain() error {
	defer close(d.shutdownComplete)

	for {
		select {
		case cmd := <-d.cmdChan:
			d.handle(cmd)
		default:
			logger.Info("dispatcher drained", "pending", len(d.cmdChan))
			return nil
		}
	}
}

func (d *Dispatcher) handle(cmd command) {
	var res response

	switch cmd.typ {
	case cmdOpenAccount:
		req, _ := cmd.payload.(openAccountRequest)
		res.data, res.err = d.engine.OpenAccount(req.cash, req.shares)
	case cmdSubmit:
		req, _ := cmd.payload.(submitRequest)
		res.data, res.err = d.engine.Submit(req.side, req.price, req.quantity, req.ownerID)
	case cmdCancel:
		orderID, _ := cmd.payload.(string)
		res.data, res.err = d.engine.Cancel(orderID)
	case cmdRunMatching:
		res.data = d.engine.RunMatching()
	case cmdOwnerSnapshot:
		ownerID, _ := cmd.payload.(string)
		res.data, res.err = d.engine.OwnerSnapshot(ownerID)
	case cmdBookSnapshot:
		side, _ := cmd.payload.(Side)
		res.data = d.engine.BookSnapshot(side)
	case cmdDepth:
		limit, _ := cmd.payload.(uint32)
		res.data, res.err = d.engine.Depth(limit)
	case cmdStats:
		res.data = d.engine.Stats()
	}

	if cmd.resp != nil {
		select {
		case cmd.resp <- &res:
		default:
			// Non-blocking send, if no one is listening, just drop it
		}
	}
}

// exec enqueues one command and waits for its response.
func (d *Dispatcher) exec(ctx context.Context, typ commandType, payload any) (any, error) {
	if d.isShutdown.Load() {
		return nil, ErrShutdown
	}

	respChan := make(chan *response, 1)

	select {
	case d.cmdChan <- command{typ: typ, payload: payload, resp: respChan}:
	case <-ctx.Done():
		return nil, ErrTimeout
	}

	select {
	case res := <-respChan:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

// OpenAccount creates a participant through the dispatch loop.
func (d *Dispatcher) OpenAccount(ctx context.Context, cash decimal.Decimal, shares int64) (string, error) {
	data, err := d.exec(ctx, cmdOpenAccount, openAccountRequest{cash: cash, shares: shares})
	if err != nil {
		return "", err
	}
	id, _ := data.(string)
	return id, nil
}

// Submit places a limit order through the dispatch loop.
func (d *Dispatcher) Submit(ctx context.Context, side Side, price decimal.Decimal, quantity int64, ownerID string) (string, error) {
	data, err := d.exec(ctx, cmdSubmit, submitRequest{side: side, price: price, quantity: quantity, ownerID: ownerID})
	if err != nil {
		return "", err
	}
	id, _ := data.(string)
	return id, nil
}

// Cancel removes an active order through the dispatch loop.
func (d *Dispatcher) Cancel(ctx context.Context, orderID string) (Order, error) {
	data, err := d.exec(ctx, cmdCancel, orderID)
	if err != nil {
		return Order{}, err
	}
	order, _ := data.(Order)
	return order, nil
}

// RunMatching crosses the book through the dispatch loop.
func (d *Dispatcher) RunMatching(ctx context.Context) ([]*Trade, error) {
	data, err := d.exec(ctx, cmdRunMatching, nil)
	if err != nil {
		return nil, err
	}
	trades, _ := data.([]*Trade)
	return trades, nil
}

// OwnerSnapshot reads one participant's balances through the dispatch loop.
func (d *Dispatcher) OwnerSnapshot(ctx context.Context, ownerID string) (OwnerSnapshot, error) {
	data, err := d.exec(ctx, cmdOwnerSnapshot, ownerID)
	if err != nil {
		return OwnerSnapshot{}, err
	}
	snap, _ := data.(OwnerSnapshot)
	return snap, nil
}

// BookSnapshot reads one side of the book through the dispatch loop.
func (d *Dispatcher) BookSnapshot(ctx context.Context, side Side) ([]Order, error) {
	data, err := d.exec(ctx, cmdBookSnapshot, side)
	if err != nil {
		return nil, err
	}
	orders, _ := data.([]Order)
	return orders, nil
}

// Depth reads the aggregated levels through the dispatch loop.
func (d *Dispatcher) Depth(ctx context.Context, limit uint32) (*Depth, error) {
	data, err := d.exec(ctx, cmdDepth, limit)
	if err != nil {
		return nil, err
	}
	depth, _ := data.(*Depth)
	return depth, nil
}

// Stats reads book statistics through the dispatch loop.
func (d *Dispatcher) Stats(ctx context.Context) (*BookStats, error) {
	data, err := d.exec(ctx, cmdStats, nil)
	if err != nil {
		return nil, err
	}
	stats, _ := data.(*BookStats)
	return stats, nil
}
