// Package scanner implements the device-side check-in loop: it samples a
// frame source at a fixed cadence, decodes candidate codes and drives the
// check-in protocol, while a single-flight guard keeps consecutive frames of
// the same still-visible code from submitting twice.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"ticketgate/internal/checkin"
	"ticketgate/internal/lib/logger/sl"
	"ticketgate/internal/qr"
)

// ErrDeviceUnavailable is returned by a FrameSource that cannot acquire or
// read its device (camera permission, hardware failure). The client degrades
// to manual entry instead of blocking the operator.
var ErrDeviceUnavailable = errors.New("scan device unavailable")

// ErrNoCode is returned by Frame when the current frame holds no readable
// code. It is the common case and is not surfaced to the operator.
var ErrNoCode = errors.New("no code in frame")

// FrameSource is a scan device. Acquire is called once on Start and Release
// exactly once on Stop, on every exit path.
type FrameSource interface {
	Acquire(ctx context.Context) error
	Frame(ctx context.Context) (string, error)
	Release() error
}

// CheckInFunc submits one raw code through the decode → protocol pipeline.
// Camera frames and manual entry share this single path.
type CheckInFunc func(ctx context.Context, raw string) (checkin.Result, error)

// OutcomeKind classifies what the operator should see for one attempt.
type OutcomeKind string

const (
	OutcomeSuccess     OutcomeKind = "success"
	OutcomeAlready     OutcomeKind = "already_checked_in"
	OutcomeRejected    OutcomeKind = "rejected"
	OutcomeInvalidCode OutcomeKind = "invalid_code"
	OutcomeDeviceError OutcomeKind = "device_error"
	OutcomeFailed      OutcomeKind = "failed"
)

// Outcome is one attempt's result as rendered to the operator.
type Outcome struct {
	Kind   OutcomeKind
	Result checkin.Result
	Err    error
}

type Config struct {
	PollInterval   time.Duration
	CheckInTimeout time.Duration
}

// Client is one scanner instance bound to one event entrance. It owns its
// frame source exclusively between Start and Stop.
type Client struct {
	log      *slog.Logger
	source   FrameSource
	checkIn  CheckInFunc
	onResult func(Outcome)
	cfg      Config

	inFlight atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(log *slog.Logger, source FrameSource, checkIn CheckInFunc, onResult func(Outcome), cfg Config) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.CheckInTimeout <= 0 {
		cfg.CheckInTimeout = 5 * time.Second
	}
	if onResult == nil {
		onResult = func(Outcome) {}
	}

	return &Client{
		log:      log,
		source:   source,
		checkIn:  checkIn,
		onResult: onResult,
		cfg:      cfg,
	}
}

// Start acquires the device and begins polling. Starting a running client is
// a no-op. When the device cannot be acquired the client reports
// OutcomeDeviceError and stays stopped; the operator falls back to Submit.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return nil
	}

	if err := c.source.Acquire(ctx); err != nil {
		c.mu.Unlock()
		c.onResult(Outcome{Kind: OutcomeDeviceError, Err: err})
		return ErrDeviceUnavailable
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.run(loopCtx)

	c.log.Info("scanner started", slog.Duration("poll_interval", c.cfg.PollInterval))

	return nil
}

// Stop halts polling and releases the device. Callable at any point, more
// than once. A check-in already in flight completes on its own timeout; its
// result is simply discarded by whoever was listening.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.cancel == nil {
		c.mu.Unlock()
		return
	}
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	<-done

	c.log.Info("scanner stopped")
}

// Submit feeds operator-typed text through the same pipeline as camera
// frames. It shares the single-flight guard: a submission is dropped while
// another attempt is outstanding.
func (c *Client) Submit(ctx context.Context, raw string) {
	c.attempt(ctx, raw)
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	defer func() {
		if err := c.source.Release(); err != nil {
			c.log.Error("failed to release scan device", sl.Err(err))
		}
	}()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.poll(ctx)
		}
	}
}

func (c *Client) poll(ctx context.Context) {
	// Skip the frame entirely while a check-in is outstanding; sampling is
	// pointless when the result could not be submitted anyway.
	if c.inFlight.Load() {
		return
	}

	raw, err := c.source.Frame(ctx)
	if err != nil {
		if errors.Is(err, ErrNoCode) || errors.Is(err, context.Canceled) {
			return
		}
		c.log.Error("frame capture failed", sl.Err(err))
		c.onResult(Outcome{Kind: OutcomeDeviceError, Err: err})
		return
	}

	c.attempt(ctx, raw)
}

// attempt runs one code through the pipeline under the single-flight guard.
func (c *Client) attempt(ctx context.Context, raw string) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer c.inFlight.Store(false)

	// Detached from the polling loop's context: Stop cancels polling but
	// never interrupts a check-in already in flight. The timeout still
	// bounds the call.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.CheckInTimeout)
	defer cancel()

	res, err := c.checkIn(ctx, raw)
	if err != nil {
		if errors.Is(err, qr.ErrInvalidPayload) {
			c.onResult(Outcome{Kind: OutcomeInvalidCode, Err: err})
			return
		}
		// Timeout or transport failure: outcome unknown, prompt a re-check.
		// A retried check-in is safe because of the already-checked-in
		// branch on the server.
		c.log.Error("check-in attempt failed", sl.Err(err))
		c.onResult(Outcome{Kind: OutcomeFailed, Err: err})
		return
	}

	c.onResult(Outcome{Kind: outcomeFor(res.Kind), Result: res})
}

func outcomeFor(kind checkin.ResultKind) OutcomeKind {
	switch kind {
	case checkin.Success:
		return OutcomeSuccess
	case checkin.AlreadyCheckedIn:
		return OutcomeAlready
	default:
		return OutcomeRejected
	}
}
