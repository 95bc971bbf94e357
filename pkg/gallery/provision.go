package gallery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

// Provisioner defaults.
const (
	DefaultUploadWorkers = 5
	DefaultUploadRetries = 2
	DefaultRetryInterval = 500 * time.Millisecond
	DefaultCallTimeout   = 30 * time.Second
)

// Provisioner coordinates uploads and deletes against the external
// media store through a fixed-size worker pool. Provision is
// all-or-nothing: a partial ref list is never returned. Release is
// best-effort and never returns an error.
type Provisioner struct {
	store    MediaStore
	workers  int
	retries  uint64
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// ProvisionerOption configures a Provisioner.
type ProvisionerOption func(*Provisioner)

// WithWorkers sets the worker pool size (the concurrency ceiling for
// calls to the media store, independent of batch size).
func WithWorkers(n int) ProvisionerOption {
	return func(p *Provisioner) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithRetries sets how many times a failed upload or delete is retried
// before being counted as permanently failed.
func WithRetries(n uint64) ProvisionerOption {
	return func(p *Provisioner) {
		p.retries = n
	}
}

// WithRetryInterval sets the pause between retry attempts.
func WithRetryInterval(d time.Duration) ProvisionerOption {
	return func(p *Provisioner) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithCallTimeout bounds each individual call to the media store.
// A timed-out call counts as a failed attempt.
func WithCallTimeout(d time.Duration) ProvisionerOption {
	return func(p *Provisioner) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithProvisionerLogger sets the logger used for best-effort cleanup
// failures.
func WithProvisionerLogger(logger *slog.Logger) ProvisionerOption {
	return func(p *Provisioner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProvisioner creates a Provisioner over the given media store.
func NewProvisioner(store MediaStore, opts ...ProvisionerOption) *Provisioner {
	p := &Provisioner{
		store:    store,
		workers:  DefaultUploadWorkers,
		retries:  DefaultUploadRetries,
		interval: DefaultRetryInterval,
		timeout:  DefaultCallTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision uploads every buffer through the bounded pool and returns
// all refs, or none. If any upload permanently fails, every upload
// that did succeed is compensated with a delete before the error is
// returned, so no ref from a failed operation is ever observable.
//
// Caller cancellation does not force-cancel dispatched transfers: they
// are allowed to finish, compensation runs, and only then does the
// abort surface.
func (p *Provisioner) Provision(ctx context.Context, buffers [][]byte) ([]MediaRef, error) {
	if len(buffers) == 0 {
		return nil, NewValidationError("media", "at least one buffer is required")
	}

	// Transfers run detached from the caller's cancellation; each
	// attempt still carries its own timeout.
	transferCtx := context.WithoutCancel(ctx)

	var (
		mu       sync.Mutex
		refs     = make([]MediaRef, len(buffers))
		uploaded = make([]bool, len(buffers))
		failed   int
		firstErr error
	)

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, buf := range buffers {
		i, buf := i, buf
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				// Aborted before this upload was dispatched.
				mu.Lock()
				failed++
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return nil
			}
			ref, err := p.uploadWithRetry(transferCtx, buf)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				if firstErr == nil {
					firstErr = err
				}
				return nil
			}
			refs[i] = ref
			uploaded[i] = true
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers report through the shared state

	if failed == 0 && ctx.Err() == nil {
		return refs, nil
	}

	succeeded := make([]MediaRef, 0, len(buffers))
	for i, ok := range uploaded {
		if ok {
			succeeded = append(succeeded, refs[i])
		}
	}
	p.Release(transferCtx, succeeded)

	if failed == 0 {
		// Every upload finished, but the caller abandoned the
		// operation; its refs have been compensated above.
		return nil, ctx.Err()
	}
	return nil, &ProvisionError{Requested: len(buffers), Failed: failed, Cause: firstErr}
}

// Release deletes refs through the bounded pool, best-effort. An
// individual delete failure is logged and does not abort the remaining
// deletions; the residual risk is an orphaned object in external
// storage, reconciled out-of-band. Release never returns an error.
func (p *Provisioner) Release(ctx context.Context, refs []MediaRef) {
	if len(refs) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			if err := p.deleteWithRetry(ctx, ref.ID); err != nil {
				p.logger.Warn("media release failed, object may be orphaned",
					"media_id", ref.ID, "error", err)
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // failures are logged per ref
}

func (p *Provisioner) uploadWithRetry(ctx context.Context, data []byte) (MediaRef, error) {
	var ref MediaRef
	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		r, err := p.store.Upload(attemptCtx, data)
		if err != nil {
			return err
		}
		ref = r
		return nil
	}
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.interval), p.retries)
	if err := backoff.Retry(op, policy); err != nil {
		return MediaRef{}, &StorageError{Op: "upload", Err: err}
	}
	return ref, nil
}

func (p *Provisioner) deleteWithRetry(ctx context.Context, id string) error {
	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return p.store.Delete(attemptCtx, id)
	}
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.interval), p.retries)
	if err := backoff.Retry(op, policy); err != nil {
		return &StorageError{MediaID: id, Op: "delete", Err: err}
	}
	return nil
}
