package gallery_test

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artgrove/gallery/pkg/gallery"
	memorystorage "github.com/artgrove/gallery/pkg/gallery/storage/memory"
)

func newTestProvisioner(store *memorystorage.Store, opts ...gallery.ProvisionerOption) *gallery.Provisioner {
	base := []gallery.ProvisionerOption{gallery.WithRetryInterval(time.Millisecond)}
	return gallery.NewProvisioner(store, append(base, opts...)...)
}

func TestProvision(t *testing.T) {
	ctx := context.Background()

	t.Run("all buffers are uploaded", func(t *testing.T) {
		store := memorystorage.New()
		p := newTestProvisioner(store)

		refs, err := p.Provision(ctx, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
		require.NoError(t, err)

		require.Len(t, refs, 3)
		assert.Equal(t, 3, store.Len())
		for _, ref := range refs {
			assert.True(t, store.Exists(ref.ID))
		}
	})

	t.Run("empty batch is rejected", func(t *testing.T) {
		store := memorystorage.New()
		p := newTestProvisioner(store)

		_, err := p.Provision(ctx, nil)
		assert.ErrorIs(t, err, gallery.ErrValidation)
	})

	t.Run("batch larger than the pool still completes", func(t *testing.T) {
		store := memorystorage.New()
		p := newTestProvisioner(store, gallery.WithWorkers(2))

		buffers := make([][]byte, 9)
		for i := range buffers {
			buffers[i] = []byte{byte(i)}
		}
		refs, err := p.Provision(ctx, buffers)
		require.NoError(t, err)
		assert.Len(t, refs, 9)
		assert.Equal(t, 9, store.Len())
	})
}

func TestProvisionPartialFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("one permanent failure compensates the rest", func(t *testing.T) {
		store := memorystorage.New()
		p := newTestProvisioner(store)

		bad := []byte("poison")
		store.SetUploadFailure(func(data []byte) error {
			if bytes.Equal(data, bad) {
				return errors.New("store rejected object")
			}
			return nil
		})

		refs, err := p.Provision(ctx, [][]byte{[]byte("good-a"), bad, []byte("good-b")})
		require.Error(t, err)
		assert.Nil(t, refs)
		assert.ErrorIs(t, err, gallery.ErrPartialProvision)

		var provErr *gallery.ProvisionError
		require.True(t, errors.As(err, &provErr))
		assert.Equal(t, 3, provErr.Requested)
		assert.Equal(t, 1, provErr.Failed)

		// The two successful uploads were deleted again.
		assert.Equal(t, 0, store.Len())
		// The failing buffer burned every retry: initial attempt plus two.
		assert.Equal(t, 5, store.UploadCalls())
	})

	t.Run("transient failure is retried to success", func(t *testing.T) {
		store := memorystorage.New()
		p := newTestProvisioner(store)

		var attempts atomic.Int32
		store.SetUploadFailure(func(data []byte) error {
			if attempts.Add(1) <= 2 {
				return errors.New("transient")
			}
			return nil
		})

		refs, err := p.Provision(ctx, [][]byte{[]byte("flaky")})
		require.NoError(t, err)
		assert.Len(t, refs, 1)
		assert.Equal(t, 1, store.Len())
		assert.Equal(t, 3, store.UploadCalls())
	})

	t.Run("failure on every retry is permanent", func(t *testing.T) {
		store := memorystorage.New()
		p := newTestProvisioner(store, gallery.WithRetries(1))

		store.SetUploadFailure(func([]byte) error { return errors.New("down") })

		_, err := p.Provision(ctx, [][]byte{[]byte("doomed")})
		assert.ErrorIs(t, err, gallery.ErrPartialProvision)

		var storageErr *gallery.StorageError
		assert.True(t, errors.As(err, &storageErr))
		assert.Equal(t, 2, store.UploadCalls())
		assert.Equal(t, 0, store.Len())
	})

	t.Run("upload blocked past the call timeout fails permanently", func(t *testing.T) {
		store := memorystorage.New()
		p := newTestProvisioner(store,
			gallery.WithRetries(1),
			gallery.WithCallTimeout(10*time.Millisecond))

		store.SetUploadFailure(func([]byte) error {
			time.Sleep(50 * time.Millisecond)
			return nil
		})

		refs, err := p.Provision(ctx, [][]byte{[]byte("stalled")})
		require.Error(t, err)
		assert.Nil(t, refs)
		assert.ErrorIs(t, err, gallery.ErrPartialProvision)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		// Each attempt hit its own deadline: initial plus one retry,
		// with nothing left behind in storage.
		assert.Equal(t, 2, store.UploadCalls())
		assert.Equal(t, 0, store.Len())
	})

	t.Run("pre-cancelled context dispatches nothing", func(t *testing.T) {
		store := memorystorage.New()
		p := newTestProvisioner(store)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		refs, err := p.Provision(cancelled, [][]byte{[]byte("a"), []byte("b")})
		require.Error(t, err)
		assert.Nil(t, refs)
		assert.Equal(t, 0, store.UploadCalls())
		assert.Equal(t, 0, store.Len())
	})
}

func TestRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes every ref", func(t *testing.T) {
		store := memorystorage.New()
		p := newTestProvisioner(store)

		refs, err := p.Provision(ctx, [][]byte{[]byte("a"), []byte("b")})
		require.NoError(t, err)

		p.Release(ctx, refs)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("a failing delete does not stop the others", func(t *testing.T) {
		store := memorystorage.New()
		p := newTestProvisioner(store)

		refs, err := p.Provision(ctx, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
		require.NoError(t, err)

		stuck := refs[1].ID
		store.SetDeleteFailure(func(id string) error {
			if id == stuck {
				return errors.New("object locked")
			}
			return nil
		})

		p.Release(ctx, refs)

		// The stuck object is orphaned, the rest are gone.
		assert.Equal(t, 1, store.Len())
		assert.True(t, store.Exists(stuck))
	})

	t.Run("empty ref list is a no-op", func(t *testing.T) {
		store := memorystorage.New()
		p := newTestProvisioner(store)
		p.Release(ctx, nil)
		assert.Equal(t, 0, store.DeleteCalls())
	})
}
