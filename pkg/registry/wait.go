package registry

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/srediag/plugin-qshm/api"
)

// DefaultWaitBackOff returns the policy used by OpenWait callers that have no
// opinion: exponential from 50ms, capped at 2s, giving up after 30s.
func DefaultWaitBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// OpenWait is Open for regions that the emulator may not have created yet.
// Opens failing because the backing file does not exist are retried
// following b until ctx is done; every other error is returned at once.
func (r *Registry) OpenWait(ctx context.Context, uri string, access api.AccessMode, perm uint32, b backoff.BackOff) (*Descriptor, error) {
	if b == nil {
		b = DefaultWaitBackOff()
	}
	var d *Descriptor
	op := func() error {
		var err error
		d, err = r.Open(uri, access, perm)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Infof("%s not available yet, retrying in %s: %v", uri, wait, err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, err
	}
	return d, nil
}
