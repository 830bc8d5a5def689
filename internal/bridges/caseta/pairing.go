package caseta

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// errCredentialsMissing is reported while credential files are absent.
var errCredentialsMissing = errors.New("credentials missing")

// CredentialWaiter is a Pairer that succeeds once externally provisioned
// credential files are present, e.g. written by a pairing tool or mounted
// from a secret store.
type CredentialWaiter struct {
	Credentials CredentialStore
}

// Pair reports whether the credential files exist.
func (w CredentialWaiter) Pair(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if missing := w.Credentials.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", errCredentialsMissing, strings.Join(missing, ", "))
	}
	return nil
}

// pair moves the facade to Paired, retrying the Pairer every
// pairRetryInterval until credentials exist or ctx ends.
func (f *Facade) pair(ctx context.Context) error {
	if f.creds.Exists() {
		f.setState(StatePaired)
		return nil
	}

	f.setState(StateUnpaired)
	f.logger.Info("bridge credentials missing, pairing", "missing", f.creds.Missing())

	for attempt := 1; ; attempt++ {
		err := f.pairer.Pair(ctx)
		if err == nil && f.creds.Exists() {
			f.setState(StatePaired)
			f.logger.Info("bridge paired", "attempts", attempt)
			return nil
		}
		if err == nil {
			err = errCredentialsMissing
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		f.logger.Warn("pairing attempt failed, retrying",
			"attempt", attempt,
			"retry_in", f.pairRetryInterval.String(),
			"error", fmt.Errorf("%w: %w", ErrPairingFailed, err),
		)

		timer := time.NewTimer(f.pairRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
