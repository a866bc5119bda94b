package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/gyuwonk/chehum/internal/model"
)

// wrapError annotates storage errors. Timeouts, cancellations and broken
// connections map to model.ErrUnavailable, the only retryable category;
// everything else propagates opaque.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.As(err, &netErr):
		return fmt.Errorf("%s: %v: %w", op, err, model.ErrUnavailable)
	}

	return fmt.Errorf("%s: %w", op, err)
}
