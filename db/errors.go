package db

import "errors"

// ErrNotFound is returned by repositories when a lookup matches no rows.
var ErrNotFound = errors.New("not found")

func IgnoreErrNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
