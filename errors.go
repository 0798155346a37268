package chainmap

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrOutOfMemory is the single failure kind of a table: a copy handler
	// could not produce a value, or a bucket array could not be allocated
	// within the configured budget. Test with errors.Is.
	ErrOutOfMemory = errors.New("chainmap: out of memory")

	// ErrInvalidConfig reports a configuration value outside its domain.
	ErrInvalidConfig = errors.New("chainmap: invalid config")

	// ErrDestroyed is the panic value of any operation on a destroyed table.
	ErrDestroyed = errors.New("chainmap: table destroyed")
)

// markOutOfMemory keeps the handler's cause while making it match ErrOutOfMemory.
func markOutOfMemory(err error, what string) error {
	if err == nil {
		return errors.Wrapf(ErrOutOfMemory, "%s", what)
	}
	return errors.Mark(errors.Wrapf(err, "%s", what), ErrOutOfMemory)
}
