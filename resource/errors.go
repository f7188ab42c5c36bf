package resource

import (
	"errors"
	"fmt"

	"github.com/gogpu/compositor/gpucore"
)

// Registry errors.
var (
	// ErrOutOfMemory is returned when a backing cannot be allocated or the
	// memory budget would be exceeded.
	ErrOutOfMemory = errors.New("resource: out of memory")

	// ErrSizeMismatch is returned when a size or upload region does not fit
	// the resource.
	ErrSizeMismatch = errors.New("resource: size mismatch")

	// ErrResourceStillInUse is returned by Delete while references remain.
	ErrResourceStillInUse = errors.New("resource: resource still in use")

	// ErrNotInUse is returned when releasing a resource with no outstanding
	// references.
	ErrNotInUse = errors.New("resource: resource not in use")

	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("resource: not found")

	// ErrContextLost is returned for GPU operations after LoseContext.
	ErrContextLost = errors.New("resource: context lost")

	// ErrUnsupportedFormat is returned when a backing cannot store a format.
	ErrUnsupportedFormat = errors.New("resource: unsupported format")

	// ErrNotBitmap is returned when CPU pixels are requested from a texture.
	ErrNotBitmap = errors.New("resource: not a bitmap resource")
)

// NotFoundError reports an id that the registry does not know.
type NotFoundError struct {
	ID gpucore.ResourceID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource: id %d not found", e.ID)
}

// Is makes errors.Is(err, ErrNotFound) succeed.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
