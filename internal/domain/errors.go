package domain

import "errors"

var (
	// ErrAddressResolution is returned when an address cannot be geocoded.
	ErrAddressResolution = errors.New("address could not be resolved")

	// ErrRouting is returned when the routing provider fails or returns no route.
	ErrRouting = errors.New("routing failed")
)
