package catalog

import "errors"

// Domain errors for the catalog package.
var (
	// ErrEmpty is returned by Warm when the store holds no types for the server.
	ErrEmpty = errors.New("catalog: no cached types")

	// ErrNoStore is returned by Warm when the catalog was created without a store.
	ErrNoStore = errors.New("catalog: no store configured")
)
