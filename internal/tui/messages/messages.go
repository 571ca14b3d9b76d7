package messages

import (
	"betra/internal/catalog"
	"betra/internal/compose"
)

// CatalogMsg delivers a fresh scan of the module directory.
type CatalogMsg struct {
	Catalog *catalog.Catalog
	Err     error
}

// ComposeDoneMsg reports a finished composition.
type ComposeDoneMsg struct {
	Result *compose.Result
	Err    error
}
