// Package admin serves request log and usage statistics endpoints.
package admin

import (
	"github.com/mandalnilabja/pollinate/internal/storage"
)

// Handlers holds the dependencies for usage and log HTTP handlers.
type Handlers struct {
	Storage storage.Storage
}

// New creates a new instance of admin handlers.
func New(store storage.Storage) *Handlers {
	return &Handlers{Storage: store}
}
