// Package handler composes the HTTP handlers served by the router.
package handler

import (
	"log/slog"
	"time"

	"github.com/mandalnilabja/pollinate/internal/media"
	"github.com/mandalnilabja/pollinate/internal/storage"
	"github.com/mandalnilabja/pollinate/internal/tokenizer"
	"github.com/mandalnilabja/pollinate/internal/transport/http/handler/admin"
	"github.com/mandalnilabja/pollinate/internal/transport/http/handler/infra"
	"github.com/mandalnilabja/pollinate/internal/transport/http/handler/proxy"
)

// Repo composes all domain-specific handlers.
type Repo struct {
	Admin *admin.Handlers
	Proxy *proxy.Handlers
	Infra *infra.Handlers
}

// Deps are the collaborators shared by the handlers. Storage, Tokenizer
// and Media may be nil.
type Deps struct {
	Upstream    proxy.Upstream
	UpstreamURL string
	Media       media.Preprocessor
	Storage     storage.Storage
	Tokenizer   tokenizer.Tokenizer
	Logger      *slog.Logger
	Options     proxy.Options
}

// NewRepo creates a new instance of the composed handler repository.
func NewRepo(deps Deps) *Repo {
	startTime := time.Now()
	return &Repo{
		Admin: admin.New(deps.Storage),
		Proxy: proxy.New(deps.Upstream, deps.Media, deps.Storage, deps.Tokenizer, deps.Logger, deps.Options),
		Infra: infra.New(startTime, deps.UpstreamURL),
	}
}
