package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/bluebikes/internal/adapters/postgres"
	"github.com/samirrijal/bluebikes/internal/adapters/valkey"
	"github.com/samirrijal/bluebikes/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
// Everything except Reports is optional.
type Dependencies struct {
	Reports *usecases.ReportService
	NATS    *nats.Conn
	DB      *postgres.DB
	Cache   *valkey.Cache
	Version string
}
