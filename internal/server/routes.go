package server

import (
	"github.com/danielgtaylor/huma/v2"

	v1 "github.com/gosuda/anchord/internal/api/v1"
)

func registerStatusRoutes(api huma.API, ledger v1.LedgerReporter) {
	v1.RegisterStatusRoutes(api, ledger)
}

func registerAuditRoutes(api huma.API, store v1.DataStore, verifier v1.Verifier) {
	v1.RegisterVerifyRoutes(api, verifier)
	v1.RegisterAuditRoutes(api, store)
}

func registerIngestRoutes(api huma.API, anchorer v1.Anchorer) {
	v1.RegisterAnchorRoutes(api, anchorer)
}
