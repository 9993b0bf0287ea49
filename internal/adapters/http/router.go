package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/config"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/ports"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/observability/metrics"
)

// projectService bundles the upload-side contracts one use case serves.
type projectService interface {
	ports.ProjectIngestor
	ports.ProjectRemapper
}

// mappingService bundles the classification contracts one use case serves.
type mappingService interface {
	ports.FieldMapper
	ports.MappingOverrider
}

type Router struct {
	cfg     config.Config
	catalog []domain.TargetField

	projects   projectService
	states     ports.ProjectReader
	mappings   mappingService
	normalizer ports.SheetNormalizer
	acceptor   ports.MappingAcceptor
	accepted   ports.AcceptedMappingStore

	metrics *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	catalog []domain.TargetField,
	projects projectService,
	states ports.ProjectReader,
	mappings mappingService,
	normalizer ports.SheetNormalizer,
	acceptor ports.MappingAcceptor,
	accepted ports.AcceptedMappingStore,
	metrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:        cfg,
		catalog:    catalog,
		projects:   projects,
		states:     states,
		mappings:   mappings,
		normalizer: normalizer,
		acceptor:   acceptor,
		accepted:   accepted,
		metrics:    metrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.HandleFunc("/v1/projects", rt.createProject)
	mux.HandleFunc("/v1/projects/", rt.projectSubtree)
	mux.HandleFunc("/v1/mappings", rt.mapFields)
	mux.HandleFunc("/v1/mappings/override", rt.overrideMapping)
	mux.HandleFunc("/v1/normalize", rt.normalizeRows)

	var handler http.Handler = mux
	if rt.cfg.APIMaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureWait)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	}
	handler = rt.metrics.Middleware(handler)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
