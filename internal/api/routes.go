package api

import (
	"net/http"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/api/middleware"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/models"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/api/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	// Health endpoint
	ws.
		Route(ws.GET("health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.POST("/evaluate").
			To(handler.Evaluate).
			Doc("Score a batch of RAG samples and check it against thresholds").
			Metadata(restfulspec.KeyOpenAPITags, []string{"evaluate"}).
			Reads(EvaluateRequest{}).
			Writes(models.EvaluationResult{}).
			Returns(200, "OK", models.EvaluationResult{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(404, "Scorer Not Found", middleware.ErrorResponse{}).
			Returns(502, "Scorer Failed", middleware.ErrorResponse{}))

	ws.
		Route(ws.GET("/thresholds").
			To(handler.Thresholds).
			Doc("Active threshold policy").
			Metadata(restfulspec.KeyOpenAPITags, []string{"thresholds"}).
			Writes(ThresholdsResponse{}).
			Returns(200, "OK", ThresholdsResponse{}))

	ws.
		Route(ws.GET("/runs").
			To(handler.ListRuns).
			Doc("List recent runs, newest first").
			Metadata(restfulspec.KeyOpenAPITags, []string{"runs"}).
			Param(ws.QueryParameter("status", "Filter by status (pending, success, failure)").DataType("string").Required(false)).
			Param(ws.QueryParameter("limit", "Maximum number of runs (default 50, max 500)").DataType("integer").Required(false)).
			Writes(RunsResponse{}).
			Returns(200, "OK", RunsResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(503, "Store Not Configured", middleware.ErrorResponse{}))

	ws.
		Route(ws.GET("/runs/{run_id}").
			To(handler.GetRun).
			Doc("Get one run").
			Metadata(restfulspec.KeyOpenAPITags, []string{"runs"}).
			Param(ws.PathParameter("run_id", "Run identifier").DataType("string")).
			Writes(store.RunRecord{}).
			Returns(200, "OK", store.RunRecord{}).
			Returns(404, "Run Not Found", middleware.ErrorResponse{}).
			Returns(503, "Store Not Configured", middleware.ErrorResponse{}))

	container.Add(ws)
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer
}

// NewServer builds the HTTP server: API routes, request filters, /metrics,
// /apidocs.json and CORS.
func NewServer(cfg ServerConfig, handler *Handler, logger *zerolog.Logger) *http.Server {
	container := restful.NewContainer()
	container.Filter(middleware.Logger(logger))
	container.Filter(middleware.RecoverPanic(logger))

	RegisterRoutes(container, handler)

	if cfg.Gatherer != nil {
		container.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	openAPIConfig := restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       "/apidocs.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}
	container.Add(restfulspec.NewOpenAPIService(openAPIConfig))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	})

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           c.Handler(container),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "RAG Evaluation API",
			Description: "Scores retrieval-augmented generation output and checks it against quality thresholds",
			Version:     "1.0.0",
		},
	}
}
