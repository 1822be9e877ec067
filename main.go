package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"paper-graph/config"
	"paper-graph/models"
	"paper-graph/providers"
	"paper-graph/providers/arxiv"
	"paper-graph/providers/semanticscholar"
	"paper-graph/services"
	"paper-graph/storage"
	"paper-graph/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	papersIngestedCounter prometheus.Counter
	stageFailuresCounter  *prometheus.CounterVec
)

func init() {
	papersIngestedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "papers_ingested_total",
			Help: "Total number of papers ingested with full text.",
		},
	)
	stageFailuresCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_stage_failures_total",
			Help: "Total number of per-paper pipeline failures by kind.",
		},
		[]string{"kind"},
	)
	prometheus.MustRegister(papersIngestedCounter, stageFailuresCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Store
	st, err := store.Open(cfg.DSN(), logging)
	if err != nil {
		logging.Fatal("Failed to connect to knowledge graph database", zap.Error(err))
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := st.Ping(pingCtx); err != nil {
		logging.Fatal("Knowledge graph database not reachable", zap.Error(err))
	}
	logging.Info("Successfully connected to knowledge graph database.")

	logging.Info("Running database auto-migration...")
	if err := st.Migrate(); err != nil {
		logging.Fatal("Database migration failed", zap.Error(err))
	}

	// Setup Providers
	arxivFetcher := arxiv.NewFetcher(cfg, logging)
	enabledProviderNames := strings.Split(cfg.EnabledProviders, ",")
	var enabledProviders []providers.Provider
	for _, name := range enabledProviderNames {
		switch strings.TrimSpace(name) {
		case "arxiv":
			enabledProviders = append(enabledProviders, arxivFetcher)
		case "semanticscholar":
			enabledProviders = append(enabledProviders, semanticscholar.NewFetcher(cfg, logging))
		default:
			logging.Warn("Unknown provider in config", zap.String("provider_name", name))
		}
	}
	if len(enabledProviders) == 0 {
		logging.Fatal("No valid providers enabled. Check ENABLED_PROVIDERS in .env")
	}
	logging.Info("Active providers loaded", zap.Strings("providers", enabledProviderNames))

	// Setup Services
	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}
	artifacts := storage.NewArtifactStore(s3Client, cfg)
	extractor := services.NewPDFExtractor(logging)
	ingestService := services.NewIngestService(cfg, st, logging, enabledProviders, arxivFetcher, extractor, artifacts)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Setup Routes
	setupPaperRoutes(router, st, logging)
	setupConceptRoutes(router, st, logging)
	setupRelationshipRoutes(router, st, logging)
	setupStatsRoutes(router, st, logging)
	setupIngestRoutes(router, ingestService)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled ingestion...")
		summary, err := ingestService.Run(context.Background())
		if err != nil {
			logging.Error("Scheduled ingestion failed", zap.Error(err))
			return
		}
		recordSummary(summary)
		logging.Info("Scheduled ingestion completed",
			zap.Int("successful", summary.Successful), zap.Int("skipped", summary.Skipped))
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func recordSummary(summary *services.Summary) {
	papersIngestedCounter.Add(float64(summary.Successful))
	stageFailuresCounter.WithLabelValues("artifact").Add(float64(summary.FailedArtifact))
	stageFailuresCounter.WithLabelValues("persist").Add(float64(summary.FailedPersist))
}

// statusForError übersetzt Store-Fehler in HTTP-Status-Codes.
func statusForError(err error) int {
	if store.IsValidation(err) {
		return http.StatusBadRequest
	}
	if errors.Is(err, store.ErrUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func setupPaperRoutes(router *gin.Engine, st *store.Store, log *zap.Logger) {
	rg := router.Group("/papers")

	rg.GET("/", func(c *gin.Context) {
		papers, err := st.ListPapers(c.Request.Context())
		if err != nil {
			log.Error("Database query for all papers failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, papers)
	})

	rg.GET("/:arxivID", func(c *gin.Context) {
		paper, err := st.GetPaper(c.Request.Context(), c.Param("arxivID"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if paper == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
			return
		}
		c.JSON(http.StatusOK, paper)
	})

	rg.POST("/", func(c *gin.Context) {
		type PaperInput struct {
			ArxivID       string   `json:"arxiv_id"`
			Title         string   `json:"title"`
			Abstract      string   `json:"abstract"`
			Authors       []string `json:"authors"`
			PublishedDate string   `json:"published_date"`
			FullText      string   `json:"full_text"`
			IsSeminal     bool     `json:"is_seminal"`
		}
		var req PaperInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		paper := models.Paper{
			ArxivID:   req.ArxivID,
			Title:     req.Title,
			Abstract:  req.Abstract,
			FullText:  req.FullText,
			IsSeminal: req.IsSeminal,
		}
		if err := paper.SetAuthors(req.Authors); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid authors"})
			return
		}
		if req.PublishedDate != "" {
			t, err := time.Parse("2006-01-02", req.PublishedDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid published_date, expected YYYY-MM-DD"})
				return
			}
			paper.PublishedDate = &t
		}

		id, err := st.UpsertPaper(c.Request.Context(), &paper)
		if err != nil {
			log.Error("Paper upsert failed", zap.String("arxiv_id", req.ArxivID), zap.Error(err))
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "arxiv_id": paper.ArxivID})
	})

	rg.DELETE("/:arxivID", func(c *gin.Context) {
		if err := st.DeletePaper(c.Request.Context(), c.Param("arxivID")); err != nil {
			log.Error("Paper delete failed", zap.String("arxiv_id", c.Param("arxivID")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	rg.GET("/:arxivID/relationships", func(c *gin.Context) {
		paper, err := st.GetPaper(c.Request.Context(), c.Param("arxivID"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if paper == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
			return
		}

		minConfidence := 0.0
		if raw := c.Query("min_confidence"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_confidence"})
				return
			}
			minConfidence = v
		}

		views, err := st.GetRelationshipsForPaper(c.Request.Context(), paper.ID, minConfidence)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, views)
	})

	rg.GET("/:arxivID/logs", func(c *gin.Context) {
		paper, err := st.GetPaper(c.Request.Context(), c.Param("arxivID"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if paper == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
			return
		}
		logs, err := st.GetExtractionLogs(c.Request.Context(), paper.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, logs)
	})

	// Verknüpft ein Konzept mit einem Paper; legt das Konzept bei Bedarf an.
	// Das ist die Schnittstelle, die eine externe Extraktions-Stufe aufruft.
	rg.POST("/:arxivID/concepts", func(c *gin.Context) {
		type LinkInput struct {
			Name           string   `json:"name"`
			ConceptType    string   `json:"concept_type"`
			Description    string   `json:"description"`
			RelevanceScore *float64 `json:"relevance_score"`
			Context        string   `json:"context"`
		}
		var req LinkInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		paper, err := st.GetPaper(c.Request.Context(), c.Param("arxivID"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if paper == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
			return
		}

		conceptID, err := st.UpsertConcept(c.Request.Context(), req.Name, req.ConceptType, req.Description)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		if err := st.LinkPaperConcept(c.Request.Context(), paper.ID, conceptID, req.RelevanceScore, req.Context); err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"paper_id": paper.ID, "concept_id": conceptID})
	})
}

func setupConceptRoutes(router *gin.Engine, st *store.Store, log *zap.Logger) {
	rg := router.Group("/concepts")

	rg.POST("/", func(c *gin.Context) {
		type ConceptInput struct {
			Name        string `json:"name"`
			ConceptType string `json:"concept_type"`
			Description string `json:"description"`
		}
		var req ConceptInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		id, err := st.UpsertConcept(c.Request.Context(), req.Name, req.ConceptType, req.Description)
		if err != nil {
			log.Error("Concept upsert failed", zap.String("name", req.Name), zap.Error(err))
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "name": req.Name})
	})

	rg.GET("/:name", func(c *gin.Context) {
		concept, err := st.GetConcept(c.Request.Context(), c.Param("name"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if concept == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "concept not found"})
			return
		}
		c.JSON(http.StatusOK, concept)
	})
}

func setupRelationshipRoutes(router *gin.Engine, st *store.Store, log *zap.Logger) {
	rg := router.Group("/relationships")

	rg.POST("/", func(c *gin.Context) {
		type RelationshipInput struct {
			SourceArxivID    string  `json:"source_arxiv_id"`
			TargetArxivID    string  `json:"target_arxiv_id"`
			RelationshipType string  `json:"relationship_type"`
			Explanation      string  `json:"explanation"`
			Confidence       float64 `json:"confidence"`
		}
		var req RelationshipInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		source, err := st.GetPaper(c.Request.Context(), req.SourceArxivID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		target, err := st.GetPaper(c.Request.Context(), req.TargetArxivID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if source == nil || target == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "source or target paper not found"})
			return
		}

		id, err := st.UpsertRelationship(c.Request.Context(), source.ID, target.ID,
			req.RelationshipType, req.Explanation, req.Confidence)
		if err != nil {
			log.Error("Relationship upsert failed", zap.Error(err))
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	rg.PUT("/:id/validated", func(c *gin.Context) {
		relID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid relationship id"})
			return
		}
		type ValidatedInput struct {
			Validated bool `json:"validated"`
		}
		var req ValidatedInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := st.SetRelationshipValidated(c.Request.Context(), uint(relID), req.Validated); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func setupStatsRoutes(router *gin.Engine, st *store.Store, log *zap.Logger) {
	rg := router.Group("/stats")

	rg.GET("/", func(c *gin.Context) {
		topN := store.DefaultTopConcepts
		if raw := c.Query("top"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid top parameter"})
				return
			}
			topN = v
		}
		stats, err := st.Statistics(c.Request.Context(), topN)
		if err != nil {
			log.Error("Statistics query failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	rg.GET("/papers/concepts", func(c *gin.Context) {
		rows, err := st.PaperConceptSummaries(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	rg.GET("/concepts/coverage", func(c *gin.Context) {
		limit := store.DefaultTopConcepts
		if raw := c.Query("limit"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			limit = v
		}
		rows, err := st.TopConceptsByCoverage(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	rg.GET("/relationships", func(c *gin.Context) {
		rows, err := st.RelationshipTypeSummaries(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, rows)
	})
}

func setupIngestRoutes(router *gin.Engine, ingestService *services.IngestService) {
	rg := router.Group("/ingest")

	rg.POST("/run", func(c *gin.Context) {
		go func() {
			summary, err := ingestService.Run(context.Background())
			if err != nil {
				ingestService.Logger.Error("Async ingestion failed", zap.Error(err))
				return
			}
			recordSummary(summary)
			ingestService.Logger.Info("Async ingestion completed",
				zap.Int("total", summary.Total), zap.Int("successful", summary.Successful))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Ingestion run triggered."})
	})
}
