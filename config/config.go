package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// ArXiv-Discovery
	ArxivBaseURL    string `envconfig:"ARXIV_BASE_URL" default:"https://export.arxiv.org/api/query"`
	ArxivPDFBaseURL string `envconfig:"ARXIV_PDF_BASE_URL" default:"https://arxiv.org/pdf"`
	ArxivQuery      string `envconfig:"ARXIV_QUERY" default:"all:\"gaussian splatting\""`
	ArxivMaxResults int    `envconfig:"ARXIV_MAX_RESULTS" default:"25"`

	// Das Seminal-Paper, um das der Graph aufgebaut wird
	SeminalArxivID string `envconfig:"SEMINAL_ARXIV_ID" default:"2308.04079"`

	// Semantic Scholar für zitierende Paper
	S2BaseURL         string `envconfig:"S2_BASE_URL" default:"https://api.semanticscholar.org/graph/v1"`
	S2APIKey          string `envconfig:"S2_API_KEY"`
	S2MaxCitingPapers int    `envconfig:"S2_MAX_CITING_PAPERS" default:"70"`

	// Retry-Budget für alle externen HTTP-Aufrufe
	RetryMaxAttempts int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"5"`
	RetryBackoffBase time.Duration `envconfig:"RETRY_BACKOFF_BASE" default:"1s"`
	FetchTimeout     time.Duration `envconfig:"FETCH_TIMEOUT" default:"60s"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 0 * * *"`

	// S3-Ablage für PDF-Artefakte
	ArtifactsS3Key    string `envconfig:"ARTIFACTS_S3_KEY" required:"true"`
	ArtifactsS3Secret string `envconfig:"ARTIFACTS_S3_SECRET" required:"true"`
	ArtifactsS3URL    string `envconfig:"ARTIFACTS_S3_URL" required:"true"`
	ArtifactsS3Region string `envconfig:"ARTIFACTS_S3_REGION" required:"true"`
	ArtifactsS3Bucket string `envconfig:"ARTIFACTS_S3_BUCKET" required:"true"`

	// Provider-Konfiguration
	EnabledProviders string `envconfig:"ENABLED_PROVIDERS" default:"arxiv,semanticscholar"`

	// Obergrenze pro Lauf, 0 = unbegrenzt
	IngestMaxPapers int `envconfig:"INGEST_MAX_PAPERS" default:"0"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
