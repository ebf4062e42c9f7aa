package initializers

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix starts every environment override. A double underscore separates
// sections: DOCINTEL_DATABASE__DSN sets database.dsn.
const EnvPrefix = "DOCINTEL_"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Storage  StorageConfig  `koanf:"storage"`
	Queue    QueueConfig    `koanf:"queue"`
	Search   SearchConfig   `koanf:"search"`
	Worker   WorkerConfig   `koanf:"worker"`
	Cache    CacheConfig    `koanf:"cache"`
	QA       QAConfig       `koanf:"qa"`
	Events   EventsConfig   `koanf:"events"`
}

type ServerConfig struct {
	Addr        string        `koanf:"addr"`
	CORSOrigins []string      `koanf:"cors_origins"`
	RateLimit   int           `koanf:"rate_limit"`
	StrictLimit int           `koanf:"strict_rate_limit"`
	RateWindow  time.Duration `koanf:"rate_window"`
	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	MigrationsDir   string        `koanf:"migrations_dir"`
}

// StorageConfig selects the blob store. Backend is s3, gcs, local or memory.
type StorageConfig struct {
	Backend   string `koanf:"backend"`
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	LocalDir  string `koanf:"local_dir"`
}

// QueueConfig selects the ingestion queue. Backend is postgres, kafka or memory.
type QueueConfig struct {
	Backend      string        `koanf:"backend"`
	Brokers      []string      `koanf:"brokers"`
	Topic        string        `koanf:"topic"`
	GroupID      string        `koanf:"group_id"`
	PollInterval time.Duration `koanf:"poll_interval"`
	Lease        time.Duration `koanf:"lease"`
	MaxAttempts  int           `koanf:"max_attempts"`
	Capacity     int           `koanf:"capacity"`
}

// SearchConfig selects the search index. Backend is elasticsearch or memory.
type SearchConfig struct {
	Backend   string   `koanf:"backend"`
	Addresses []string `koanf:"addresses"`
	Username  string   `koanf:"username"`
	Password  string   `koanf:"password"`
	Index     string   `koanf:"index"`
}

type WorkerConfig struct {
	Concurrency int `koanf:"concurrency"`
}

// CacheConfig sizes the document cache. Size zero disables it.
type CacheConfig struct {
	Size int           `koanf:"size"`
	TTL  time.Duration `koanf:"ttl"`
}

type QAConfig struct {
	Variant              string `koanf:"variant"`
	DefaultSnippetLength int    `koanf:"default_snippet_length"`
}

// EventsConfig forwards status transitions as CloudEvents when Target is set.
type EventsConfig struct {
	Target string `koanf:"target"`
	Source string `koanf:"source"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			RateLimit:       100,
			StrictLimit:     10,
			RateWindow:      time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			MigrationsDir:   "db/migrations",
		},
		Storage: StorageConfig{
			Backend:  "local",
			LocalDir: "data/blobs",
		},
		Queue: QueueConfig{
			Backend:      "postgres",
			Topic:        "document-processing",
			GroupID:      "docintel-worker",
			PollInterval: time.Second,
			Lease:        5 * time.Minute,
			MaxAttempts:  5,
			Capacity:     100,
		},
		Search: SearchConfig{
			Backend:   "elasticsearch",
			Addresses: []string{"http://localhost:9200"},
			Index:     "documents",
		},
		Worker: WorkerConfig{Concurrency: 4},
		Cache:  CacheConfig{Size: 1024, TTL: 5 * time.Minute},
		QA:     QAConfig{Variant: "index", DefaultSnippetLength: 200},
		Events: EventsConfig{Source: "/docintel"},
	}
}

// LoadConfig reads .env, then overlays the YAML file at path (when it
// exists) and DOCINTEL_ environment variables on the defaults.
func LoadConfig(path string) (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps DOCINTEL_QUEUE__POLL_INTERVAL to queue.poll_interval.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

var (
	validStorage  = map[string]bool{"s3": true, "gcs": true, "local": true, "memory": true}
	validQueues   = map[string]bool{"postgres": true, "kafka": true, "memory": true}
	validSearch   = map[string]bool{"elasticsearch": true, "memory": true}
	validVariants = map[string]bool{"index": true, "scan": true}
)

// Validate checks enumerations and the fields each selected backend needs.
func (c *Config) Validate() error {
	if !validStorage[c.Storage.Backend] {
		return fmt.Errorf("invalid storage.backend %q: must be one of s3, gcs, local, memory", c.Storage.Backend)
	}
	switch c.Storage.Backend {
	case "s3":
		if c.Storage.Bucket == "" || c.Storage.Region == "" {
			return fmt.Errorf("storage.bucket and storage.region are required for s3")
		}
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for gcs")
		}
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir is required for local storage")
		}
	}

	if !validQueues[c.Queue.Backend] {
		return fmt.Errorf("invalid queue.backend %q: must be one of postgres, kafka, memory", c.Queue.Backend)
	}
	if c.Queue.Backend == "kafka" && (len(c.Queue.Brokers) == 0 || c.Queue.Topic == "" || c.Queue.GroupID == "") {
		return fmt.Errorf("queue.brokers, queue.topic and queue.group_id are required for kafka")
	}
	if c.Queue.MaxAttempts < 0 {
		return fmt.Errorf("queue.max_attempts must be non-negative")
	}

	if !validSearch[c.Search.Backend] {
		return fmt.Errorf("invalid search.backend %q: must be one of elasticsearch, memory", c.Search.Backend)
	}
	if c.Search.Backend == "elasticsearch" && len(c.Search.Addresses) == 0 {
		return fmt.Errorf("search.addresses is required for elasticsearch")
	}

	if !validVariants[c.QA.Variant] {
		return fmt.Errorf("invalid qa.variant %q: must be one of index, scan", c.QA.Variant)
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be positive")
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size must be non-negative")
	}
	return nil
}
