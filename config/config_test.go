package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service - http",
			input:    "http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:     "single service - file-mover",
			input:    "file-mover",
			expected: map[ServiceMode]bool{ServiceModeFileMover: true},
		},
		{
			name:  "all services",
			input: "http,merge-worker,file-mover",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:        true,
				ServiceModeMergeWorker: true,
				ServiceModeFileMover:   true,
			},
		},
		{
			name:  "services with spaces",
			input: " http , merge-worker ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:        true,
				ServiceModeMergeWorker: true,
			},
		},
		{
			name:     "duplicate services",
			input:    "http,http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "only spaces and commas",
			input:       " , , ",
			expectError: true,
		},
		{
			name:        "invalid service name",
			input:       "http,scheduler",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if len(result) != len(tt.expected) {
				t.Errorf("expected %d services, got %d", len(tt.expected), len(result))
				return
			}
			for service, expected := range tt.expected {
				if result[service] != expected {
					t.Errorf("expected service %s to be %v, got %v", service, expected, result[service])
				}
			}
		})
	}
}

func TestValidateServiceModes(t *testing.T) {
	tests := []struct {
		name    string
		modes   []ServiceMode
		wantErr bool
	}{
		{name: "http alone", modes: []ServiceMode{ServiceModeHTTP}},
		{name: "file mover alone", modes: []ServiceMode{ServiceModeFileMover}},
		{name: "merge worker with http", modes: []ServiceMode{ServiceModeHTTP, ServiceModeMergeWorker}},
		{name: "merge worker without http", modes: []ServiceMode{ServiceModeMergeWorker}, wantErr: true},
		{
			name:    "merge worker with file mover only",
			modes:   []ServiceMode{ServiceModeMergeWorker, ServiceModeFileMover},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[ServiceMode]bool, len(tt.modes))
			for _, m := range tt.modes {
				enabled[m] = true
			}
			err := ValidateServiceModes(enabled)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateServiceModes(%v) error = %v, wantErr %v", tt.modes, err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	tests := []struct {
		name        string
		services    string
		expectHTTP  bool
		expectMerge bool
		expectMover bool
	}{
		{name: "default set", services: "http,merge-worker,file-mover", expectHTTP: true, expectMerge: true, expectMover: true},
		{name: "http only", services: "http", expectHTTP: true},
		{name: "file mover only", services: "file-mover", expectMover: true},
		{name: "invalid configuration", services: "bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Services: tt.services}
			if cfg.IsHTTPServerEnabled() != tt.expectHTTP {
				t.Errorf("IsHTTPServerEnabled(): expected %v", tt.expectHTTP)
			}
			if cfg.IsMergeWorkerEnabled() != tt.expectMerge {
				t.Errorf("IsMergeWorkerEnabled(): expected %v", tt.expectMerge)
			}
			if cfg.IsFileMoverEnabled() != tt.expectMover {
				t.Errorf("IsFileMoverEnabled(): expected %v", tt.expectMover)
			}
		})
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Services != "http,merge-worker,file-mover" {
		t.Errorf("Services = %q", cfg.Services)
	}
	if cfg.Merge.MaxDocuments != 200 {
		t.Errorf("Merge.MaxDocuments = %d, want 200", cfg.Merge.MaxDocuments)
	}
	if cfg.Merge.MaxTotalBytes != 500<<20 {
		t.Errorf("Merge.MaxTotalBytes = %d, want %d", cfg.Merge.MaxTotalBytes, int64(500<<20))
	}
	if cfg.Merge.YieldEvery != 10 || cfg.Merge.QueueSize != 16 {
		t.Errorf("Merge = %+v", cfg.Merge)
	}
	if cfg.Realtime.HeartbeatInterval != 30*time.Second {
		t.Errorf("Realtime.HeartbeatInterval = %v", cfg.Realtime.HeartbeatInterval)
	}
	if cfg.Realtime.SendBuffer != 64 {
		t.Errorf("Realtime.SendBuffer = %d", cfg.Realtime.SendBuffer)
	}
	if cfg.Listener.ReconnectDelay != 5*time.Second {
		t.Errorf("Listener.ReconnectDelay = %v", cfg.Listener.ReconnectDelay)
	}
	if cfg.HTTP.WriteTimeout != 0 {
		t.Errorf("HTTP.WriteTimeout = %v, want disabled", cfg.HTTP.WriteTimeout)
	}
	if cfg.Redis.Enabled {
		t.Errorf("Redis should be disabled by default")
	}
	if cfg.Observability.Metrics.Prefix != "docqueue" {
		t.Errorf("Metrics.Prefix = %q", cfg.Observability.Metrics.Prefix)
	}
}

func TestAppConfig_ParseEnv(t *testing.T) {
	t.Setenv("FILES_ROOT", "/srv/docs/")
	t.Setenv("MERGE_OUTPUT_DIR", "/srv/docs/batch")
	t.Setenv("MERGE_QUEUE_SIZE", "4")
	t.Setenv("HTTP_CORS_ORIGIN", "https://clinic.example/")
	t.Setenv("WS_SEND_BUFFER", "8")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("DB_NAME", "queue_test")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Files.Root != "/srv/docs" {
		t.Errorf("Files.Root = %q", cfg.Files.Root)
	}
	if cfg.Merge.OutputDir != "/srv/docs/batch" || cfg.Merge.QueueSize != 4 {
		t.Errorf("Merge = %+v", cfg.Merge)
	}
	if cfg.HTTP.CORSOrigin != "https://clinic.example" {
		t.Errorf("HTTP.CORSOrigin = %q", cfg.HTTP.CORSOrigin)
	}
	if cfg.Realtime.SendBuffer != 8 {
		t.Errorf("Realtime.SendBuffer = %d", cfg.Realtime.SendBuffer)
	}
	if !cfg.Redis.Enabled || cfg.Postgres.Name != "queue_test" {
		t.Errorf("Redis.Enabled = %v, Postgres.Name = %q", cfg.Redis.Enabled, cfg.Postgres.Name)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestAppConfig_Validate(t *testing.T) {
	base := func() AppConfig {
		return AppConfig{
			Services: "http,merge-worker,file-mover",
			Files:    FilesConfig{Root: "/srv/docs"},
			Merge:    MergeConfig{OutputDir: "/srv/docs/batch"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*AppConfig) {}},
		{name: "missing files root", mutate: func(c *AppConfig) { c.Files.Root = "" }, wantErr: true},
		{name: "merge worker without output dir", mutate: func(c *AppConfig) { c.Merge.OutputDir = "" }, wantErr: true},
		{
			name:   "http only without output dir",
			mutate: func(c *AppConfig) { c.Services = "http"; c.Merge.OutputDir = "" },
		},
		{name: "output dir outside root", mutate: func(c *AppConfig) { c.Merge.OutputDir = "/srv/other" }, wantErr: true},
		{name: "output dir sibling prefix", mutate: func(c *AppConfig) { c.Merge.OutputDir = "/srv/docs2/batch" }, wantErr: true},
		{name: "merge worker alone", mutate: func(c *AppConfig) { c.Services = "merge-worker" }, wantErr: true},
		{name: "unknown service", mutate: func(c *AppConfig) { c.Services = "http,reaper" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitize_ClampsValues(t *testing.T) {
	cfg := AppConfig{
		LogLevel: " DEBUG ",
		Merge:    MergeConfig{MaxDocuments: -1, QueueSize: 0, YieldEvery: 0, MaxTotalBytes: 0},
		Realtime: RealtimeConfig{HeartbeatInterval: time.Millisecond, SendBuffer: 0},
		Listener: ListenerConfig{ReconnectDelay: 0, WaitWindow: 0},
		HTTP:     HTTPConfig{Addr: " ", WriteTimeout: -time.Second, MaxConnections: -5},
		Observability: ObservabilityConfig{Metrics: ObservabilityMetricsConfig{
			Enabled:       true,
			StatsdAddress: "  ",
		}},
	}
	cfg.Sanitize()

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Merge.MaxDocuments != 1 || cfg.Merge.QueueSize != 1 || cfg.Merge.YieldEvery != 1 || cfg.Merge.MaxTotalBytes != 1 {
		t.Errorf("Merge = %+v", cfg.Merge)
	}
	if cfg.Realtime.HeartbeatInterval != time.Second || cfg.Realtime.SendBuffer != 1 {
		t.Errorf("Realtime = %+v", cfg.Realtime)
	}
	if cfg.Listener.ReconnectDelay != 100*time.Millisecond || cfg.Listener.WaitWindow != time.Second {
		t.Errorf("Listener = %+v", cfg.Listener)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.HTTP.WriteTimeout != 0 || cfg.HTTP.MaxConnections != 0 {
		t.Errorf("HTTP = %+v", cfg.HTTP)
	}
	if cfg.Observability.Metrics.IsEnabled() {
		t.Errorf("metrics without an address must be disabled")
	}
}

func TestDBConfig_Sanitize(t *testing.T) {
	db := DBConfig{MaxOpenConns: 0, MaxIdleConns: 9, ConnMaxLifetime: -time.Minute, ConnectTimeout: 0}
	db.Sanitize()
	if db.MaxOpenConns != 1 || db.MaxIdleConns != 1 {
		t.Errorf("pool = open %d idle %d, want 1/1", db.MaxOpenConns, db.MaxIdleConns)
	}
	if db.ConnMaxLifetime != 0 || db.ConnectTimeout != 5*time.Second {
		t.Errorf("lifetimes = %v / %v", db.ConnMaxLifetime, db.ConnectTimeout)
	}

	redis := RedisConfig{URI: " cache:6379 ", SentinelNodes: []string{" s1:26379", "", "  "}, DB: -1}
	redis.Sanitize()
	if redis.URI != "cache:6379" || len(redis.SentinelNodes) != 1 || redis.SentinelNodes[0] != "s1:26379" || redis.DB != 0 {
		t.Errorf("redis = %+v", redis)
	}
}
