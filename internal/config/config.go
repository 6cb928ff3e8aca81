package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	InstanceID  string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// NATS (fps readout, notifications and remote control)
	// Default: nats://localhost:4222
	// Docker: nats://nats:4222
	NatsEnabled        bool
	NatsURL            string
	NatsSubjectPrefix  string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsDrainTimeout   time.Duration // For graceful shutdown

	// Camera
	CameraDevice       string // Numeric index or stream URL
	CameraWidth        int
	CameraHeight       int
	CameraTargetFPS    int
	CameraReadyTimeout time.Duration

	// Detector
	Model            string
	Backend          string
	InitialQuery     string // e.g. "model=yunet&backend=opencv-cpu"
	ModelCatalogPath string
	MaxFaces         int
	RefineLandmarks  bool
	WarmupFrames     int // Blank inferences after building a detector on a GPU backend

	// Remote detector (gRPC)
	RemoteDetectorURL     string
	RemoteDetectorTimeout time.Duration

	// Frame loop
	RefreshRate   int           // Ticks per second, mirrors the display refresh rate
	StatsInterval time.Duration // FPS report cadence
	StatsMaxFPS   float64       // Reported FPS ceiling

	// Overlay
	ShowBoundingBox bool
	TriangulateMesh bool
	ShowFPS         bool

	// Stream Output
	MJPEGQuality int // JPEG quality (1-100)

	// Notifications
	NotificationHistory int
	EventBuffer         int

	// Metrics
	ProcessMetricsInterval time.Duration

	// Swagger Configuration
	SwaggerHost string

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		InstanceID:  getEnv("INSTANCE_ID", "facelive-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// NATS
		NatsEnabled:        getEnvBool("NATS_ENABLED", true),
		NatsURL:            getNatsURL(),
		NatsSubjectPrefix:  getEnv("NATS_SUBJECT_PREFIX", "facelive"),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDrainTimeout:   getEnvDuration("NATS_DRAIN_TIMEOUT", 5*time.Second),

		// Camera
		CameraDevice:       getEnv("CAMERA_DEVICE", "0"),
		CameraWidth:        getEnvInt("CAMERA_WIDTH", 640),
		CameraHeight:       getEnvInt("CAMERA_HEIGHT", 480),
		CameraTargetFPS:    getEnvInt("CAMERA_TARGET_FPS", 60),
		CameraReadyTimeout: getEnvDuration("CAMERA_READY_TIMEOUT", 5*time.Second),

		// Detector
		Model:            getEnv("MODEL", "yunet"),
		Backend:          getEnv("BACKEND", "opencv-cpu"),
		InitialQuery:     strings.TrimPrefix(getEnv("INITIAL_QUERY", ""), "?"),
		ModelCatalogPath: getEnv("MODEL_CATALOG", "models.yaml"),
		MaxFaces:         getEnvInt("MAX_FACES", 1),
		RefineLandmarks:  getEnvBool("REFINE_LANDMARKS", true),
		WarmupFrames:     getEnvInt("WARMUP_FRAMES", 3),

		// Remote detector
		RemoteDetectorURL:     getEnv("REMOTE_DETECTOR_URL", "localhost:50052"),
		RemoteDetectorTimeout: getEnvDuration("REMOTE_DETECTOR_TIMEOUT", 2*time.Second),

		// Frame loop
		RefreshRate:   getEnvInt("REFRESH_RATE", 60),
		StatsInterval: getEnvDuration("STATS_INTERVAL", time.Second),
		StatsMaxFPS:   getEnvFloat("STATS_MAX_FPS", 120),

		// Overlay
		ShowBoundingBox: getEnvBool("SHOW_BOUNDING_BOX", true),
		TriangulateMesh: getEnvBool("TRIANGULATE_MESH", true),
		ShowFPS:         getEnvBool("SHOW_FPS", true),

		// Stream Output
		MJPEGQuality: getEnvInt("MJPEG_QUALITY", 75),

		// Notifications
		NotificationHistory: getEnvInt("NOTIFICATION_HISTORY", 50),
		EventBuffer:         getEnvInt("EVENT_BUFFER", 32),

		// Metrics
		ProcessMetricsInterval: getEnvDuration("PROCESS_METRICS_INTERVAL", 5*time.Second),

		// Swagger Configuration
		SwaggerHost: getEnv("SWAGGER_HOST", "localhost:8000"),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// isRunningInDocker checks for Docker-specific environment indicators
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}
	if isRunningInDocker() {
		return "nats://nats:4222"
	}
	return "nats://localhost:4222"
}
