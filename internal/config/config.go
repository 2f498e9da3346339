package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	CameraEndpoint  string
	PreviewEndpoint string
	PoseEndpoint    string
	PollTimeout     time.Duration
	JPEGQuality     int
	DrainBacklog    bool
	MonitorPort     int
	Debug           bool
	DebugRate       float64
	DebugWidth      int
	DebugHeight     int
	RawLogEnabled   bool
	RawLogDir       string
}

// Defaults returns the baseline configuration, with overrides taken
// from the environment (a .env file is honoured when present). Flags in
// main take precedence over both.
func Defaults() AppConfig {
	_ = godotenv.Load()

	return AppConfig{
		CameraEndpoint:  envString("POSE_RELAY_CAMERA", "tcp://127.0.0.1:6000"),
		PreviewEndpoint: envString("POSE_RELAY_PREVIEW", "tcp://*:6001"),
		PoseEndpoint:    envString("POSE_RELAY_POSE", "tcp://*:6002"),
		PollTimeout:     10 * time.Millisecond,
		JPEGQuality:     envInt("POSE_RELAY_JPEG_QUALITY", 70),
		DrainBacklog:    true,
		MonitorPort:     envInt("POSE_RELAY_MONITOR_PORT", 0),
		DebugRate:       15.0,
		DebugWidth:      640,
		DebugHeight:     480,
		RawLogDir:       "rawlog",
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
