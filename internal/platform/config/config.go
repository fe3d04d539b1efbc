package config

import (
	"flag"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var portCmd = flag.Int("port", 3000, "HTTP server port")

type Config struct {
	ServerPort     int
	ZmqApiPort     int
	DataDirectory  string
	Engine         string
	DeploymentMode string
}

func LoadConfig() Config {
	godotenv.Load(".env")
	return Config{
		ServerPort:     *portCmd,
		ZmqApiPort:     envInt("ZMQ_API_PORT", 7100),
		DataDirectory:  envOr("DATA_DIRECTORY", "data"),
		Engine:         envOr("ENGINE", "bitcask"),
		DeploymentMode: os.Getenv("DEPLOYMENT_MODE"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
