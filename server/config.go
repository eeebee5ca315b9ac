package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the server's runtime settings. Values come from flags,
// with env vars (optionally from a .env file) as fallbacks.
type Config struct {
	Addr      string
	ClientDir string
}

// LoadConfig reads the optional .env file and environment overrides
func LoadConfig() Config {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env")
	}
	return Config{
		Addr:      envOr("DONTFALL_ADDR", ":8080"),
		ClientDir: envOr("DONTFALL_CLIENT_DIR", "../client"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
