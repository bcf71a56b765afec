package app

import (
	"fmt"
	"log"
	"os"
	"strings"
)

type Config struct {
	Env      string
	TCPAddr  string // relay listener, e.g. ":19792"
	HTTPAddr string // status page + metrics + websocket transport

	CORSAllow []string
	RateMax   int // per-IP events per minute (HTTP requests, TCP accepts)
}

func LoadConfig() Config {
	cfg := Config{
		Env:      getEnv("APP_ENV", "dev"),
		TCPAddr:  getEnv("TCP_ADDR", ":19792"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
	}
	cfg.RateMax = getEnvInt("RATE_MAX", 30)
	// CORS allowlist
	allow := getEnv("CORS_ALLOW", "http://localhost:4200")
	cfg.CORSAllow = splitCSV(allow)
	log.Printf("config: %+v\n", cfg)
	return cfg
}

// getEnv returns the env var or a default
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getEnvInt parses an int env var with a fallback
func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		var i int
		_, _ = fmt.Sscanf(v, "%d", &i)
		if i > 0 {
			return i
		}
	}
	return def
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
