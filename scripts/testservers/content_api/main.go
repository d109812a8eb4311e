// Command content_api is a local stand-in for the content service surge is
// pointed at: GET / answers with the deployment's version and colour, so runs
// against blue/green or canary setups can be reproduced on one machine.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type contentInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Color   string `json:"color"`
	Message string `json:"message"`
}

type server struct {
	version  string
	color    string
	failRate float64
	latency  time.Duration
	logger   *log.Logger
}

func main() {
	// A .env in the working directory may set APP_VERSION and APP_COLOR.
	_ = godotenv.Load()

	port := flag.Int("port", 8000, "Listening port")
	version := flag.String("version", envOr("v1", "APP_VERSION", "VERSION"), "Version reported by /")
	color := flag.String("color", envOr("blue", "APP_COLOR"), "Colour reported by /")
	failRate := flag.Float64("fail-rate", 0, "Fraction of / requests answered with 500")
	latency := flag.Duration("latency", 0, "Artificial delay added to every / request")
	flag.Parse()

	if *port <= 0 {
		log.Fatalf("port must be > 0")
	}
	if *failRate < 0 || *failRate > 1 {
		log.Fatalf("fail-rate must be between 0 and 1")
	}

	s := &server{
		version:  *version,
		color:    *color,
		failRate: *failRate,
		latency:  *latency,
		logger:   log.New(os.Stdout, "", log.LstdFlags),
	}

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("content API %s (%s) listening on %s", s.version, s.color, addr)
	log.Fatal(http.ListenAndServe(addr, s.routes()))
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.logger.Printf("request from %s to version %s color %s", r.RemoteAddr, s.version, s.color)

	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-r.Context().Done():
			return
		}
	}
	if s.failRate > 0 && rand.Float64() < s.failRate {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "injected failure"})
		return
	}

	respondJSON(w, http.StatusOK, contentInfo{
		Service: "content-api",
		Version: s.version,
		Color:   s.color,
		Message: fmt.Sprintf("Hello from %s version %s", s.color, s.version),
	})
}

func envOr(fallback string, keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return fallback
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}
