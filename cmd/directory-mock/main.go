package main

import (
	"flag"
	"net/http"

	"go.uber.org/zap"

	"github.com/Clark-Hu/skillswap-ratings/internal/directory"
)

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "db/fixtures/dev.json", "path to fixtures file")
		apiKey  = flag.String("api-key", "", "require this X-API-Key when set")
		logReqs = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	fixtures, err := directory.LoadFixtures(*data)
	if err != nil {
		logger.Fatal("load fixtures", zap.Error(err))
	}

	handler := directory.NewFixtureHandler(fixtures, *apiKey)
	if *logReqs {
		next := handler
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Info("request", zap.String("method", r.Method), zap.String("uri", r.URL.RequestURI()))
			next.ServeHTTP(w, r)
		})
	}

	addr := ":" + *port
	logger.Info("mock directory listening",
		zap.String("addr", addr),
		zap.Int("users", len(fixtures.Users)),
		zap.Int("listings", len(fixtures.Listings)),
		zap.Int("sessions", len(fixtures.Sessions)),
	)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
