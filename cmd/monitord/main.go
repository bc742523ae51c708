// Package main provides the entrypoint for the device-side monitor agent.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hibro315/smart-pm25-buddy-sub001/internal/alert"
	"github.com/hibro315/smart-pm25-buddy-sub001/internal/exposure"
	"github.com/hibro315/smart-pm25-buddy-sub001/internal/monitor"
	"github.com/hibro315/smart-pm25-buddy-sub001/internal/provider/airquality"
	"github.com/hibro315/smart-pm25-buddy-sub001/internal/provider/resilience"
	"github.com/hibro315/smart-pm25-buddy-sub001/internal/scoring"
	"github.com/hibro315/smart-pm25-buddy-sub001/internal/syncer"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// staticPositionSource serves a fixed home position from configuration.
// Devices with live GPS replace this with their platform source.
type staticPositionSource struct {
	pos monitor.Position
}

func (s staticPositionSource) Current(_ context.Context) (monitor.Position, error) {
	return s.pos, nil
}

// fileBehaviorSource reads the user's current behavior from a JSON file
// the companion app rewrites in place. A missing file means defaults.
type fileBehaviorSource struct {
	path string
}

func (s fileBehaviorSource) Current(_ context.Context) (scoring.BehavioralInput, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return scoring.BehavioralInput{ActivityLevel: scoring.ActivityResting, IsIndoor: true}, nil
		}
		return scoring.BehavioralInput{}, fmt.Errorf("read behavior file: %w", err)
	}

	var behavior scoring.BehavioralInput
	if err := json.Unmarshal(data, &behavior); err != nil {
		return scoring.BehavioralInput{}, fmt.Errorf("parse behavior file: %w", err)
	}
	return behavior, nil
}

func loadProfile(path string, log zerolog.Logger) scoring.RiskProfile {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("no risk profile, monitoring stays idle")
		return scoring.RiskProfile{}
	}

	var profile scoring.RiskProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		log.Error().Err(err).Str("path", path).Msg("malformed risk profile, monitoring stays idle")
		return scoring.RiskProfile{}
	}
	return profile
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func main() {
	const serviceName = "pm25buddy-monitord"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting monitor agent")

	port := getEnvOrDefault("APP_PORT", "8081")
	userID := getEnvOrDefault("USER_ID", "local-user")
	remoteURL := getEnvOrDefault("SYNC_REMOTE_URL", "http://localhost:8080")

	// Open the local exposure store
	dbPath := getEnvOrDefault("EXPOSURE_DB_PATH", "exposure.db")
	store, err := exposure.OpenSQLite(dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dbPath).Msg("failed to open exposure store")
	}
	defer store.Close()
	log.Info().Str("path", dbPath).Msg("exposure store opened")

	// Select the scoring strategy; a deployment uses exactly one scale.
	scale := scoring.Scale(getEnvOrDefault("PHRI_SCALE", string(scoring.Scale100)))
	strategy, err := scoring.NewStrategy(scale)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid PHRI_SCALE")
	}
	log.Info().Str("scale", string(scale)).Msg("scoring strategy selected")

	// Notifier: Pub/Sub when configured, otherwise log-only
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var notifier alert.Notifier
	if projectID := os.Getenv("PUBSUB_PROJECT_ID"); projectID != "" {
		pubsubNotifier, err := alert.NewPubSubNotifier(ctx, alert.PubSubConfig{
			ProjectID: projectID,
			Topic:     getEnvOrDefault("PUBSUB_TOPIC", "phri-alerts"),
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub notifier")
		}
		defer pubsubNotifier.Close()
		notifier = pubsubNotifier
		log.Info().Str("project", projectID).Msg("pubsub notifier initialized")
	} else {
		notifier = alert.NewLogNotifier(log)
	}

	// Reading source: live feed with cache and default fallbacks
	feed := airquality.NewClient(airquality.ClientConfig{
		BaseURL: getEnvOrDefault("AQI_FEED_URL", airquality.DefaultBaseURL),
		Token:   os.Getenv("AQI_FEED_TOKEN"),
	})
	readings := airquality.NewTieredSource(feed, log)

	positions := staticPositionSource{pos: monitor.Position{
		Lat:   getEnvFloat("MONITOR_LAT", 13.7563),
		Lon:   getEnvFloat("MONITOR_LON", 100.5018),
		Label: getEnvOrDefault("MONITOR_LABEL", "home"),
	}}
	behavior := fileBehaviorSource{path: getEnvOrDefault("BEHAVIOR_PATH", "behavior.json")}

	// Monitor loop
	mon := monitor.New(monitor.Deps{
		Store:    store,
		Strategy: strategy,
		Gate:     alert.NewGate(alert.Config{}),
		Notifier: notifier,

		Positions: positions,
		Readings:  readings,
		Behavior:  behavior,
	}, monitor.Config{}, log)

	mon.SetProfile(loadProfile(getEnvOrDefault("PROFILE_PATH", "profile.json"), log))
	mon.Enable()

	// Sync coordinator over the resilient uplink
	uplink := resilience.NewClient(resilience.DefaultClientConfig("sync-uplink"))
	remote := syncer.NewHTTPRemote(remoteURL, uplink)
	coordinator := syncer.NewCoordinator(store, remote, syncer.Config{UserID: userID}, log)

	go mon.Run(ctx)
	go coordinator.Run(ctx)

	// Connectivity probe: flip the coordinator online/offline, which also
	// kicks a sync pass on each offline-to-online transition.
	go func() {
		probe := &http.Client{Timeout: 5 * time.Second}
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		check := func() {
			resp, err := probe.Get(remoteURL + "/health")
			if err != nil {
				coordinator.SetOnline(false)
				return
			}
			_ = resp.Body.Close()
			coordinator.SetOnline(resp.StatusCode == http.StatusOK)
		}

		check()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()

	// Health endpoint
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		pending, err := coordinator.Pending(r.Context())
		if err != nil {
			pending = -1
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","version":%q,"state":%q,"pending_sync":%d}`,
			Version, mon.State(), pending)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down monitor agent")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("monitor agent stopped")
}
