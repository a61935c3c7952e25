package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hrtriage/internal/incident"
	"hrtriage/internal/mqtt"
	"hrtriage/internal/stream"
)

var (
	watchBroker    string
	watchTopic     string
	watchOutTopic  string
	watchHTTP      string
	watchThreshold float64
	watchGap       float64
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a live MQTT heart-rate feed and publish incident events",
	Long: `Subscribes to a heart-rate sample topic and runs the incident rules in real
time. Open and close events are published to the out topic with store-and-
forward delivery; a status page and Prometheus metrics are served over HTTP.`,
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchBroker, "broker", "", "MQTT broker URL (default: MQTT_BROKER_URL)")
	f.StringVar(&watchTopic, "topic", "", "sample topic to subscribe to (default: MQTT_TOPIC)")
	f.StringVar(&watchOutTopic, "out-topic", mqtt.DefaultEventTopic, "topic incident events are published to")
	f.StringVar(&watchHTTP, "http", "", "status server listen address (default: WATCH_LISTEN_ADDR)")
	f.Float64Var(&watchThreshold, "threshold", 0, "heart-rate threshold in bpm (default: THRESHOLD_BPM or 140)")
	f.Float64Var(&watchGap, "gap-seconds", 0, "max quiet gap in seconds before an incident closes (default: MAX_GAP_SECONDS or 120)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	broker := watchBroker
	if broker == "" {
		broker = cfg.MQTT.BrokerURL
	}
	if broker == "" {
		return fmt.Errorf("no MQTT broker configured: pass --broker or set MQTT_BROKER_URL")
	}
	sampleTopic := watchTopic
	if sampleTopic == "" {
		sampleTopic = cfg.MQTT.Topic
	}
	httpAddr := watchHTTP
	if httpAddr == "" {
		httpAddr = cfg.WatchListenAddr
	}

	groupOpts := incident.GroupOptions{
		ThresholdBPM:  cfg.Analysis.ThresholdBPM,
		MaxGapSeconds: cfg.Analysis.MaxGapSeconds,
	}
	if watchThreshold > 0 {
		groupOpts.ThresholdBPM = watchThreshold
	}
	if watchGap > 0 {
		groupOpts.MaxGapSeconds = watchGap
	}

	// A random client-ID suffix lets several watchers share one broker
	// without kicking each other's session.
	clientID := fmt.Sprintf("%s-%s", cfg.MQTT.ClientID, uuid.NewString()[:8])
	client, err := mqtt.NewClient(broker, clientID)
	if err != nil {
		return err
	}
	defer client.Close()

	journal, err := stream.OpenJournal(filepath.Join(cfg.CacheDir, "watch-events.jsonl"))
	if err != nil {
		return err
	}

	tracker := stream.NewTracker(time.Now().UTC(), stream.Config{
		Broker:        broker,
		SampleTopic:   sampleTopic,
		EventTopic:    watchOutTopic,
		ThresholdBPM:  groupOpts.ThresholdBPM,
		MaxGapSeconds: groupOpts.MaxGapSeconds,
		HTTPAddr:      httpAddr,
	})

	statusSrv := stream.NewServer(httpAddr, tracker)
	go func() {
		log.Info().Str("addr", httpAddr).Msg("Status server listening")
		if err := statusSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Status server failed")
		}
	}()

	monitor := stream.NewMonitor(stream.MonitorOptions{
		Consumer:    client,
		Publisher:   client,
		Status:      client,
		Detector:    stream.NewDetector(groupOpts),
		Journal:     journal,
		Tracker:     tracker,
		SampleTopic: sampleTopic,
		EventTopic:  watchOutTopic,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- monitor.Run(ctx) }()

	var runErr error
	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Watch shutdown requested")
		cancel()
		runErr = <-errCh
	case runErr = <-errCh:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := statusSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Status server shutdown error")
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	log.Info().Msg("Watch stopped")
	return nil
}
