package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pose-relay-go/internal/config"
	"pose-relay-go/internal/monitor"
	"pose-relay-go/internal/output"
	"pose-relay-go/internal/pose"
	"pose-relay-go/internal/relay"
	"pose-relay-go/internal/simulator"
	"pose-relay-go/internal/transport"
	"pose-relay-go/internal/types"
)

func main() {
	defaults := config.Defaults()
	var (
		camera      = flag.String("camera", defaults.CameraEndpoint, "Camera frame endpoint (ZMQ SUB connect)")
		preview     = flag.String("preview", defaults.PreviewEndpoint, "Preview output endpoint (ZMQ PUB bind)")
		poseOut     = flag.String("pose", defaults.PoseEndpoint, "Pose output endpoint (ZMQ PUB bind)")
		pollTimeout = flag.Duration("poll-timeout", defaults.PollTimeout, "Inbound poll timeout")
		quality     = flag.Int("jpeg-quality", defaults.JPEGQuality, "Preview JPEG quality (0-100)")
		drain       = flag.Bool("drain-backlog", defaults.DrainBacklog, "Keep only the newest queued inbound frame per iteration")
		monitorPort = flag.Int("monitor-port", defaults.MonitorPort, "HTTP monitor port (0 disables)")
		debug       = flag.Bool("debug", false, "Run with the simulated camera and estimator")
		debugRate   = flag.Float64("debug-rate", defaults.DebugRate, "Simulated acquisition rate (frames/sec)")
		debugWidth  = flag.Int("debug-width", defaults.DebugWidth, "Simulated frame width")
		debugHeight = flag.Int("debug-height", defaults.DebugHeight, "Simulated frame height")
		rawLog      = flag.Bool("raw-log", false, "Record inbound frames to disk")
		rawLogDir   = flag.String("raw-log-dir", defaults.RawLogDir, "Directory for raw frame logs")
	)
	flag.Parse()

	cfg := defaults
	cfg.CameraEndpoint = *camera
	cfg.PreviewEndpoint = *preview
	cfg.PoseEndpoint = *poseOut
	cfg.PollTimeout = *pollTimeout
	cfg.JPEGQuality = *quality
	cfg.DrainBacklog = *drain
	cfg.MonitorPort = *monitorPort
	cfg.Debug = *debug
	cfg.DebugRate = *debugRate
	cfg.DebugWidth = *debugWidth
	cfg.DebugHeight = *debugHeight
	cfg.RawLogEnabled = *rawLog
	cfg.RawLogDir = *rawLogDir

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var source transport.FrameSource
	var estimator pose.Estimator
	if cfg.Debug {
		log.Printf("running with simulated camera (%dx%d at %.1f fps)", cfg.DebugWidth, cfg.DebugHeight, cfg.DebugRate)
		source = simulator.Stream(ctx, cfg.DebugWidth, cfg.DebugHeight, cfg.DebugRate)
		estimator = simulator.Estimator()
	} else {
		sub, err := transport.NewSubscriber(cfg.CameraEndpoint)
		if err != nil {
			log.Fatalf("camera subscription failed: %v", err)
		}
		source = sub
		// The model backend is external; without one attached the
		// relay still republishes every decoded frame as preview.
		estimator = pose.Disabled()
	}

	previewPub, err := transport.NewPublisher(cfg.PreviewEndpoint)
	if err != nil {
		_ = source.Close()
		log.Fatalf("preview publisher failed: %v", err)
	}
	posePub, err := transport.NewPublisher(cfg.PoseEndpoint)
	if err != nil {
		_ = source.Close()
		_ = previewPub.Close()
		log.Fatalf("pose publisher failed: %v", err)
	}

	opts := relay.Options{
		PollTimeout:  cfg.PollTimeout,
		JPEGQuality:  cfg.JPEGQuality,
		DrainBacklog: cfg.DrainBacklog,
	}

	if cfg.RawLogEnabled {
		writer, err := output.NewRawLogWriter(cfg.RawLogDir)
		if err != nil {
			log.Fatalf("raw log setup failed: %v", err)
		}
		defer func() {
			if err := writer.Close(); err != nil {
				log.Printf("raw log close failed: %v", err)
			}
		}()
		opts.OnInbound = func(msg types.RawMessage) {
			if err := writer.Record(msg); err != nil {
				log.Printf("raw log write failed: %v", err)
			}
		}
	}

	var rly *relay.Relay
	if cfg.MonitorPort > 0 {
		statusFn := func() map[string]any {
			if rly == nil {
				return nil
			}
			return rly.Metrics().Snapshot()
		}
		configFn := func() map[string]any {
			return map[string]any{
				"type":          "config",
				"camera":        cfg.CameraEndpoint,
				"preview":       cfg.PreviewEndpoint,
				"pose":          cfg.PoseEndpoint,
				"jpeg_quality":  cfg.JPEGQuality,
				"drain_backlog": cfg.DrainBacklog,
				"debug":         cfg.Debug,
			}
		}
		srv := monitor.New(cfg.MonitorPort, statusFn, configFn)
		opts.OnPreview = srv.UpdatePreview
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Printf("monitor stopped: %v", err)
			}
		}()
		log.Printf("monitor listening on http://localhost:%d", cfg.MonitorPort)
	}

	rly = relay.New(source, previewPub, posePub, estimator, opts)

	log.Printf("relaying %s -> %s (preview) / %s (pose)", cfg.CameraEndpoint, cfg.PreviewEndpoint, cfg.PoseEndpoint)
	runErr := rly.Run(ctx)

	// Channels close exactly once, in a fixed order, on every exit path.
	stop()
	closeErr := closeAll(source, previewPub, posePub)
	if runErr != nil {
		log.Fatalf("relay failed: %v", runErr)
	}
	if closeErr != nil {
		log.Fatalf("shutdown failed: %v", closeErr)
	}
	log.Println("shutdown complete")
}

func closeAll(source transport.FrameSource, preview, poseOut transport.FrameSink) error {
	var first error
	if err := source.Close(); err != nil && first == nil {
		first = err
	}
	if err := preview.Close(); err != nil && first == nil {
		first = err
	}
	if err := poseOut.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
