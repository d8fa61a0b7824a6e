package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/getsentry/raven-go"
	"github.com/lorenzosaino/go-sysctl"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"justapengu.in/telemetry"
	"justapengu.in/telemetry/internal/catalog"
	"justapengu.in/telemetry/internal/feed"
	"justapengu.in/telemetry/internal/metrics"
	"justapengu.in/telemetry/internal/tail"
)

var (
	configPath string
	replayPath string
	reportPath string
	noDelays   bool
	record     bool
)

func init() {
	flag.StringVar(&configPath, "c", "./config.yml", "config path")
	flag.StringVar(&replayPath, "replay", "", "replay a capture file instead of listening")
	flag.StringVar(&reportPath, "report", "", "replay the packets attached to a crash report")
	flag.BoolVar(&noDelays, "no-delays", false, "replay without reproducing the recorded timing")
	flag.BoolVar(&record, "record", false, "start recording immediately")
	flag.Parse()
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	config, err := telemetry.ReadConfig(configPath)

	if errors.Is(err, os.ErrNotExist) {
		logger.Warnf("No config found at %s, using defaults", configPath)
		config = telemetry.DefaultConfig()
	} else if err != nil {
		logger.WithError(err).Fatalf("Could not read config at %s", configPath)
	}

	logger.SetLevel(config.Level())

	if config.SentryDSN != "" {
		if err := raven.SetDSN(config.SentryDSN); err != nil {
			logger.WithError(err).Error("Could not configure crash reporting")
		}
	}

	checkReceiveBuffer(logger)

	store, err := catalog.Open(config.Capture.CatalogPath)

	if err != nil {
		logger.WithError(err).Fatal("Could not open recordings catalog")
	}

	defer store.Close()

	m := metrics.New()
	service := telemetry.NewService(config, store, m, logger)
	feedHTTP := feed.NewHTTP(config.HTTP.Address, service, m.Handler(), logger)

	ctx, cfn := context.WithCancel(context.Background())
	defer cfn()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		<-c
		logger.Infof("Interrupted, shutting down")
		cfn()
	}()

	if record {
		if _, err := service.StartRecording(); err != nil {
			logger.WithError(err).Fatal("Could not start recording")
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer reportPanic(service, config, logger)
		defer cfn()

		return service.Run(ctx, source(config))
	})

	g.Go(func() error {
		return feedHTTP.Listen(ctx)
	})

	err = g.Wait()

	if closeErr := service.Close(); closeErr != nil {
		logger.WithError(closeErr).Error("Recording stopped with an error")
	}

	if err != nil {
		logger.WithError(err).Fatal("Telemetry stopped")
	}

	logger.Infof("Telemetry stopped. Exiting")
}

func source(config *telemetry.Config) telemetry.Source {
	pacing := config.Replay.Pacing && !noDelays

	switch {
	case replayPath != "":
		return telemetry.CaptureSource{Path: replayPath, Pacing: pacing}
	case reportPath != "":
		return telemetry.ReportSource{Path: reportPath, Pacing: pacing}
	default:
		return telemetry.LiveSource{Port: config.Listener.Port}
	}
}

// reportPanic writes the packet tail next to the captures and sends it to sentry with the panic
// before panicking again.
func reportPanic(service *telemetry.Service, config *telemetry.Config, logger logrus.FieldLogger) {
	r := recover()

	if r == nil {
		return
	}

	packets := service.TailSnapshot()
	encoded, err := tail.Marshal(packets)

	if err != nil {
		logger.WithError(err).Error("Could not encode packet tail")
	} else {
		path := filepath.Join(config.Capture.Directory, fmt.Sprintf("crash_%s_%s", time.Now().Format("2006-01-02_15-04-05"), tail.LastPacketsFile))

		if err := ioutil.WriteFile(path, encoded, 0644); err != nil {
			logger.WithError(err).Error("Could not write packet tail")
		} else {
			logger.Errorf("Wrote the last %d packets to %s", len(packets), path)
		}
	}

	if config.SentryDSN != "" {
		err, ok := r.(error)

		if !ok {
			err = fmt.Errorf("%v", r)
		}

		packet := raven.NewPacketWithExtra(err.Error(), raven.Extra{tail.LastPacketsFile: string(encoded)}, raven.NewException(err, raven.NewStacktrace(2, 3, nil)))
		packet.Level = raven.FATAL

		_, ch := raven.Capture(packet, nil)

		if err := <-ch; err != nil {
			logger.WithError(err).Error("Could not send crash report")
		}
	}

	panic(r)
}

// minReceiveBuffer is enough socket buffer to absorb a few frames of every packet type while the
// receive loop is busy.
const minReceiveBuffer = 1 << 20

func checkReceiveBuffer(logger logrus.FieldLogger) {
	if runtime.GOOS != "linux" {
		return
	}

	value, err := sysctl.Get("net.core.rmem_max")

	if err != nil {
		logger.WithError(err).Debug("Could not read net.core.rmem_max")
		return
	}

	max, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)

	if err != nil {
		return
	}

	if max < minReceiveBuffer {
		logger.Warnf("The kernel limits UDP receive buffers to %s, packets may be dropped in bursts. Consider raising net.core.rmem_max to at least %s", humanize.IBytes(max), humanize.IBytes(minReceiveBuffer))
	}
}
