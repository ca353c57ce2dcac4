package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trial-service/internal/core"
	"trial-service/internal/fsm"
	"trial-service/internal/hardware"
	"trial-service/internal/logger"
	"trial-service/internal/messaging"
)

func main() {
	var (
		serviceLogLevel int
		redisHost       string
		redisPort       int
		tickMs          int
		fakeResponder   bool
		seed            int64
		reportLatched   bool
		enforceRequired bool
		stepsPerFn      int64
	)

	flag.IntVar(&serviceLogLevel, "log", 3, "Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")
	flag.StringVar(&redisHost, "redis-host", "127.0.0.1", "Redis host")
	flag.IntVar(&redisPort, "redis-port", 6379, "Redis port")
	flag.IntVar(&tickMs, "tick", 10, "Scheduler tick period in milliseconds")
	flag.BoolVar(&fakeResponder, "fake-responder", false, "Replace the lick sensor with a random draw")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "Fake responder RNG seed")
	flag.BoolVar(&reportLatched, "report-latched", false, "Report latched parameters on every trial")
	flag.BoolVar(&enforceRequired, "enforce-required", false, "Refuse trial release while required parameters are unset")
	flag.Int64Var(&stepsPerFn, "steps-per-fn", 50, "Stepper steps per function index")

	flag.Parse()

	// Create standard logger with appropriate format
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	l := logger.NewLogger(stdLogger, logger.LogLevel(serviceLogLevel))

	l.Infof("Starting trial service...")

	io := hardware.NewRigIO(l)
	redis := messaging.NewRedisClient(redisHost, redisPort, l)

	speaker := hardware.NewSpeaker(l, nil)
	if err := speaker.Initialize(); err != nil {
		l.Warnf("Speaker unavailable: %v", err)
	}
	devices := []fsm.Device{
		hardware.NewStepper(io, l, stepsPerFn),
		speaker,
	}

	system := core.NewTrialSystem(io, redis, devices, core.Config{
		TickPeriod:              time.Duration(tickMs) * time.Millisecond,
		FakeResponder:           fakeResponder,
		Seed:                    seed,
		ReportLatchedEveryTrial: reportLatched,
		EnforceRequired:         enforceRequired,
	}, l)

	if err := system.Start(); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}

	l.Infof("System started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	l.Infof("Received signal %v, shutting down...", sig)
	system.Shutdown()
	l.Infof("Shutdown complete")
}
