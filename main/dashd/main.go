package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jd3nn1s/dashboard"
	"github.com/jd3nn1s/dashboard/forwarder"
	"github.com/jd3nn1s/dashboard/vehicle"
	log "github.com/sirupsen/logrus"
)

var configFile = flag.String("config", "", "TOML configuration file")
var canInterface = flag.String("can", "", "CAN interface to try first, or auto")
var logLevel = flag.String("log-level", "info", "log level")
var testMode = flag.Bool("testmode", false, "generate test data")
var printState = flag.Bool("print-state", false, "print state changes to stdout")

type printForwarder struct{}

func (printForwarder) Forward(change vehicle.Change) error {
	fmt.Printf("%s=%s %+v\n", change.Field, change.State.FormatValue(change.Field), change.State)
	return nil
}

func main() {
	flag.Parse()
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal("invalid log level: ", err)
	}
	log.SetLevel(level)

	cfg := dashboard.DefaultConfig()
	if *configFile != "" {
		if cfg, err = dashboard.LoadConfigFile(*configFile); err != nil {
			log.Fatal(err)
		}
	}
	candidates := cfg.BusCandidates(*canInterface, os.Getenv(dashboard.CANInterfaceEnv))
	log.WithField("candidates", candidates).Info("CAN interface order")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	d, err := dashboard.New(cfg, candidates)
	if err != nil {
		log.Fatal("unable to create dashboard: ", err)
	}
	d.SetTestMode(*testMode)

	if cfg.UDP.Enabled {
		fwder, err := forwarder.NewUDPForwarder(cfg.UDP)
		if err != nil {
			log.Fatal("unable to load UDP forwarder: ", err)
		}
		defer fwder.Close()
		go func() {
			if err := fwder.Start(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("UDP forwarder stopped")
			}
		}()
		d.AddForwarder(fwder)
	}

	if cfg.Redis.Enabled {
		client, err := forwarder.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("unable to connect to redis: ", err)
		}
		r := forwarder.NewRedis(client, cfg.Redis)
		defer r.Close()
		if err := r.WriteState(d.State()); err != nil {
			log.WithError(err).Warn("unable to write initial state to redis")
		}
		go func() {
			if err := r.Start(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("redis forwarder stopped")
			}
		}()
		d.AddForwarder(r)

		listener := forwarder.NewCommandListener(client, cfg.Redis, d)
		go func() {
			if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("redis command listener stopped")
			}
		}()
	}

	if *printState {
		d.AddForwarder(printForwarder{})
	}

	d.Start(ctx)
	<-ctx.Done()
	log.Info("shutting down")
	d.Stop()
}
