package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/wialon/wips-endpoint/pkg/blackbox"
	"github.com/wialon/wips-endpoint/pkg/device"
	"github.com/wialon/wips-endpoint/pkg/deviceconfig"
	"github.com/wialon/wips-endpoint/pkg/observer"
)

func main() {
	log.SetLevel(log.InfoLevel)

	configPath := flag.String("config", "", "INI file of device identity/network parameters (required)")
	blackboxPath := flag.String("blackbox", blackbox.DefaultFile, "path to the durable blackbox mirror file")
	logLevel := flag.String("log-level", "info", "panic|fatal|error|warn|info|debug|trace")
	flag.Parse()

	lvl, err := log.ParseLevel(*logLevel)
	if err != nil {
		fmt.Printf("invalid -log-level %q: %v\n", *logLevel, err)
		os.Exit(1)
	}
	log.SetLevel(lvl)

	if *configPath == "" {
		fmt.Println("missing required -config")
		os.Exit(1)
	}

	cfg, err := deviceconfig.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("[widevice] failed to load device config")
	}

	obs := observer.New(cfg.ObserverConfig(), nil)
	bb := blackbox.New(*blackboxPath)

	d := device.New(obs, bb, cfg.Host, cfg.Port, cfg.Version, cfg.IMEI, cfg.Password)
	log.WithFields(log.Fields{"imei": cfg.IMEI, "host": cfg.Host, "port": cfg.Port}).Info("[widevice] starting")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("[widevice] run failed")
	}
}
