package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/wialon/wips-endpoint/pkg/deviceconfig"
	"github.com/wialon/wips-endpoint/pkg/server"
	"github.com/wialon/wips-endpoint/pkg/wiproto"
)

var DEFAULT_LISTEN = ":65432"

func main() {
	log.SetLevel(log.InfoLevel)

	listen := flag.String("listen", DEFAULT_LISTEN, "host:port to accept device connections on")
	registryPath := flag.String("registry", "", "INI file of registered device IMEI/password pairs")
	logLevel := flag.String("log-level", "info", "panic|fatal|error|warn|info|debug|trace")
	flag.Parse()

	lvl, err := log.ParseLevel(*logLevel)
	if err != nil {
		fmt.Printf("invalid -log-level %q: %v\n", *logLevel, err)
		os.Exit(1)
	}
	log.SetLevel(lvl)

	var registry *deviceconfig.Registry
	if *registryPath != "" {
		registry, err = deviceconfig.LoadRegistry(*registryPath)
		if err != nil {
			log.WithError(err).Fatal("[wiserver] failed to load device registry")
		}
	} else {
		registry = deviceconfig.NewRegistry()
		log.Warn("[wiserver] no -registry given, starting with an empty device registry")
	}

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		log.WithError(err).Fatal("[wiserver] failed to listen")
	}
	log.WithField("addr", ln.Addr()).Info("[wiserver] listening")

	srv := server.New(registry)
	srv.OnPacket = func(imei string, pkt *wiproto.Packet) {
		log.WithFields(log.Fields{"imei": imei, "type": pkt.Type}).Debug("[wiserver] frame received")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Serve(ctx, ln); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("[wiserver] serve failed")
	}
}
