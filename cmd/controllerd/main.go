// Command controllerd runs the cluster controller's input-queue and
// message-router front end (spec.md OVERVIEW).
package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/jabolina/crmd-core/internal/config"
	"github.com/jabolina/crmd-core/pkg/controller"
	"github.com/jabolina/crmd-core/pkg/logging"
)

var (
	configPath = kingpin.Flag("config", "path to the controller's TOML configuration file").
			Short('c').String()
	nodeName = kingpin.Flag("node-name", "override the configured node_name").String()
	debug    = kingpin.Flag("debug", "enable debug-level logging").Bool()
	metricsAddr = kingpin.Flag("metrics-addr", "address to serve /metrics on, empty disables it").
			Default(":9091").String()
)

func main() {
	kingpin.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			color.Red("controllerd: failed to load config %s: %v", *configPath, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *nodeName != "" {
		cfg.NodeName = *nodeName
	}

	log := logging.New(cfg.NodeName)
	log.ToggleDebug(*debug || cfg.LogLevel == "debug")

	color.Cyan("controllerd: starting node=%s cluster=%s feature_set=%s", cfg.NodeName, cfg.ClusterName, cfg.FeatureSet)

	c, err := controller.New(controller.Config{
		Log:         log,
		OurUname:    cfg.NodeName,
		ClusterName: cfg.ClusterName,
		FeatureSet:  cfg.FeatureSet,
	})
	if err != nil {
		log.Fatalf("controllerd: failed to build controller: %v", err)
	}
	defer c.Peers.Close()

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		c.Metrics.MustRegister(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				log.Errorf("controllerd: metrics server stopped: %v", err)
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sig
		log.Info("controllerd: received termination signal, shutting down")
		c.TriggerShutdown()
	}()

	c.Run()
	log.Info("controllerd: stopped")
}
