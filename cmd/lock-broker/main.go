package main

import (
	"flag"
	"log"

	"lockbox/internal/config"
	"lockbox/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config file (optional)")
	listenAddr := flag.String("listen-addr", "", "gRPC listen address (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	log.Println("=== Lockbox Lock Broker ===")
	log.Printf("gRPC Address: %s", cfg.ListenAddr)
	log.Printf("Default timeout: %s", cfg.DefaultTimeout())

	var m *metrics.BrokerMetrics
	if cfg.MetricsAddr != "" {
		m = metrics.NewBrokerMetrics()
		go m.Serve(cfg.MetricsAddr)
	}

	server := NewBrokerServer(cfg, m)
	if err := server.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
