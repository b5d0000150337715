package main

import (
	"context"
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/openmonitor/alertd/pkg/config"
	"github.com/openmonitor/alertd/pkg/mongodb"
	"github.com/openmonitor/alertd/pkg/services"
)

// One-shot housekeeping pass: expire timed-out alerts and purge per the
// retention policy, then exit. Useful from cron against an engine that is
// not running its own sweeper, and harmless next to one that is.
func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	store, err := mongodb.NewClient(&cfg.Mongo)
	if err != nil {
		logrus.Fatalf("Failed to create MongoDB client: %v", err)
	}
	defer store.Close(context.Background())

	sweeper := services.NewSweeper(store, &cfg.Sweeper)
	sweeper.RunOnce(context.Background())
	logrus.Info("Housekeeping pass complete")
}
