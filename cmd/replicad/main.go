package main

import (
	"flag"
	"log"
	"os"

	"github.com/anthanhphan/go-replica-coordinator/internal/coordinator/app"
)

func main() {
	var configPath string
	var nodeID string
	flag.StringVar(&configPath, "configPath", "", "Path to configuration file")
	flag.StringVar(&nodeID, "node", os.Getenv("REPLICAD_NODE_ID"), "This node's identifier in the cluster map")
	flag.Parse()

	application, err := app.New(configPath, nodeID)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}
