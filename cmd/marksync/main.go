package main

import (
	"log"

	"github.com/marksync/agent/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ marksync failed to start: %v", err)
	}
}
