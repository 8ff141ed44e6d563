package main

import (
	"log"

	"github.com/zairakai/docker-ecosystem-pipeline-tools/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
