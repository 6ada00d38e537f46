package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"formdrop-api/config"
	"formdrop-api/services"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var dryRun bool
	flag.BoolVar(&dryRun, "dry-run", false, "count expired submissions without deleting them")
	flag.Parse()

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	purger := services.NewRetentionService(services.NewGormStore(db))
	summary, err := purger.Purge(context.Background(), time.Now().UTC(), dryRun)
	if err != nil {
		log.Fatalf("purge failed: %v", err)
	}

	verb := "deleted"
	if summary.DryRun {
		verb = "would delete"
	}
	fmt.Printf("Forms scanned: %d\n", summary.FormsScanned)
	fmt.Printf("Submissions %s: %d\n", verb, summary.SubmissionsDeleted)
}
