package main

import (
	"context"
	"log"
	"os"
	"slices"

	"github.com/dmitrijs2005/ingestpipe/internal/ingestor"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := ingestor.NewScanApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	// -once performs a single on-demand scan instead of the schedule.
	if slices.Contains(os.Args[1:], "-once") {
		if err := app.RunOnce(ctx); err != nil {
			log.Printf("%v", err)
			os.Exit(1)
		}
		return
	}

	app.Run(ctx)

}
