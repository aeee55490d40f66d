package main

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/ingestpipe/internal/ingestor"
	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := ingestor.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	// -f <file> handles a single notification payload and exits,
	// lambda-style; "-f -" reads the payload from stdin. Without it the
	// binary runs the queue consumer.
	if path, ok := eventArg(os.Args[1:]); ok {
		payload, err := readEvent(path)
		if err != nil {
			log.Printf("%v", err)
			os.Exit(1)
		}
		if err := app.HandleEvent(ctx, payload); err != nil {
			log.Printf("%v", err)
			os.Exit(1)
		}
		return
	}

	app.Run(ctx)

}

func eventArg(args []string) (string, bool) {
	for i, arg := range args {
		if arg == "-f" && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

func readEvent(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
