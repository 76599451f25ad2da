package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/movielens-insights/internal/app"
	"github.com/yungbote/movielens-insights/internal/platform/shutdown"
)

// Usage: main [user_segments] [genre_affinity]
func main() {
	a, err := app.New(context.Background())
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := shutdown.NotifyContext(context.Background(), a.Log)
	defer stop()

	err = a.Run(ctx, os.Args[1:])
	a.Close()
	if err != nil {
		fmt.Printf("run failed: %v\n", err)
		os.Exit(1)
	}
}
