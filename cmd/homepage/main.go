package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pixian5/homepage-sub000/internal/app"
	"github.com/pixian5/homepage-sub000/internal/config"
	"github.com/pixian5/homepage-sub000/internal/services"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, services.ErrorNotice(err))
		os.Exit(1)
	}

	err = a.Run(ctx, os.Args[1:])
	a.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, services.ErrorNotice(err))
		os.Exit(1)
	}
}
