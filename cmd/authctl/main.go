package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/authctl"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/fatih/color"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app := authctl.NewApp(cfg)

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

}
