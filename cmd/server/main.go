package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/zkvault/internal/buildinfo"
	"github.com/dmitrijs2005/zkvault/internal/flagx"
	"github.com/dmitrijs2005/zkvault/internal/server"
	"github.com/dmitrijs2005/zkvault/internal/server/config"
)

// healSaltFlag returns the -heal-salt username, if given.
func healSaltFlag(args []string) string {
	var userName string
	fs := flag.NewFlagSet("maintenance", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&userName, "heal-salt", "", "give <username> a salt if it has none, then exit")
	_ = fs.Parse(flagx.FilterArgs(args, []string{"-heal-salt", "--heal-salt"}))
	return userName
}

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if userName := healSaltFlag(os.Args[1:]); userName != "" {
		if err := app.HealSalt(ctx, userName); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
