// Command sandquake runs the sand-table simulation once and writes the
// composited frames and the receiver trace to disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"sandquake/internal/api"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  sandquake run [flags]     simulate a table capture
  sandquake token [flags]   print a bearer token for sandquaked

Run "sandquake <command> -h" for the flags of a command.
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "run":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err = runCommand(ctx, os.Args[2:])
		stop()
	case "token":
		err = tokenCommand(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "sandquake:", err)
		os.Exit(1)
	}
}

func tokenCommand(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	secret := fs.String("secret", os.Getenv("SANDQUAKE_JWT_SECRET"), "HS256 signing secret")
	subject := fs.String("sub", "projector", "token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *secret == "" {
		return fmt.Errorf("no secret: pass -secret or set SANDQUAKE_JWT_SECRET")
	}
	tok, err := api.IssueToken(*secret, *subject, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
