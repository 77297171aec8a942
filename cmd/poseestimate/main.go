// Package main estimates the pose of an object in a scene.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"go.viam.com/posematch/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := cli.NewPoseEstimateApp(os.Stdout, os.Stderr)
	if err := app.RunContext(ctx, os.Args); err != nil {
		stop()
		log.Fatal(err)
	}
}
