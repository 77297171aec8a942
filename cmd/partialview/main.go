// Package main writes the part of a point cloud visible from a viewpoint.
package main

import (
	"log"
	"os"

	"go.viam.com/posematch/cli"
)

func main() {
	app := cli.NewPartialViewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
