// Command devserver runs the portal functions behind a local HTTP server.
package main

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
)

var log = logging.Logger("cmd")

func main() {
	logging.SetLogLevel("*", "info")

	app := &cli.App{
		Name:  "devserver",
		Usage: "Run the client portal functions locally.",
		Commands: []*cli.Command{
			serveCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
