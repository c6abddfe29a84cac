// package main provides the entry point for the secscan service and CLI.
// All behavior lives in the cmd subcommands; serve runs the API server.
package main

import "github.com/launchforge/secscan/cmd"

func main() {
	cmd.Execute()
}
