package main

import "socialpilot/cmd/cli"

func main() {
	cli.Execute()
}
