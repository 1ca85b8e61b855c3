package main

import "graphvault/cmd/graphvault-cli/cmd"

func main() {
	cmd.Execute()
}
