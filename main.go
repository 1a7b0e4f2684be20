package main

import "github.com/ctrlscan/scan-agent/cmd"

func main() {
	cmd.Execute()
}
