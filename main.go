package main

import "activity_mon/internal/cli"

func main() {
	cli.Execute()
}
