package main

import "github.com/ErlanBelekov/campsite-scheduler/internal/cli"

func main() {
	cli.Execute()
}
