package main

import "github.com/example/musclecards/internal/cli"

func main() {
	cli.Execute()
}
