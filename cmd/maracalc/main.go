package main

import "github.com/polandar/mara-calc/internal/cli"

func main() {
	cli.Execute()
}
