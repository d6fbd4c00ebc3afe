package main

import "feedstock/internal/cli"

func main() {
	cli.Execute()
}
