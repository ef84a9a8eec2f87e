package main

import "github.com/mcoot/wagerlobby/internal/cli"

func main() {
	cli.Execute()
}
