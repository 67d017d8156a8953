package main

import "github.com/Tyrowin/tapwars/internal/cli"

func main() {
	cli.Execute()
}
