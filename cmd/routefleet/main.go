package main

import "github.com/vietddude/routefleet/internal/cli"

func main() {
	cli.Execute()
}
