package main

import "github.com/forPelevin/sportsight/internal/cli"

func main() {
	cli.Main()
}
