package main

import "github.com/relloyd/engagement/cmd"

func main() {
	cmd.Execute()
}
