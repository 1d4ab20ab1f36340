package main

import "github.com/relloyd/campaignpipe/cmd"

func main() {
	cmd.Execute()
}
