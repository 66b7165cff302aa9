package main

import "github.com/Norgate-AV/buildenv/cmd"

func main() {
	cmd.Execute()
}
