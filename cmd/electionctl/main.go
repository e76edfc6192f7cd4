package main

import "github.com/danielhkuo/campus-vote/cmd/electionctl/cmd"

func main() {
	cmd.Execute()
}
