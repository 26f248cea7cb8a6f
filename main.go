package main

import "github.com/aidroute/deployer/cmd"

func main() {
	cmd.Execute()
}
