package main

import "github.com/dt-pm-tools/issue-kb/cmd"

func main() {
	cmd.Execute()
}
