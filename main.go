package main

import "github.com/SecOpsGit/EXEgesis/cmd"

func main() {
	cmd.Execute()
}
