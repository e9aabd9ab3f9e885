package main

import "gitpersona/cmd"

func main() {
	cmd.Execute()
}
