package main

import "craggo/cmd"

func main() {
	cmd.Execute()
}
