package main

import "exercise-sync/cmd"

func main() {
	cmd.Execute()
}
