package main

import "github.com/frahmantamala/ecodocs/cmd"

func main() {
	cmd.Execute()
}
