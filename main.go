package main

import "github.com/LaCapitainerie/openvasreporting/cmd"

func main() {
	cmd.Execute()
}
