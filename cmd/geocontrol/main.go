package main

import "github.com/zettagrid/geocontrol/cmd"

func main() {
	cmd.Execute()
}
