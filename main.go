package main

import "github.com/dzjyyds666/bq/cmd"

func main() {
	cmd.Execute()
}
