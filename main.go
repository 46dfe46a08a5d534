package main

import "github.com/wensia/callscribe/cmd"

func main() {
	cmd.Execute()
}
