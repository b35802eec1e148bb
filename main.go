// Package main is the entry point of the funcscan command-line tool.
package main

import "funcscan/cmd"

func main() {
	cmd.Execute()
}
