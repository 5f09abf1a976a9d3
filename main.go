package main

import "github.com/oldenj/shallow-water-equations/cmd"

func main() {
	cmd.Execute()
}
