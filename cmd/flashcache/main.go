package main

import "github.com/aweris/flashcache/cmd/flashcache/cmd"

func main() {
	cmd.Execute()
}
