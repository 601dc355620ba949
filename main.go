package main

import "github.com/wolfitem/news-agent/cmd"

func main() {
	cmd.Execute()
}
