package main

import "github.com/ROJSUWAN/n8n-video-renderer/cmd"

func main() {
	cmd.Execute()
}
