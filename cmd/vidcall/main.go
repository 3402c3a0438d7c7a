package main

import "github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/cli"

func main() {
	cli.Execute()
}
