package version

// Version is the current version of the vidcall CLI.
// This value can be overridden at build time using:
//
//	go build -ldflags="-X 'github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/version.Version=v1.0.0'"
var Version = "dev"
