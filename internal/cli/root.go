package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/ui"
	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vidcall",
	Short: "One-on-one video calls over WebRTC from your terminal",
	Long: `vidcall establishes direct peer-to-peer call sessions between exactly two
parties. A lightweight signaling server pairs the parties up in a room and
relays the session negotiation; all call traffic then flows directly between
the peers.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
