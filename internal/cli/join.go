package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/call"
	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/config"
	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/logging"
	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/roomid"
	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/signaling"
	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/ui"
)

var (
	flagDomain   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
)

var joinCmd = &cobra.Command{
	Use:     "join [room-id]",
	Aliases: []string{"j"},
	Short:   "Join a call room, creating it if needed",
	Long: `Join a call room on the signaling server. The first party to join waits;
the second party's arrival starts the call. Without a room id a fresh
memorable one is generated for you to share.

Examples:
  vidcall join cozy-otter-lantern
  vidcall join --domain calls.example.com my-room`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID := ""
		if len(args) == 1 {
			roomID = strings.TrimSpace(args[0])
		}
		return runCall(roomID)
	},
}

func init() {
	joinCmd.Flags().StringVar(&flagDomain, "domain", "", "signaling server domain (host:port)")
	joinCmd.Flags().StringVar(&flagSTUN, "stun", "", "STUN server URL")
	joinCmd.Flags().StringVar(&flagTURN, "turn", "", "TURN server host")
	joinCmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
	joinCmd.Flags().BoolVar(&flagRelay, "relay", false, "force all traffic through the TURN relay")
	rootCmd.AddCommand(joinCmd)
}

func runCall(roomID string) error {
	cfg, err := config.Load(config.Options{
		Domain:     flagDomain,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
	})
	if err != nil {
		return err
	}

	if roomID == "" {
		roomID = roomid.New()
		fmt.Println(ui.RoomBanner(roomID))
		fmt.Println()
	}

	log := logging.New("vidcall")

	stopSpinner := ui.RunConnectionSpinner("Connecting to server...")
	client := signaling.NewClient(cfg.WebSocketURL)
	if err := client.Connect(); err != nil {
		stopSpinner()
		return call.NewError("connect to server", err)
	}
	defer client.Close()
	stopSpinner()

	handler := signaling.NewHandler(client)
	go handler.Start()

	factory := func(events call.PeerEvents, initiator bool) (call.Peer, error) {
		return call.NewPionPeer(cfg, nil, events, initiator, log)
	}

	engine := call.NewEngine(client, handler, factory, log)
	go engine.Run()

	screen := ui.NewCallScreen(roomID, func(text string) {
		if err := engine.SendChat(text); err != nil {
			log.Debug().Err(err).Msg("chat not delivered")
		}
	})

	go pumpCallEvents(engine, screen)

	if err := engine.Join(roomID); err != nil {
		return err
	}

	if err := screen.Run(); err != nil {
		return call.NewError("run call screen", err)
	}

	engine.Leave()
	if err := engine.Err(); err != nil {
		return err
	}
	return nil
}

// pumpCallEvents forwards engine notifications into the call screen.
func pumpCallEvents(engine *call.Engine, screen *ui.CallScreen) {
	for {
		select {
		case state := <-engine.States():
			detail := ""
			info := engine.Info()
			switch state {
			case call.StateConnecting:
				if info.RemoteUserID == "" {
					detail = "waiting for the other party"
				} else {
					detail = "negotiating with " + shortPeer(info.RemoteUserID)
				}
			case call.StateDisconnected:
				detail = "the other party left"
			case call.StateError:
				if err := engine.Err(); err != nil {
					detail = err.Error()
				}
				screen.SetState(string(state), detail)
				screen.End("call failed: " + detail)
				return
			}
			screen.SetState(string(state), detail)

		case msg := <-engine.Chats():
			screen.AddChat(msg.From, msg.Text, false, msg.SentAt)

		case m := <-engine.Media():
			screen.SetState(string(call.StateConnected), "receiving remote "+m.Kind)

		case <-engine.Done():
			screen.End("signaling connection lost")
			return
		}
	}
}

func shortPeer(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
