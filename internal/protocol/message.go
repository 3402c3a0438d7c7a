package protocol

import "encoding/json"

// Message is the envelope for all signaling traffic, in both directions.
// Data is opaque to the server: offer/answer/ice-candidate payloads are
// relayed byte for byte without inspection.
type Message struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId,omitempty"`
	UserID string          `json:"userId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Message type constants.
const (
	TypeJoinRoom  = "join-room"
	TypeLeaveRoom = "leave-room"

	TypeConnection = "connection"
	TypeRoomJoined = "room-joined"
	TypeRoomLeft   = "room-left"
	TypeUserJoined = "user-joined"
	TypeUserLeft   = "user-left"
	TypeError      = "error"

	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
)

// ConnectionData is sent once by the server immediately after the WebSocket
// is accepted. The assigned user id travels on the envelope itself.
type ConnectionData struct {
	Message string `json:"message,omitempty"`
}

// RoomJoinedData confirms a successful join to the joining client.
type RoomJoinedData struct {
	Message       string   `json:"message,omitempty"`
	ExistingUsers []string `json:"existingUsers"`
}

// UserJoinedData notifies occupants already in the room about a new arrival.
type UserJoinedData struct {
	NewUserID string `json:"newUserId"`
}

// UserLeftData notifies the remaining occupant that its peer departed,
// whether by an explicit leave-room or a dropped connection.
type UserLeftData struct {
	LeftUserID string `json:"leftUserId"`
}

// RoomLeftData confirms a leave-room back to the sender.
type RoomLeftData struct {
	Message string `json:"message,omitempty"`
}

// ErrorData carries a human-readable diagnostic. No recovery action is
// implied beyond surfacing it to the caller.
type ErrorData struct {
	Message string `json:"message"`
}

// EncodeData marshals a payload struct into the envelope's Data field.
// The payload structs above are all trivially marshalable, so an encoding
// failure here is a programming error.
func EncodeData(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic("protocol: encode data: " + err.Error())
	}
	return b
}

// DecodeData unmarshals the envelope's Data field into v.
func (m *Message) DecodeData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}
