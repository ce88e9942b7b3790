package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello    = "HELLO"
	TypeWelcome  = "WELCOME"
	TypeUI       = "UI"
	TypeUIUpdate = "UI_UPDATE"
	TypeNotice   = "NOTICE"
)

// UI actions.
const (
	ActionView           = "VIEW"
	ActionSelectParent   = "SELECT_PARENT"
	ActionDeselectParent = "DESELECT_PARENT"
	ActionCollectEgg     = "COLLECT_EGG"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
