package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ServerMessage is the closed set of server -> client messages:
// *GameStateUpdate, VibeOutput, VibeSessionStarted, VibeSessionEnded,
// GradeResult, and UnknownMessage for tags this client does not know.
type ServerMessage interface {
	MessageTag() string
	isServerMessage()
}

// VibeOutput is raw terminal output from an agent's coding session.
type VibeOutput struct {
	AgentID uint64 `msgpack:"agent_id" json:"agent_id"`
	Data    Bytes  `msgpack:"data" json:"data"`
}

type VibeSessionStarted struct {
	AgentID uint64 `msgpack:"agent_id" json:"agent_id"`
}

type VibeSessionEnded struct {
	AgentID uint64 `msgpack:"agent_id" json:"agent_id"`
	Reason  string `msgpack:"reason" json:"reason"`
}

type GradeResult struct {
	BuildingID string `msgpack:"building_id" json:"building_id"`
	Stars      uint8  `msgpack:"stars" json:"stars"`
	Reasoning  string `msgpack:"reasoning" json:"reasoning"`
}

// UnknownMessage stands in for a variant added by a newer server. Its
// payload has been skipped.
type UnknownMessage struct {
	Tag string `json:"tag"`
}

func (VibeOutput) MessageTag() string         { return TagVibeOutput }
func (VibeSessionStarted) MessageTag() string { return TagVibeSessionStarted }
func (VibeSessionEnded) MessageTag() string   { return TagVibeSessionEnded }
func (GradeResult) MessageTag() string        { return TagGradeResult }
func (m UnknownMessage) MessageTag() string   { return m.Tag }

func (VibeOutput) isServerMessage()         {}
func (VibeSessionStarted) isServerMessage() {}
func (VibeSessionEnded) isServerMessage()   {}
func (GradeResult) isServerMessage()        {}
func (UnknownMessage) isServerMessage()     {}

// Inbound is a decoded message together with the id of the connection it
// arrived on. Connection ids start at 1 and increase with every connect.
type Inbound struct {
	Conn uint64
	Msg  ServerMessage
}

type serverEnvelope struct{ msg ServerMessage }

func (e serverEnvelope) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch m := e.msg.(type) {
	case *GameStateUpdate:
		if m == nil {
			return fmt.Errorf("%w: nil game state", ErrUnencodableType)
		}
		return writeTagged(enc, TagGameState, m)
	case VibeOutput:
		return writeTagged(enc, TagVibeOutput, m)
	case VibeSessionStarted:
		return writeTagged(enc, TagVibeSessionStarted, m)
	case VibeSessionEnded:
		return writeTagged(enc, TagVibeSessionEnded, m)
	case GradeResult:
		return writeTagged(enc, TagGradeResult, m)
	default:
		return fmt.Errorf("%w: server message %T", ErrUnencodableType, e.msg)
	}
}

func (e *serverEnvelope) DecodeMsgpack(dec *msgpack.Decoder) error {
	name, unit, err := readTag(dec)
	if err != nil {
		return err
	}
	switch name {
	case TagGameState, TagVibeOutput, TagVibeSessionStarted, TagVibeSessionEnded, TagGradeResult:
		if unit {
			return &VariantError{Union: "ServerMessage", Variant: name, Err: ErrMissingPayload}
		}
	default:
		if !unit {
			if err := dec.Skip(); err != nil {
				return err
			}
		}
		e.msg = UnknownMessage{Tag: name}
		return nil
	}

	switch name {
	case TagGameState:
		var m GameStateUpdate
		err = dec.Decode(&m)
		e.msg = &m
	case TagVibeOutput:
		var m VibeOutput
		err = dec.Decode(&m)
		e.msg = m
	case TagVibeSessionStarted:
		var m VibeSessionStarted
		err = dec.Decode(&m)
		e.msg = m
	case TagVibeSessionEnded:
		var m VibeSessionEnded
		err = dec.Decode(&m)
		e.msg = m
	case TagGradeResult:
		var m GradeResult
		err = dec.Decode(&m)
		e.msg = m
	}
	if err != nil {
		e.msg = nil
		return &VariantError{Union: "ServerMessage", Variant: name, Err: err}
	}
	return nil
}

func EncodeServerMessage(m ServerMessage) ([]byte, error) {
	return Marshal(serverEnvelope{m})
}

// DecodeServerMessage decodes one inbound frame. Any error is a
// *DecodeError and nothing partial is returned with it.
func DecodeServerMessage(b []byte) (ServerMessage, error) {
	var e serverEnvelope
	if err := Unmarshal(b, &e); err != nil {
		return nil, err
	}
	return e.msg, nil
}
