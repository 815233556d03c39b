package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// PlayerInput is the only client -> server message.
//
// Tick is the client's own outbound sequence number, unrelated to the
// server tick. Movement components are -1, 0 or 1. Action and Target are
// optional and encode as nil when absent.
type PlayerInput struct {
	Tick     Tick         `json:"tick"`
	Movement Vec2         `json:"movement"`
	Action   PlayerAction `json:"action"`
	Target   *EntityID    `json:"target"`
}

func (in PlayerInput) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(4); err != nil {
		return err
	}
	if err := enc.EncodeString("tick"); err != nil {
		return err
	}
	if err := enc.EncodeUint(in.Tick); err != nil {
		return err
	}
	if err := enc.EncodeString("movement"); err != nil {
		return err
	}
	if err := enc.Encode(in.Movement); err != nil {
		return err
	}
	if err := enc.EncodeString("action"); err != nil {
		return err
	}
	if err := encodeAction(enc, in.Action); err != nil {
		return err
	}
	if err := enc.EncodeString("target"); err != nil {
		return err
	}
	if in.Target == nil {
		return enc.EncodeNil()
	}
	return enc.EncodeUint(*in.Target)
}

func (in *PlayerInput) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("player input: nil")
	}
	*in = PlayerInput{}
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return err
		}
		switch key {
		case "tick":
			in.Tick, err = dec.DecodeUint64()
		case "movement":
			err = dec.Decode(&in.Movement)
		case "action":
			in.Action, err = decodeOptionalAction(dec)
		case "target":
			in.Target, err = decodeOptionalUint(dec)
		default:
			err = dec.Skip()
		}
		if err != nil {
			return fmt.Errorf("player input %q: %w", key, err)
		}
	}
	return nil
}

func EncodePlayerInput(in PlayerInput) ([]byte, error) {
	return Marshal(in)
}

func DecodePlayerInput(b []byte) (PlayerInput, error) {
	var in PlayerInput
	err := Unmarshal(b, &in)
	return in, err
}
