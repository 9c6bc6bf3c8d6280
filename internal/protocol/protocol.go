// Package protocol defines the JSON messages spoken over the observer
// websocket. JSON Schemas for every message live under schemas/ and are
// validated against these samples in tests.
package protocol

import (
	"encoding/json"
	"errors"
)

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeState   = "STATE"
	TypeCmd     = "CMD"
	TypeResult  = "RESULT"
)

// Command kinds carried by CmdMsg.
const (
	CmdSpawn = "SPAWN"
	CmdKill  = "KILL"
	CmdSave  = "SAVE"
	CmdLoad  = "LOAD"
)

var ErrBadCommand = errors.New("protocol: unknown command")

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

// Encode marshals a message, panicking on the impossible: every message
// type here is a plain data struct.
func Encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name"`
}

type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	WorldID         string `json:"world_id"`
	TickRateHz      int    `json:"tick_rate_hz"`
	Seed            int64  `json:"seed"`
	Tick            uint64 `json:"tick"`
}

type EntityState struct {
	Index     int        `json:"index"`
	Identity  int32      `json:"identity"`
	Pos       [3]float32 `json:"pos"`
	Scale     float32    `json:"scale"`
	Age       float32    `json:"age"`
	Behaviors []string   `json:"behaviors"`
}

type StateMsg struct {
	Type     string        `json:"type"`
	Tick     uint64        `json:"tick"`
	Entities []EntityState `json:"entities"`
}

type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Cmd             string `json:"cmd"`
	Count           int    `json:"count,omitempty"`
	Slot            string `json:"slot,omitempty"`
}

type ResultMsg struct {
	Type  string `json:"type"`
	Cmd   string `json:"cmd"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Tick  uint64 `json:"tick"`
}
