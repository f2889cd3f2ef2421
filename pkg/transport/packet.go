package transport

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the size of the AUN packet header.
const HeaderSize = 8

// Type is the AUN packet type.
type Type uint8

const (
	TypeBroadcast Type = 1
	TypeUnicast   Type = 2
	TypeAck       Type = 3
	TypeNak       Type = 4
	TypeImmediate Type = 5
	TypeImmReply  Type = 6
)

func (t Type) String() string {
	switch t {
	case TypeBroadcast:
		return "broadcast"
	case TypeUnicast:
		return "unicast"
	case TypeAck:
		return "ack"
	case TypeNak:
		return "nak"
	case TypeImmediate:
		return "immediate"
	case TypeImmReply:
		return "imm_reply"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Packet is an AUN packet: an 8-byte header and a payload.
type Packet struct {
	Type     Type
	DestPort uint8
	Flag     uint8
	Retrans  uint8
	Seq      uint32
	Data     []byte
}

// Encode serializes the packet to wire format.
func (p *Packet) Encode() []byte {
	buf := make([]byte, HeaderSize+len(p.Data))
	buf[0] = byte(p.Type)
	buf[1] = p.DestPort
	buf[2] = p.Flag
	buf[3] = p.Retrans
	binary.LittleEndian.PutUint32(buf[4:8], p.Seq)
	copy(buf[HeaderSize:], p.Data)
	return buf
}

// Len is the encoded length of the packet.
func (p *Packet) Len() int {
	return HeaderSize + len(p.Data)
}

// Decode parses a wire-format packet. The payload is copied.
func Decode(b []byte) (*Packet, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("aun packet too short: %d bytes", len(b))
	}
	data := make([]byte, len(b)-HeaderSize)
	copy(data, b[HeaderSize:])
	return &Packet{
		Type:     Type(b[0]),
		DestPort: b[1],
		Flag:     b[2],
		Retrans:  b[3],
		Seq:      binary.LittleEndian.Uint32(b[4:8]),
		Data:     data,
	}, nil
}
