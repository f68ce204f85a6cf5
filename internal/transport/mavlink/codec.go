package mavlink

import (
	"github.com/bluenviron/gomavlib/v2/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v2/pkg/message"

	"github.com/roman-kulish/firelink/internal/frame"
)

// decode translates a MAVLink message into a frame. Messages the link does not act
// upon become frame.Unknown.
func decode(m message.Message) frame.Frame {
	switch msg := m.(type) {
	case *common.MessageHeartbeat:
		return frame.Heartbeat{}

	case *common.MessageGlobalPositionInt:
		return frame.Position{LatE7: msg.Lat, LonE7: msg.Lon, AltMM: msg.Alt}

	case *common.MessageVfrHud:
		heading := int(msg.Heading) % 360
		if heading < 0 {
			heading += 360
		}
		return frame.Heading{Degrees: uint16(heading)}

	case *common.MessageAttitude:
		return frame.Orientation{Yaw: msg.Yaw, Pitch: msg.Pitch, Roll: msg.Roll}

	case *common.MessageStatustext:
		return frame.StatusText{Severity: uint8(msg.Severity), Text: []byte(msg.Text)}

	default:
		return frame.Unknown{MessageID: m.GetID()}
	}
}

// statusTextChunks splits text into STATUSTEXT messages. Text that fits a single
// message is sent with id 0; longer text is sent as MAVLink 2 chunks sharing id,
// terminated by a short (or empty) final chunk.
func statusTextChunks(text []byte, id uint16) []*common.MessageStatustext {
	if len(text) <= frame.MaxStatusTextLen {
		return []*common.MessageStatustext{{
			Severity: common.MAV_SEVERITY_WARNING,
			Text:     string(text),
		}}
	}

	var chunks []*common.MessageStatustext
	for seq := 0; ; seq++ {
		start := seq * frame.MaxStatusTextLen
		end := min(start+frame.MaxStatusTextLen, len(text))

		chunks = append(chunks, &common.MessageStatustext{
			Severity: common.MAV_SEVERITY_WARNING,
			Text:     string(text[start:end]),
			Id:       id,
			ChunkSeq: uint8(seq),
		})

		if end-start < frame.MaxStatusTextLen {
			break
		}
	}

	return chunks
}
