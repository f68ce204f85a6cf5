package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusText_Decode(t *testing.T) {
	cases := []struct {
		name string
		text []byte
		want string
	}{
		{"plain", []byte("FIRE_RECEIVED"), "FIRE_RECEIVED"},
		{"nul padded", append([]byte("ok"), 0, 0, 0, 'x'), "ok"},
		{"invalid utf8 dropped", []byte{'a', 0xff, 0xfe, 'b'}, "ab"},
		{"empty", nil, ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, StatusText{Text: c.text}.Decode())
		})
	}
}

func TestStatusText_ContainsSubstring(t *testing.T) {
	assert.True(t, StatusText{Text: []byte("xFIRE_RECEIVEDy")}.Contains("FIRE_RECEIVED"))
	assert.True(t, StatusText{Text: []byte{0xff, 'F', 'I', 'R', 'E', '_', 'R', 'E', 'C', 'E', 'I', 'V', 'E', 'D'}}.Contains("FIRE_RECEIVED"))
	assert.False(t, StatusText{Text: []byte("FIRE_RECEIVE")}.Contains("FIRE_RECEIVED"))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "position", Position{}.Kind().String())
	assert.Equal(t, "heading", Heading{}.Kind().String())
	assert.Equal(t, "orientation", Orientation{}.Kind().String())
	assert.Equal(t, "status_text", StatusText{}.Kind().String())
	assert.Equal(t, "heartbeat", Heartbeat{}.Kind().String())
	assert.Equal(t, "unknown", Unknown{}.Kind().String())
}
