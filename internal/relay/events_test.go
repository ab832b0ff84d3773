package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/session"
)

func TestDecodeJoinPayload(t *testing.T) {
	cases := []struct {
		name string
		data string
		want session.Profile
	}{
		{
			name: "full payload",
			data: `{"name":"Zeta","class":"mage","position":{"x":1,"y":2,"z":3}}`,
			want: session.Profile{Name: "Zeta", Class: "mage", Position: session.Position{X: 1, Y: 2, Z: 3}},
		},
		{
			name: "empty object",
			data: `{}`,
			want: session.Profile{},
		},
		{
			name: "null position falls back to origin",
			data: `{"name":"Zeta","position":null}`,
			want: session.Profile{Name: "Zeta"},
		},
		{
			name: "position of wrong type falls back to origin",
			data: `{"position":"the moon"}`,
			want: session.Profile{},
		},
		{
			name: "name of wrong type falls back to default",
			data: `{"name":12345,"class":"mage"}`,
			want: session.Profile{Class: "mage"},
		},
		{
			name: "unknown fields ignored",
			data: `{"name":"Zeta","hp":9000}`,
			want: session.Profile{Name: "Zeta"},
		},
		{
			name: "invalid json",
			data: `{"name":`,
			want: session.Profile{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := decodeJoinPayload(json.RawMessage(tc.data))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeUpdatePayload(t *testing.T) {
	pos := session.Position{X: 1, Y: 2, Z: 3}
	rot := session.Rotation{Y: 0.5}

	cases := []struct {
		name string
		data string
		want session.StateDelta
	}{
		{
			name: "all fields",
			data: `{"position":{"x":1,"y":2,"z":3},"rotation":{"y":0.5},"action":"run"}`,
			want: session.StateDelta{Position: &pos, Rotation: &rot, Action: "run"},
		},
		{
			name: "action only",
			data: `{"action":"run"}`,
			want: session.StateDelta{Action: "run"},
		},
		{
			name: "null fields are absent",
			data: `{"position":null,"rotation":null,"action":null}`,
			want: session.StateDelta{},
		},
		{
			name: "empty action is not applied",
			data: `{"action":""}`,
			want: session.StateDelta{},
		},
		{
			name: "malformed position ignored, action kept",
			data: `{"position":17,"action":"run"}`,
			want: session.StateDelta{Action: "run"},
		},
		{
			name: "invalid json",
			data: `not json`,
			want: session.StateDelta{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := decodeUpdatePayload(json.RawMessage(tc.data))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := Envelope{Event: EventChatMessage, Data: json.RawMessage(`{"message":"hi"}`)}
	b, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"chat_message","data":{"message":"hi"}}`, string(b))

	var decoded Envelope
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, env.Event, decoded.Event)
	assert.JSONEq(t, string(env.Data), string(decoded.Data))
}

// TestPropertyDecodeJoinNeverPanics feeds arbitrary bytes through the join
// decoder; whatever the client sends, the result is a usable profile.
func TestPropertyDecodeJoinNeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 0, 256).Draw(t, "data")
		profile := decodeJoinPayload(data)
		_ = profile
	})
}

func TestPropertyDecodeUpdateNeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 0, 256).Draw(t, "data")
		delta := decodeUpdatePayload(data)
		_ = delta
	})
}
