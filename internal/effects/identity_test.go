package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity_RoundTrip(t *testing.T) {
	tests := []Identity{
		{Name: "Potion", SubID: "8c0b3d3e"},
		{Name: "Potion"},
		{Name: "", SubID: "fire"},
		{Name: "Ring:of:Fire", SubID: "a:b"},
	}

	for _, id := range tests {
		t.Run(id.String(), func(t *testing.T) {
			assert.Equal(t, id, ParseIdentity(id.String()))
		})
	}
}

func TestIdentity_Parse(t *testing.T) {
	t.Run("no separator means empty sub id", func(t *testing.T) {
		assert.Equal(t, Identity{Name: "Potion"}, ParseIdentity("Potion"))
	})

	t.Run("splits on the first separator", func(t *testing.T) {
		assert.Equal(t, Identity{Name: "a", SubID: "b|c"}, ParseIdentity("a|b|c"))
	})

	t.Run("zero identity encodes empty", func(t *testing.T) {
		assert.Equal(t, "", Identity{}.String())
		assert.True(t, ParseIdentity("").IsZero())
	})
}

func TestExpirationKey_String(t *testing.T) {
	key := ExpirationKey{
		Effect: "ResistDamage",
		SubID:  "fire",
		Owner:  Identity{Name: "Potion", SubID: "1234"},
	}
	assert.Equal(t, "Effects:Expire:ResistDamage:fire|Potion|1234", key.String())

	assert.Equal(t, "Effects:Expire:WalkSpeed|", ExpirationKey{Effect: "WalkSpeed"}.String())
}

func TestParseExpirationKey(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   ExpirationKey
		wantOK bool
	}{
		{
			name:   "full form",
			raw:    "Effects:Expire:ResistDamage:fire|Potion|1234",
			want:   ExpirationKey{Effect: "ResistDamage", SubID: "fire", Owner: Identity{Name: "Potion", SubID: "1234"}},
			wantOK: true,
		},
		{
			name:   "no sub id",
			raw:    "Effects:Expire:WalkSpeed|",
			want:   ExpirationKey{Effect: "WalkSpeed"},
			wantOK: true,
		},
		{
			name:   "no owner segment",
			raw:    "Effects:Expire:WalkSpeed",
			want:   ExpirationKey{Effect: "WalkSpeed"},
			wantOK: true,
		},
		{
			name:   "sub id without owner segment",
			raw:    "Effects:Expire:ResistDamage:cold",
			want:   ExpirationKey{Effect: "ResistDamage", SubID: "cold"},
			wantOK: true,
		},
		{
			name:   "sub id containing colons",
			raw:    "Effects:Expire:ResistDamage:a:b|Potion|1",
			want:   ExpirationKey{Effect: "ResistDamage", SubID: "a:b", Owner: Identity{Name: "Potion", SubID: "1"}},
			wantOK: true,
		},
		{
			name: "foreign prefix",
			raw:  "Combat:Turn:npc-1",
		},
		{
			name: "no effect name",
			raw:  "Effects:Expire:|Potion|1",
		},
		{
			name: "empty",
			raw:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseExpirationKey(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("round trip", func(t *testing.T) {
		key := ExpirationKey{Effect: "BuffDamage", SubID: "slashing", Owner: Identity{Name: "Rage", SubID: "x"}}
		got, ok := ParseExpirationKey(key.String())
		assert.True(t, ok)
		assert.Equal(t, key, got)
	})
}

func TestCheckSubID(t *testing.T) {
	assert.NoError(t, CheckSubID(""))
	assert.NoError(t, CheckSubID("fire"))
	assert.NoError(t, CheckSubID("a:b"))
	assert.Error(t, CheckSubID("a|b"))
}
