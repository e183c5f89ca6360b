package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPairKey(t *testing.T) {
	assert.Equal(t, "3_7", PairKey(7, 3))
	assert.Equal(t, "3_7", PairKey(3, 7))

	msg := &Message{SenderID: 7, ReceiverID: 3}
	assert.Equal(t, "3_7", msg.PairKey())
}

func TestParticipant(t *testing.T) {
	msg := &Message{SenderID: 1, ReceiverID: 2}
	assert.True(t, msg.Participant(1))
	assert.True(t, msg.Participant(2))
	assert.False(t, msg.Participant(3))
}

func TestMediaType(t *testing.T) {
	for _, mt := range []MediaType{MediaText, MediaImage, MediaVideo, MediaAudio, MediaLocation, MediaSnapshot} {
		assert.True(t, mt.Valid(), string(mt))
	}
	assert.False(t, MediaType("gif").Valid())

	assert.False(t, MediaText.RequiresRef())
	assert.True(t, MediaImage.RequiresRef())
	assert.True(t, MediaSnapshot.RequiresRef())
}

func TestExpiryEligible(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	cases := []struct {
		name string
		msg  Message
		want bool
	}{
		{"plain message", Message{}, false},
		{"ttl not reached", Message{ExpiresAt: &future}, false},
		{"ttl reached", Message{ExpiresAt: &past}, true},
		{"ttl exactly now", Message{ExpiresAt: &now}, true},
		{"view once unviewed", Message{IsViewOnce: true}, false},
		{"view once viewed", Message{IsViewOnce: true, IsViewed: true}, true},
		{"saved beats ttl", Message{ExpiresAt: &past, IsSaved: true}, false},
		{"saved beats view once", Message{IsViewOnce: true, IsViewed: true, IsSaved: true}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.msg.ExpiryEligible(now))
		})
	}
}
