package minio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKeyFromRef(t *testing.T) {
	cases := []struct {
		ref  string
		want string
	}{
		{"", ""},
		{"chat/1/photo.jpg", "chat/1/photo.jpg"},
		{"/chat/1/photo.jpg", "chat/1/photo.jpg"},
		{"http://127.0.0.1:9000/chat-media/chat/1/photo.jpg", "chat/1/photo.jpg"},
		{"https://cdn.example.com/chat-media/chat/1/a b.jpg", "chat/1/a b.jpg"},
		{"http://host-only", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ObjectKeyFromRef(tc.ref), tc.ref)
	}
}
