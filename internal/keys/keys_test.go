package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyScheme(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{UserByID("42"), "user:id:42"},
		{UserByNickname("alice"), "user:nickname:alice"},
		{UserByPhone("+1000"), "user:phone:+1000"},
		{UserByEmail("a@b.c"), "user:email:a@b.c"},
		{AllUsers, "users:all"},
		{Post("7"), "post:7"},
		{UserPosts("42"), "posts:user:42"},
		{AllPosts, "posts:all"},
		{FriendRequest("9"), "friend:request:9"},
		{RequestsTo("42"), "friend:requests:to:42"},
		{Friends("42"), "friends:user:42"},
		{Chat("c1"), "chat:c1"},
		{UserChats("42"), "chats:user:42"},
		{Message("c1", "m1"), "msg:c1:m1"},
		{ChatMessages("c1"), "messages:chat:c1"},
		{LastActive("42"), "lastactive:42"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.got)
	}
}
