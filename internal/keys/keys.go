// Package keys builds every key the stores read or write. The shapes are
// shared with other clients of the same keyspace and must not change.
package keys

const (
	// AllUsers is the membership set of every registered user id.
	AllUsers = "users:all"
	// AllPosts is the membership set of every post id; it backs the feed.
	AllPosts = "posts:all"
)

func UserByID(id string) string             { return "user:id:" + id }
func UserByNickname(nickname string) string { return "user:nickname:" + nickname }
func UserByPhone(phone string) string       { return "user:phone:" + phone }
func UserByEmail(email string) string       { return "user:email:" + email }

func Post(id string) string           { return "post:" + id }
func UserPosts(userID string) string  { return "posts:user:" + userID }
func FriendRequest(id string) string  { return "friend:request:" + id }
func RequestsTo(userID string) string { return "friend:requests:to:" + userID }
func Friends(userID string) string    { return "friends:user:" + userID }

func Chat(id string) string          { return "chat:" + id }
func UserChats(userID string) string { return "chats:user:" + userID }

func Message(chatID, messageID string) string { return "msg:" + chatID + ":" + messageID }
func ChatMessages(chatID string) string       { return "messages:chat:" + chatID }

func LastActive(userID string) string { return "lastactive:" + userID }
