package store

// The four logical collections live under fixed keys, one set per room.
// Any key carrying the room prefix belongs to the chat state.
const keyPrefix = "chat_"

func MessagesKey(room string) string { return keyPrefix + "messages_" + room }
func TypingKey(room string) string   { return keyPrefix + "typing_" + room }
func UsersKey(room string) string    { return keyPrefix + "users_" + room }
func GameKey(room string) string     { return keyPrefix + "game_" + room }
