// Copyright (c) 2025 BVK Chaitanya

package gobs

// TelegramState remembers chat ids of authorized users across restarts.
type TelegramState struct {
	UserChatIDMap map[string]int64
}
