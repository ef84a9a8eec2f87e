package redis

import (
	"fmt"

	"github.com/mcoot/wagerlobby/internal/model"
)

// Key prefix for all lobby data
const keyPrefix = "wagerlobby"

// playerKey returns the Redis key for a player profile
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// balanceKey returns the Redis key holding a player's integer balance
func balanceKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:balance:%s", keyPrefix, id)
}

// chatIndexKey returns the Redis key for the chat id -> player_id index
func chatIndexKey(chatID int64) string {
	return fmt.Sprintf("%s:idx:chat:%d", keyPrefix, chatID)
}

// roundKey returns the Redis key for an archived round
func roundKey(id model.RoomID) string {
	return fmt.Sprintf("%s:round:%s", keyPrefix, id)
}

// roundsIndexKey returns the Redis key for the ZSET of rounds by settlement time
func roundsIndexKey() string {
	return fmt.Sprintf("%s:idx:rounds", keyPrefix)
}

// rewardKey returns the Redis key for the reward issued in a room
func rewardKey(id model.RoomID) string {
	return fmt.Sprintf("%s:reward:%s", keyPrefix, id)
}

// rewardsForPlayerIndexKey returns the Redis key for the ZSET of a player's rewards
func rewardsForPlayerIndexKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:idx:rewards:%s", keyPrefix, id)
}
