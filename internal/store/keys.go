package store

import "fmt"

// Key family helpers, mirroring §3's stable, namespaced ASCII key layout.

func PlayerKey(id string) string { return fmt.Sprintf("player:%s", id) }

func SessionKey(id string) string { return fmt.Sprintf("session:%s", id) }

func GameKey(id string) string { return fmt.Sprintf("game:%s", id) }

func GamePlayersKey(id string) string { return fmt.Sprintf("game:%s:players", id) }

func MatchmakerLockKey() string { return "lock:matchmaker" }

func FinishLockKey(gameID string) string { return fmt.Sprintf("lock:finish:%s", gameID) }

const (
	ReadyQueueKey        = "queue:ready"
	AvailableSessionsKey = "sessions:available"
	TopicMatchFound      = "events:match_found"
	TopicMatchEnded      = "events:match_ended"
	PlayerScanPattern    = "player:*"
	SessionScanPattern   = "session:*"
)
