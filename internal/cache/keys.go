package cache

import (
	"fmt"
	"time"
)

const (
	QuestionKeyPrefix     = "question:%d"
	RefreshTokenKeyPrefix = "refresh_token:%d"
	BlacklistKeyPrefix    = "blacklist:%s"
	WSTicketKeyPrefix     = "ws_ticket:%s"
)

const (
	QuestionTTL = 10 * time.Minute
	WSTicketTTL = time.Minute
)

func QuestionKey(questionID uint) string {
	return fmt.Sprintf(QuestionKeyPrefix, questionID)
}

func RefreshTokenKey(userID uint) string {
	return fmt.Sprintf(RefreshTokenKeyPrefix, userID)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketKeyPrefix, ticket)
}
