package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "userhub"
)

// Ключи для Sets (состояние)
const (
	// RedisKeyRevokedSessions — множество отозванных сессий: источник правды
	// для прогрева локального кэша при старте
	RedisKeyRevokedSessions = RedisNamespace + ":sessions:revoked_set"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanSessionRevoked — трансляция отзыва сессии на все инстансы API
	RedisChanSessionRevoked = RedisNamespace + ":sessions:revoked-signal"
)
