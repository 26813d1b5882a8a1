package sessions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gomodule/redigo/redis"

	. "blog/pkg/common"
	"blog/pkg/logger"
	"blog/pkg/user"
)

const (
	redisNS = "blogSessions"

	sessionTTL     = 90 * 24 * time.Hour
	prolongWithin  = 24 * time.Hour
	sessionIdLen   = 10
	authHeaderPref = "Bearer "
)

type (
	sessionKey string

	// Pool hands out Redis connections; *redis.Pool satisfies it.
	Pool interface {
		Get() redis.Conn
	}

	SessionManager struct {
		secret []byte
		pool   Pool
	}

	jwtClaims struct {
		User user.UserFromToken `json:"user"`
		jwt.StandardClaims
	}
)

const SessionKey sessionKey = "authenticatedUser"

var (
	ErrNoAuth         = errors.New("sessions: no session found")
	ErrSessionExpired = errors.New("sessions: session has been expired")
)

func NewSessionManager(secret string, pool Pool) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		pool:   pool,
	}
}

// Returns the user from the JWT token if the token is valid
// and its session is registered and not expired.
func (sm *SessionManager) UserFromToken(authHeader string) (*user.UserFromToken, error) {
	claims, err := sm.parse(authHeader)
	if err != nil {
		return nil, err
	}

	if err := sm.CheckRedis(claims.User.Id, claims.Id); err != nil {
		return nil, fmt.Errorf("sessions: Redis session is not valid: %w", err)
	}

	return &claims.User, nil
}

func (sm *SessionManager) parse(authHeader string) (*jwtClaims, error) {
	if authHeader == "" {
		return nil, errors.New("sessions: auth header not found")
	}

	tokenString := strings.TrimPrefix(authHeader, authHeaderPref)
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("sessions: unexpected signing method %v", token.Header["alg"])
			}
			return sm.secret, nil
		})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok {
		return nil, errors.New("sessions: can't cast token to claim")
	}
	if !token.Valid {
		return nil, errors.New("sessions: token is not valid")
	}
	return claims, nil
}

// Goes through all user sessions and removes expired ones.
func (sm *SessionManager) CleanupUserSessions(userId string) error {
	conn := sm.pool.Get()
	defer conn.Close()

	sessions, err := redis.StringMap(conn.Do("HGETALL", sessionsKey(userId)))
	if err != nil {
		return fmt.Errorf("sessions: can't HGETALL user sessions from Redis: %w", err)
	}

	nowTs := time.Now().Unix()
	for sessId, exp := range sessions {
		expTs, _ := strconv.ParseInt(exp, 10, 64)
		if nowTs > expTs {
			if _, err := conn.Do("HDEL", sessionsKey(userId), sessId); err != nil {
				return fmt.Errorf("sessions: failed HDEL from Redis: %w", err)
			}
			logger.Log(context.Background()).Infow("session removed", "user_id", userId, "session_id", sessId, "expired_at", exp)
		}
	}

	return nil
}

func (sm *SessionManager) CheckRedis(userId, sessionId string) error {
	conn := sm.pool.Get()
	defer conn.Close()

	expirationData, err := redis.Bytes(conn.Do("HGET", sessionsKey(userId), sessionId))
	if err != nil {
		return fmt.Errorf("sessions: can't HGET from Redis: %w", err)
	}

	expiredTs, _ := strconv.ParseInt(string(expirationData), 10, 64)
	nowTs := time.Now().Unix()
	if nowTs > expiredTs {
		return ErrSessionExpired
	}

	// Prolong the session if it expires soon so active users are not kicked off.
	if expiredTs-nowTs < int64(prolongWithin.Seconds()) {
		newExpDate := time.Now().Add(sessionTTL).Unix()
		if err := sm.AddToRedis(userId, sessionId, newExpDate); err != nil {
			return err
		}
	}

	return nil
}

func (sm *SessionManager) AddToRedis(userId, sessionId string, exp int64) error {
	conn := sm.pool.Get()
	defer conn.Close()

	_, err := conn.Do("HSET", sessionsKey(userId), sessionId, exp)
	if err != nil {
		return fmt.Errorf("sessions: failed HSET to Redis: %w", err)
	}
	return nil
}

func (sm *SessionManager) CreateToken(u *user.User) (string, error) {
	sessionID := RandStringRunes(sessionIdLen)
	data := jwtClaims{
		User: user.UserFromToken{Id: u.Id, Username: u.Username},
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(sessionTTL).Unix(),
			IssuedAt:  time.Now().Unix(),
			Id:        sessionID,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, data).SignedString(sm.secret)
	if err != nil {
		return "", err
	}

	if err := sm.AddToRedis(u.Id, sessionID, data.ExpiresAt); err != nil {
		return ``, err
	}

	return token, nil
}

// Revoke removes the session the token belongs to.
func (sm *SessionManager) Revoke(authHeader string) error {
	claims, err := sm.parse(authHeader)
	if err != nil {
		return err
	}

	conn := sm.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("HDEL", sessionsKey(claims.User.Id), claims.Id); err != nil {
		return fmt.Errorf("sessions: failed HDEL from Redis: %w", err)
	}
	return nil
}

func sessionsKey(userId string) string {
	return redisNS + ":" + userId
}

func GetAuthUser(ctx context.Context) (*user.User, error) {
	u, ok := ctx.Value(SessionKey).(*user.User)
	if !ok || u == nil {
		return nil, ErrNoAuth
	}
	return u, nil
}

func WithAuthUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, SessionKey, u)
}
