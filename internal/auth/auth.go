// Package auth provides the caller identity layer: account registration with
// bcrypt-hashed passwords and JWT bearer tokens carrying the account address.
// It stands in for the execution environment's caller authentication.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/natreeum/tomaas-staking-protocol/internal/domain"
)

var (
	// ErrAccountExists indicates the address is already registered.
	ErrAccountExists = errors.New("account already registered")
	// ErrInvalidCredentials indicates an unknown address or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates a missing, malformed or expired token.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims carries the authenticated account through the request.
type Claims struct {
	Address string `json:"address"`
	Admin   bool   `json:"admin"`
	jwt.RegisteredClaims
}

// Service issues and validates bearer tokens for registered accounts.
type Service struct {
	key   []byte
	ttl   time.Duration
	admin domain.Address
	clock domain.Clock

	mu    sync.Mutex
	creds map[domain.Address][]byte
}

// New builds the auth service. Tokens for the admin address carry the
// administrator role.
func New(key []byte, ttl time.Duration, admin domain.Address, clock domain.Clock) *Service {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &Service{
		key:   key,
		ttl:   ttl,
		admin: admin,
		clock: clock,
		creds: make(map[domain.Address][]byte),
	}
}

// Register stores a new account's password hash.
func (s *Service) Register(addr domain.Address, password string) error {
	if addr.IsZero() {
		return domain.ErrZeroAddress
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creds[addr]; ok {
		return ErrAccountExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	s.creds[addr] = hash
	return nil
}

// Login verifies the password and issues a bearer token.
func (s *Service) Login(addr domain.Address, password string) (string, error) {
	s.mu.Lock()
	hash, ok := s.creds[addr]
	s.mu.Unlock()
	if !ok {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := s.clock()
	claims := Claims{
		Address: string(addr),
		Admin:   addr == s.admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a bearer token.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
