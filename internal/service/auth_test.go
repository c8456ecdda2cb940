package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/service"

	"github.com/golang-jwt/jwt/v5"
)

func TestValidateAccessToken_RoundTrip(t *testing.T) {
	tokens := service.NewTokenService("test-secret")

	raw, err := tokens.SignAccessToken("admin@salon.ae", domain.RoleAdmin, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := tokens.ValidateAccessToken(raw)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if claims.Email != "admin@salon.ae" || claims.Role != domain.RoleAdmin {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	tokens := service.NewTokenService("test-secret")

	expired, _ := tokens.SignAccessToken("a@salon.ae", domain.RoleWorker, -time.Minute)
	otherKey, _ := service.NewTokenService("other-secret").SignAccessToken("a@salon.ae", domain.RoleWorker, time.Minute)
	refresh, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, service.JWTClaims{
		Sub:  "a@salon.ae",
		Type: "refresh",
	}).SignedString([]byte("test-secret"))

	tests := map[string]string{
		"expired":    expired,
		"wrong key":  otherKey,
		"wrong type": refresh,
		"garbage":    "not.a.token",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.ValidateAccessToken(raw)
			var unauthorized *domain.ErrUnauthorized
			if !errors.As(err, &unauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}
