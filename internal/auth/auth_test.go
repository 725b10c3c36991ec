package auth

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("secret")
	token, err := svc.GenerateToken(42, "admin", "admin")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != 42 || claims.Username != "admin" || claims.Role != "admin" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenRejected(t *testing.T) {
	token, _ := NewJWTService("one").GenerateToken(1, "u", "viewer")
	if _, err := NewJWTService("two").ValidateToken(token); err == nil {
		t.Error("token signed with another secret accepted")
	}
	if _, err := NewJWTService("one").ValidateToken("not.a.token"); err == nil {
		t.Error("garbage token accepted")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "hunter2") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "hunter3") {
		t.Error("wrong password accepted")
	}
}
