package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloudburst/auth"
	"cloudburst/models"
)

func seedLoginUser(t *testing.T, env *testEnv, username, password string) *models.User {
	t.Helper()
	user := &models.User{UserID: "user-" + username, Username: username, Role: models.RoleOperator}
	if err := env.store.CreateUser(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	if err := env.store.StorePasswordHash(context.Background(), user.UserID, hash); err != nil {
		t.Fatal(err)
	}
	return user
}

func TestLoginIssuesTokens(t *testing.T) {
	env := newTestEnv(t)
	jwtManager := auth.NewJWTManager("test-secret", 30*time.Minute, 24*time.Hour)
	handler := NewAuthHandler(env.store, jwtManager)
	seedLoginUser(t, env, "operator", "operator1234")

	rec := httptest.NewRecorder()
	handler.Login(rec, authedRequest(t, http.MethodPost, "/api/login", LoginRequest{
		Username: "operator",
		Password: "operator1234",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp LoginResponse
	decodeBody(t, rec, &resp)
	if resp.Token == "" || resp.RefreshToken == "" {
		t.Fatal("missing tokens in login response")
	}

	claims, err := jwtManager.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.Username != "operator" || claims.Role != models.RoleOperator {
		t.Errorf("claims = %+v", claims)
	}

	stored, err := env.store.GetUser(context.Background(), "user-operator")
	if err != nil {
		t.Fatal(err)
	}
	if stored.LastLogin == 0 {
		t.Error("last_login not updated")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	jwtManager := auth.NewJWTManager("test-secret", 30*time.Minute, 24*time.Hour)
	handler := NewAuthHandler(env.store, jwtManager)
	seedLoginUser(t, env, "operator", "operator1234")

	rec := httptest.NewRecorder()
	handler.Login(rec, authedRequest(t, http.MethodPost, "/api/login", LoginRequest{
		Username: "operator",
		Password: "wrong-password1",
	}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	jwtManager := auth.NewJWTManager("test-secret", 30*time.Minute, 24*time.Hour)
	handler := NewAuthHandler(env.store, jwtManager)
	user := seedLoginUser(t, env, "operator", "operator1234")

	refresh, err := jwtManager.GenerateRefreshToken(user)
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	handler.RefreshToken(rec, authedRequest(t, http.MethodPost, "/api/refresh", RefreshTokenRequest{RefreshToken: refresh}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp RefreshTokenResponse
	decodeBody(t, rec, &resp)
	if _, err := jwtManager.ValidateToken(resp.Token); err != nil {
		t.Errorf("refreshed token does not validate: %v", err)
	}
}
