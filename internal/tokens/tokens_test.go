package tokens

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/guided-app/weatherd/internal/store"
)

func TestSaveGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore().Tokens
	svc := NewService(repo, "unit-test-secret")

	creds := Credentials{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		Expiry:       time.Date(2024, 7, 12, 10, 0, 0, 0, time.UTC),
	}
	if err := svc.Save(ctx, "sess", creds); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := svc.Get(ctx, "sess")
	if err != nil || got == nil {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if got.AccessToken != creds.AccessToken || got.RefreshToken != creds.RefreshToken || !got.Expiry.Equal(creds.Expiry) {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestGet_NoneStored(t *testing.T) {
	svc := NewService(store.NewMemoryStore().Tokens, "unit-test-secret")
	got, err := svc.Get(context.Background(), "missing")
	if err != nil || got != nil {
		t.Errorf("expected nil, nil, got %v, %v", got, err)
	}
}

func TestCiphertextShape(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore().Tokens
	svc := NewService(repo, "unit-test-secret")

	if err := svc.Save(ctx, "sess", Credentials{AccessToken: "tok"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec, _ := repo.GetToken(ctx, "sess")
	iv, ct, ok := strings.Cut(rec.Ciphertext, ":")
	if !ok {
		t.Fatalf("ciphertext missing separator: %q", rec.Ciphertext)
	}
	if len(iv) != 32 {
		t.Errorf("IV hex length = %d, want 32", len(iv))
	}
	if len(ct) == 0 || len(ct)%32 != 0 {
		t.Errorf("ciphertext hex length %d not a block multiple", len(ct))
	}
	if strings.Contains(rec.Ciphertext, "tok") {
		t.Error("plaintext leaked into stored record")
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore().Tokens

	if err := NewService(repo, "secret-a").Save(ctx, "sess", Credentials{AccessToken: "tok"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := NewService(repo, "secret-b").Get(ctx, "sess"); err == nil {
		t.Error("expected error decrypting with wrong key")
	}
}

func TestDecrypt_Malformed(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore().Tokens
	svc := NewService(repo, "unit-test-secret")

	for _, ct := range []string{"nocolon", "zz:zz", "aabb:ccdd"} {
		repo.SaveToken(ctx, store.TokenRecord{SessionID: "sess", Ciphertext: ct})
		if _, err := svc.Get(ctx, "sess"); err == nil {
			t.Errorf("expected error for malformed ciphertext %q", ct)
		}
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemoryStore().Tokens, "unit-test-secret")
	svc.Save(ctx, "sess", Credentials{AccessToken: "tok"})
	if err := svc.Delete(ctx, "sess"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := svc.Get(ctx, "sess"); got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
}

func TestGenerateSessionID(t *testing.T) {
	a, b := GenerateSessionID(), GenerateSessionID()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty IDs, got %q, %q", a, b)
	}
	if len(a) != 36 {
		t.Errorf("expected UUID format, got %q", a)
	}
}
