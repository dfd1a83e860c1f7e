package services

import (
	"testing"
	"time"

	"github.com/invoicemenecer/api/internal/config"
	"github.com/invoicemenecer/api/internal/models"
)

func insertTestRecord(t *testing.T, store *RefreshTokenStore, tokenID, userID string, expiresAt time.Time) *models.RefreshToken {
	t.Helper()

	record := &models.RefreshToken{
		TokenID:   tokenID,
		UserID:    userID,
		IssuedAt:  time.Now(),
		ExpiresAt: expiresAt,
	}
	if err := store.Insert(record); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	return record
}

func TestRefreshTokenStore_FindByTokenID(t *testing.T) {
	db := setupTestDB(t)
	store := NewRefreshTokenStore(db)

	insertTestRecord(t, store, "tok-1", "user-1", time.Now().Add(time.Hour))

	found, err := store.FindByTokenID("tok-1")
	if err != nil {
		t.Fatalf("FindByTokenID() error = %v", err)
	}
	if found == nil || found.TokenID != "tok-1" || found.UserID != "user-1" {
		t.Errorf("FindByTokenID() = %+v", found)
	}

	missing, err := store.FindByTokenID("no-such-token")
	if err != nil {
		t.Fatalf("FindByTokenID() error = %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown tokenID, got %+v", missing)
	}
}

func TestRefreshTokenStore_DuplicateInsert(t *testing.T) {
	db := setupTestDB(t)
	store := NewRefreshTokenStore(db)

	insertTestRecord(t, store, "tok-1", "user-1", time.Now().Add(time.Hour))

	err := store.Insert(&models.RefreshToken{
		TokenID:   "tok-1",
		UserID:    "user-2",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if err == nil {
		t.Error("inserting a duplicate tokenID must fail")
	}
}

func TestRefreshTokenStore_RevokeAndLink(t *testing.T) {
	db := setupTestDB(t)
	store := NewRefreshTokenStore(db)

	insertTestRecord(t, store, "tok-1", "user-1", time.Now().Add(time.Hour))

	now := time.Now()
	ok, err := store.RevokeAndLink("tok-1", now, "tok-2")
	if err != nil {
		t.Fatalf("RevokeAndLink() error = %v", err)
	}
	if !ok {
		t.Fatal("first RevokeAndLink() on an active record must succeed")
	}

	record, _ := store.FindByTokenID("tok-1")
	if !record.IsRevoked() {
		t.Error("record should be revoked")
	}
	if record.ReplacedByTokenID == nil || *record.ReplacedByTokenID != "tok-2" {
		t.Errorf("ReplacedByTokenID = %v, expected tok-2", record.ReplacedByTokenID)
	}

	// Second attempt loses the conditional update.
	ok, err = store.RevokeAndLink("tok-1", time.Now(), "tok-3")
	if err != nil {
		t.Fatalf("RevokeAndLink() error = %v", err)
	}
	if ok {
		t.Error("RevokeAndLink() on a revoked record must report false")
	}

	// The losing attempt must not overwrite the link.
	record, _ = store.FindByTokenID("tok-1")
	if *record.ReplacedByTokenID != "tok-2" {
		t.Errorf("ReplacedByTokenID = %q, expected tok-2", *record.ReplacedByTokenID)
	}
}

func TestRefreshTokenStore_RevokeAndLink_UnknownToken(t *testing.T) {
	db := setupTestDB(t)
	store := NewRefreshTokenStore(db)

	ok, err := store.RevokeAndLink("no-such-token", time.Now(), "tok-2")
	if err != nil {
		t.Fatalf("RevokeAndLink() error = %v", err)
	}
	if ok {
		t.Error("RevokeAndLink() on an unknown record must report false")
	}
}

func TestRefreshTokenStore_Revoke(t *testing.T) {
	db := setupTestDB(t)
	store := NewRefreshTokenStore(db)

	insertTestRecord(t, store, "tok-1", "user-1", time.Now().Add(time.Hour))

	ok, err := store.Revoke("tok-1", time.Now())
	if err != nil || !ok {
		t.Fatalf("Revoke() = %v, %v", ok, err)
	}

	ok, err = store.Revoke("tok-1", time.Now())
	if err != nil {
		t.Fatalf("second Revoke() error = %v", err)
	}
	if ok {
		t.Error("second Revoke() must report false")
	}

	record, _ := store.FindByTokenID("tok-1")
	if record.ReplacedByTokenID != nil {
		t.Error("plain Revoke() must not link a successor")
	}
}

func TestRefreshTokenStore_RevokeAllForUser(t *testing.T) {
	db := setupTestDB(t)
	store := NewRefreshTokenStore(db)

	insertTestRecord(t, store, "tok-1", "user-1", time.Now().Add(time.Hour))
	insertTestRecord(t, store, "tok-2", "user-1", time.Now().Add(time.Hour))
	insertTestRecord(t, store, "tok-3", "user-2", time.Now().Add(time.Hour))

	if err := store.RevokeAllForUser("user-1", time.Now()); err != nil {
		t.Fatalf("RevokeAllForUser() error = %v", err)
	}

	for _, id := range []string{"tok-1", "tok-2"} {
		record, _ := store.FindByTokenID(id)
		if !record.IsRevoked() {
			t.Errorf("record %s should be revoked", id)
		}
	}
	other, _ := store.FindByTokenID("tok-3")
	if other.IsRevoked() {
		t.Error("other user's record must stay active")
	}
}

func TestRefreshTokenStore_PurgeExpiredRevoked(t *testing.T) {
	db := setupTestDB(t)
	store := NewRefreshTokenStore(db)

	now := time.Now()
	cutoff := now.AddDate(0, 0, -30)

	// Revoked and expired long before the cutoff: purged.
	old := insertTestRecord(t, store, "tok-old", "user-1", now.AddDate(0, 0, -60))
	revokedAt := now.AddDate(0, 0, -60)
	old.RevokedAt = &revokedAt
	if err := db.Save(old).Error; err != nil {
		t.Fatal(err)
	}

	// Revoked but expired after the cutoff: kept for replay detection.
	recent := insertTestRecord(t, store, "tok-recent", "user-1", now.AddDate(0, 0, -1))
	recentRevokedAt := now.AddDate(0, 0, -2)
	recent.RevokedAt = &recentRevokedAt
	if err := db.Save(recent).Error; err != nil {
		t.Fatal(err)
	}

	// Expired but never revoked: kept.
	insertTestRecord(t, store, "tok-expired", "user-1", now.AddDate(0, 0, -60))

	// Active: kept.
	insertTestRecord(t, store, "tok-active", "user-1", now.Add(time.Hour))

	purged, err := store.PurgeExpiredRevoked(cutoff)
	if err != nil {
		t.Fatalf("PurgeExpiredRevoked() error = %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, expected 1", purged)
	}

	if record, _ := store.FindByTokenID("tok-old"); record != nil {
		t.Error("old revoked record should be gone")
	}
	for _, id := range []string{"tok-recent", "tok-expired", "tok-active"} {
		if record, _ := store.FindByTokenID(id); record == nil {
			t.Errorf("record %s should survive the purge", id)
		}
	}
}

func TestRetentionService_Sweep(t *testing.T) {
	db := setupTestDB(t)
	store := NewRefreshTokenStore(db)

	now := time.Now()
	old := insertTestRecord(t, store, "tok-old", "user-1", now.AddDate(0, 0, -90))
	revokedAt := now.AddDate(0, 0, -90)
	old.RevokedAt = &revokedAt
	if err := db.Save(old).Error; err != nil {
		t.Fatal(err)
	}
	insertTestRecord(t, store, "tok-active", "user-1", now.Add(time.Hour))

	svc := NewRetentionService(db, &config.RetentionConfig{
		Schedule:        "0 3 * * *",
		RefreshTokenAge: 30,
	})
	svc.Sweep()

	if record, _ := store.FindByTokenID("tok-old"); record != nil {
		t.Error("sweep should purge old revoked records")
	}
	if record, _ := store.FindByTokenID("tok-active"); record == nil {
		t.Error("sweep must keep active records")
	}
}
