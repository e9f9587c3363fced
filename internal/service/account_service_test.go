package service

import (
	"errors"
	"testing"

	"tokenledger/internal/model"
	"tokenledger/internal/repository"
)

func TestGetOrCreateNewAccount(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountService(db)

	account, err := accounts.GetOrCreate(testCtx, 3001, "alice", "")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if account.TgID != 3001 || account.Username != "alice" {
		t.Errorf("account = %+v, want tg 3001 alice", account)
	}
	if account.SelectedTier != model.TierNano {
		t.Errorf("tier = %s, want default nano", account.SelectedTier)
	}
	if len(account.ReferralCode) != 8 {
		t.Errorf("referral code = %q, want 8 chars", account.ReferralCode)
	}
	if account.ReferrerID != nil {
		t.Error("fresh account has a referrer")
	}
	if account.Diamonds != 0 || account.Bananas != 0 {
		t.Errorf("fresh balances = %d/%d, want 0/0", account.Diamonds, account.Bananas)
	}
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountService(db)

	first, err := accounts.GetOrCreate(testCtx, 3002, "bob", "")
	if err != nil {
		t.Fatalf("first GetOrCreate: %v", err)
	}
	second, err := accounts.GetOrCreate(testCtx, 3002, "bobby", "")
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second call created a new account %d, want %d", second.ID, first.ID)
	}
	if second.Username != "bobby" {
		t.Errorf("username = %q, want refreshed bobby", second.Username)
	}
	if got := reloadAccount(t, db, first.ID); got.Username != "bobby" {
		t.Errorf("stored username = %q, want bobby", got.Username)
	}
}

func TestGetOrCreateWithReferralCode(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountService(db)

	referrer, err := accounts.GetOrCreate(testCtx, 3003, "carol", "")
	if err != nil {
		t.Fatalf("create referrer: %v", err)
	}
	referred, err := accounts.GetOrCreate(testCtx, 3004, "dave", referrer.ReferralCode)
	if err != nil {
		t.Fatalf("create referred: %v", err)
	}
	if referred.ReferrerID == nil || *referred.ReferrerID != referrer.ID {
		t.Fatalf("referrer id = %v, want %d", referred.ReferrerID, referrer.ID)
	}

	count, err := accounts.ReferralCount(testCtx, referrer.ID)
	if err != nil {
		t.Fatalf("ReferralCount: %v", err)
	}
	if count != 1 {
		t.Errorf("referral count = %d, want 1", count)
	}

	// Attribution is permanent: a later contact with someone else's code
	// changes nothing.
	other, err := accounts.GetOrCreate(testCtx, 3005, "eve", "")
	if err != nil {
		t.Fatalf("create other: %v", err)
	}
	again, err := accounts.GetOrCreate(testCtx, 3004, "dave", other.ReferralCode)
	if err != nil {
		t.Fatalf("re-contact: %v", err)
	}
	if again.ReferrerID == nil || *again.ReferrerID != referrer.ID {
		t.Errorf("referrer changed to %v, want still %d", again.ReferrerID, referrer.ID)
	}
}

func TestGetOrCreateIgnoresBadReferralCodes(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountService(db)

	// Unknown code: account still created, unattributed.
	account, err := accounts.GetOrCreate(testCtx, 3006, "frank", "NOSUCH00")
	if err != nil {
		t.Fatalf("GetOrCreate with unknown code: %v", err)
	}
	if account.ReferrerID != nil {
		t.Error("unknown code produced a referrer")
	}
}

func TestGetOrCreateIgnoresSelfReferral(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountService(db)

	// An account presenting its own code must never link to itself.
	seeded := seedAccount(t, db, 3008, 0, 0)

	account, err := accounts.GetOrCreate(testCtx, 3008, "grace", seeded.ReferralCode)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if account.ID != seeded.ID {
		t.Fatalf("got new account %d, want existing %d", account.ID, seeded.ID)
	}
	if account.ReferrerID != nil {
		t.Error("existing account gained a referrer")
	}

	count, err := accounts.ReferralCount(testCtx, seeded.ID)
	if err != nil {
		t.Fatalf("ReferralCount: %v", err)
	}
	if count != 0 {
		t.Errorf("self-referral counted: %d", count)
	}
}

func TestSetSelectedTier(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountService(db)
	account := seedAccount(t, db, 3009, 0, 0)

	if err := accounts.SetSelectedTier(testCtx, account.ID, model.TierPro); err != nil {
		t.Fatalf("SetSelectedTier: %v", err)
	}
	if got := reloadAccount(t, db, account.ID); got.SelectedTier != model.TierPro {
		t.Errorf("tier = %s, want pro", got.SelectedTier)
	}

	if err := accounts.SetSelectedTier(testCtx, account.ID, "ultra"); !errors.Is(err, ErrInvalidTier) {
		t.Errorf("SetSelectedTier(ultra) err = %v, want ErrInvalidTier", err)
	}
	if err := accounts.SetSelectedTier(testCtx, 9999, model.TierNano); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Errorf("SetSelectedTier(missing) err = %v, want ErrAccountNotFound", err)
	}
}

func TestSetSelectedPreset(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountService(db)
	account := seedAccount(t, db, 3010, 0, 0)

	preset := "cyberpunk"
	if err := accounts.SetSelectedPreset(testCtx, account.ID, &preset); err != nil {
		t.Fatalf("SetSelectedPreset: %v", err)
	}
	got := reloadAccount(t, db, account.ID)
	if got.SelectedPreset == nil || *got.SelectedPreset != preset {
		t.Errorf("preset = %v, want cyberpunk", got.SelectedPreset)
	}

	if err := accounts.SetSelectedPreset(testCtx, account.ID, nil); err != nil {
		t.Fatalf("clear preset: %v", err)
	}
	if got := reloadAccount(t, db, account.ID); got.SelectedPreset != nil {
		t.Errorf("preset = %v, want cleared", got.SelectedPreset)
	}
}

func TestFindByTgIDOrUsername(t *testing.T) {
	db := newTestDB(t)
	accounts := NewAccountService(db)
	account := seedAccount(t, db, 3011, 0, 0)
	if err := db.Model(account).Update("username", "henry").Error; err != nil {
		t.Fatalf("set username: %v", err)
	}

	byID, err := accounts.Find(testCtx, "3011")
	if err != nil || byID.ID != account.ID {
		t.Errorf("Find(tg id) = %v, %v", byID, err)
	}
	byName, err := accounts.Find(testCtx, "henry")
	if err != nil || byName.ID != account.ID {
		t.Errorf("Find(username) = %v, %v", byName, err)
	}
	if _, err := accounts.Find(testCtx, "nobody"); !errors.Is(err, repository.ErrAccountNotFound) {
		t.Errorf("Find(missing) err = %v, want ErrAccountNotFound", err)
	}
}
