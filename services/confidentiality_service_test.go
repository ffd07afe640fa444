package services

import (
	"errors"
	"testing"

	"bounty-vault-system/models"
)

func (l *testLedger) mustCanView(t *testing.T, bounty *models.Bounty, caller string) bool {
	t.Helper()
	visible, err := canView(l.DB, bounty, caller)
	if err != nil {
		t.Fatalf("canView(%s): %v", caller, err)
	}
	return visible
}

func TestOpenBountyVisibleToEveryone(t *testing.T) {
	ledger := newTestLedger(t)
	bounty := ledger.postBounty(t, testCreator)

	for _, caller := range []string{"", testCreator, testStranger, testVerifier} {
		if !ledger.mustCanView(t, bounty, caller) {
			t.Fatalf("open bounty hidden from %q", caller)
		}
	}
}

func TestEncryptedBountyGating(t *testing.T) {
	ledger := newTestLedger(t)
	bounty := ledger.postEncryptedBounty(t, testCreator)

	tests := []struct {
		caller  string
		visible bool
	}{
		{"", false},
		{testStranger, false},
		{testSolver, false},
		{testCreator, true},
		{testVerifier, true},
		{testOwner, false}, // owning the system grants no content access
	}
	for _, tc := range tests {
		if got := ledger.mustCanView(t, bounty, tc.caller); got != tc.visible {
			t.Fatalf("caller %q: visible=%t, want %t", tc.caller, got, tc.visible)
		}
	}
}

func TestDiscloseGrantsAndIsIdempotent(t *testing.T) {
	ledger := newTestLedger(t)
	bounty := ledger.postEncryptedBounty(t, testCreator)

	if err := ledger.Confidentiality.disclose(bounty.ID, testSolver, testCreator); err != nil {
		t.Fatalf("disclose by creator: %v", err)
	}
	if !ledger.mustCanView(t, bounty, testSolver) {
		t.Fatal("grantee still cannot view")
	}

	// Repeats are no-ops, not errors — from creator or verifier alike
	if err := ledger.Confidentiality.disclose(bounty.ID, testSolver, testCreator); err != nil {
		t.Fatalf("repeat disclose: %v", err)
	}
	if err := ledger.Confidentiality.disclose(bounty.ID, testSolver, testVerifier); err != nil {
		t.Fatalf("repeat disclose by verifier: %v", err)
	}

	var grants int64
	ledger.DB.Model(&models.DisclosureGrant{}).
		Where("bounty_id = ? AND grantee = ?", bounty.ID, testSolver).
		Count(&grants)
	if grants != 1 {
		t.Fatalf("expected a single grant row, got %d", grants)
	}
}

func TestDiscloseAuthorization(t *testing.T) {
	ledger := newTestLedger(t)
	bounty := ledger.postEncryptedBounty(t, testCreator)

	for _, caller := range []string{testStranger, testSolver, testOwner} {
		err := ledger.Confidentiality.disclose(bounty.ID, testSolver2, caller)
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("caller %s: expected ErrUnauthorized, got %v", caller, err)
		}
	}

	if err := ledger.Confidentiality.disclose(999, testSolver, testCreator); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown bounty, got %v", err)
	}
	if err := ledger.Confidentiality.disclose(bounty.ID, "", testCreator); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty grantee, got %v", err)
	}
}

func TestGrantIsScopedToOneBounty(t *testing.T) {
	ledger := newTestLedger(t)
	first := ledger.postEncryptedBounty(t, testCreator)
	second := ledger.postEncryptedBounty(t, testCreator)

	if err := ledger.Confidentiality.disclose(first.ID, testSolver, testCreator); err != nil {
		t.Fatalf("disclose: %v", err)
	}

	if !ledger.mustCanView(t, first, testSolver) {
		t.Fatal("grantee cannot view the disclosed bounty")
	}
	if ledger.mustCanView(t, second, testSolver) {
		t.Fatal("grant leaked to an undisclosed bounty")
	}
}

func TestEncryptedEventsCarryNoTitle(t *testing.T) {
	ledger := newTestLedger(t)
	ledger.postEncryptedBounty(t, testCreator)

	var ev models.LedgerEvent
	if err := ledger.DB.Where("type = ?", models.EventBountyCreated).First(&ev).Error; err != nil {
		t.Fatalf("load creation event: %v", err)
	}
	if ev.Title != "" {
		t.Fatalf("encrypted bounty leaked title through event feed: %q", ev.Title)
	}
}
