package services

import (
	"sync"
	"testing"
	"time"

	"bounty-vault-system/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testOwner    = "0xowner"
	testVerifier = "0xverifier"
	testCreator  = "0xcreator"
	testSolver   = "0xsolver"
	testSolver2  = "0xsolver2"
	testStranger = "0xstranger"
)

// fakeClock makes deadline behavior deterministic: tests move time instead
// of sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testLedger struct {
	DB    *gorm.DB
	Clock *fakeClock

	Bounties        *BountyService
	Solutions       *SolutionService
	Escrow          *EscrowService
	Reputation      *ReputationService
	Roles           *RolesService
	Confidentiality *ConfidentialityService
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// One connection keeps the in-memory database alive and serializes
	// sqlite access under concurrent tests.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Bounty{},
		&models.Solution{},
		&models.ReputationRecord{},
		&models.DisclosureGrant{},
		&models.RoleAssignment{},
		&models.LedgerEvent{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	roles := NewRolesService(db)
	if err := roles.Bootstrap(testOwner, testVerifier); err != nil {
		t.Fatalf("bootstrap roles: %v", err)
	}

	clk := newFakeClock()
	bounties := NewBountyService(db)
	bounties.Now = clk.Now
	solutions := NewSolutionService(db)
	solutions.Now = clk.Now
	escrow := NewEscrowService(db)
	escrow.Now = clk.Now

	return &testLedger{
		DB:              db,
		Clock:           clk,
		Bounties:        bounties,
		Solutions:       solutions,
		Escrow:          escrow,
		Reputation:      NewReputationService(db),
		Roles:           roles,
		Confidentiality: NewConfidentialityService(db),
	}
}

// postBounty creates a plain hard bounty due in an hour.
func (l *testLedger) postBounty(t *testing.T, creator string) *models.Bounty {
	t.Helper()
	bounty, err := l.Bounties.createBounty(creator, "Recover the cipher", "Full writeup required", 5, "hard", false, l.Clock.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create bounty: %v", err)
	}
	return bounty
}

func (l *testLedger) postEncryptedBounty(t *testing.T, creator string) *models.Bounty {
	t.Helper()
	bounty, err := l.Bounties.createBounty(creator, "Secret contract audit", "Scope under NDA", 7, "expert", true, l.Clock.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create encrypted bounty: %v", err)
	}
	return bounty
}

func (l *testLedger) submitSolution(t *testing.T, bountyID uint64, solver string, quality uint32) *models.Solution {
	t.Helper()
	solution, err := l.Solutions.submit(bountyID, solver, quality, false, "deadbeef")
	if err != nil {
		t.Fatalf("submit solution: %v", err)
	}
	return solution
}

func (l *testLedger) reloadBounty(t *testing.T, id uint64) *models.Bounty {
	t.Helper()
	var bounty models.Bounty
	if err := l.DB.First(&bounty, "id = ?", id).Error; err != nil {
		t.Fatalf("reload bounty %d: %v", id, err)
	}
	return &bounty
}

func (l *testLedger) reloadSolution(t *testing.T, id uint64) *models.Solution {
	t.Helper()
	var solution models.Solution
	if err := l.DB.First(&solution, "id = ?", id).Error; err != nil {
		t.Fatalf("reload solution %d: %v", id, err)
	}
	return &solution
}

func (l *testLedger) reputationOf(t *testing.T, address string) *models.ReputationRecord {
	t.Helper()
	var rec models.ReputationRecord
	if err := l.DB.Where("address = ?", address).First(&rec).Error; err != nil {
		t.Fatalf("reload reputation for %s: %v", address, err)
	}
	return &rec
}

func (l *testLedger) eventCount(t *testing.T, typ models.LedgerEventType) int64 {
	t.Helper()
	var count int64
	if err := l.DB.Model(&models.LedgerEvent{}).Where("type = ?", typ).Count(&count).Error; err != nil {
		t.Fatalf("count %s events: %v", typ, err)
	}
	return count
}
