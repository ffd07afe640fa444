package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"bounty-vault-system/models"
)

func TestSubmitSolutionCountsApplicants(t *testing.T) {
	ledger := newTestLedger(t)
	bounty := ledger.postBounty(t, testCreator)

	first := ledger.submitSolution(t, bounty.ID, testSolver, 80)
	if first.Status != models.SolutionStatusSubmitted {
		t.Fatalf("expected submitted, got %s", first.Status)
	}
	if got := ledger.reloadBounty(t, bounty.ID).ApplicantCount; got != 1 {
		t.Fatalf("expected applicant count 1, got %d", got)
	}

	ledger.submitSolution(t, bounty.ID, testSolver2, 60)
	if got := ledger.reloadBounty(t, bounty.ID).ApplicantCount; got != 2 {
		t.Fatalf("expected applicant count 2, got %d", got)
	}

	if got := ledger.eventCount(t, models.EventSolutionSubmitted); got != 2 {
		t.Fatalf("expected 2 submission events, got %d", got)
	}
}

func TestSubmitSolutionAfterDeadlineFails(t *testing.T) {
	ledger := newTestLedger(t)
	bounty := ledger.postBounty(t, testCreator)

	ledger.Clock.Advance(2 * time.Hour)

	_, err := ledger.Solutions.submit(bounty.ID, testSolver, 80, false, "deadbeef")
	if !errors.Is(err, ErrBountyClosed) {
		t.Fatalf("expected ErrBountyClosed, got %v", err)
	}
	// The failed submission left no trace
	if got := ledger.reloadBounty(t, bounty.ID).ApplicantCount; got != 0 {
		t.Fatalf("failed submission must not count, got %d applicants", got)
	}
	var solutions int64
	ledger.DB.Model(&models.Solution{}).Count(&solutions)
	if solutions != 0 {
		t.Fatalf("failed submission must not persist, found %d", solutions)
	}
}

func TestSubmitSolutionUnknownBounty(t *testing.T) {
	ledger := newTestLedger(t)

	_, err := ledger.Solutions.submit(999, testSolver, 80, false, "deadbeef")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDecideRequiresCreator(t *testing.T) {
	ledger := newTestLedger(t)
	bounty := ledger.postBounty(t, testCreator)
	solution := ledger.submitSolution(t, bounty.ID, testSolver, 80)

	for _, caller := range []string{testSolver, testStranger, testVerifier} {
		if err := ledger.Solutions.decide(solution.ID, true, caller); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("caller %s: expected ErrUnauthorized, got %v", caller, err)
		}
	}

	// Nothing moved
	if got := ledger.reloadSolution(t, solution.ID).Status; got != models.SolutionStatusSubmitted {
		t.Fatalf("solution moved to %s on unauthorized decide", got)
	}
	if got := ledger.reloadBounty(t, bounty.ID).Status; got != models.BountyStatusActive {
		t.Fatalf("bounty moved to %s on unauthorized decide", got)
	}
}

func TestAcceptCompletesBountyAndMassRejects(t *testing.T) {
	ledger := newTestLedger(t)
	bounty := ledger.postBounty(t, testCreator)
	winner := ledger.submitSolution(t, bounty.ID, testSolver, 80)
	loser1 := ledger.submitSolution(t, bounty.ID, testSolver2, 90)
	loser2 := ledger.submitSolution(t, bounty.ID, testStranger, 10)

	if err := ledger.Solutions.decide(winner.ID, true, testCreator); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if got := ledger.reloadSolution(t, winner.ID).Status; got != models.SolutionStatusAccepted {
		t.Fatalf("winner status %s", got)
	}
	for _, id := range []uint64{loser1.ID, loser2.ID} {
		if got := ledger.reloadSolution(t, id).Status; got != models.SolutionStatusRejected {
			t.Fatalf("solution %d should be mass-rejected, got %s", id, got)
		}
	}
	if got := ledger.reloadBounty(t, bounty.ID).Status; got != models.BountyStatusCompleted {
		t.Fatalf("bounty status %s", got)
	}

	rec := ledger.reputationOf(t, testSolver)
	if rec.CompletedBounties != 1 {
		t.Fatalf("expected 1 completed bounty, got %d", rec.CompletedBounties)
	}
	// hard (weight 3) at quality 80 → 3 × 90
	if rec.Reputation != 270 {
		t.Fatalf("expected reputation 270, got %d", rec.Reputation)
	}

	if got := ledger.eventCount(t, models.EventBountyCompleted); got != 1 {
		t.Fatalf("expected 1 completion event, got %d", got)
	}
}

func TestRejectKeepsBountyOpen(t *testing.T) {
	ledger := newTestLedger(t)
	bounty := ledger.postBounty(t, testCreator)
	solution := ledger.submitSolution(t, bounty.ID, testSolver, 80)

	if err := ledger.Solutions.decide(solution.ID, false, testCreator); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if got := ledger.reloadSolution(t, solution.ID).Status; got != models.SolutionStatusRejected {
		t.Fatalf("expected rejected, got %s", got)
	}
	if got := ledger.reloadBounty(t, bounty.ID).Status; got != models.BountyStatusActive {
		t.Fatalf("bounty must stay active after a rejection, got %s", got)
	}

	// Another solver can still come in
	ledger.submitSolution(t, bounty.ID, testSolver2, 70)
}

func TestDoubleDecisionIsRejectedNotIgnored(t *testing.T) {
	ledger := newTestLedger(t)
	bounty := ledger.postBounty(t, testCreator)
	solution := ledger.submitSolution(t, bounty.ID, testSolver, 80)

	if err := ledger.Solutions.decide(solution.ID, true, testCreator); err != nil {
		t.Fatalf("first decide: %v", err)
	}

	for _, accept := range []bool{true, false} {
		if err := ledger.Solutions.decide(solution.ID, accept, testCreator); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("second decide (accept=%t): expected ErrInvalidTransition, got %v", accept, err)
		}
	}

	rec := ledger.reputationOf(t, testSolver)
	if rec.CompletedBounties != 1 {
		t.Fatalf("double decide double-credited: %d completions", rec.CompletedBounties)
	}
}

func TestLateAcceptOnExpiredBountyFails(t *testing.T) {
	ledger := newTestLedger(t)
	bounty := ledger.postBounty(t, testCreator)
	solution := ledger.submitSolution(t, bounty.ID, testSolver, 80)

	ledger.Clock.Advance(2 * time.Hour)

	err := ledger.Solutions.decide(solution.ID, true, testCreator)
	if !errors.Is(err, ErrBountyClosed) {
		t.Fatalf("expected ErrBountyClosed, got %v", err)
	}
	if got := ledger.reloadBounty(t, bounty.ID).Status; got == models.BountyStatusCompleted {
		t.Fatal("expired bounty reached completed through a late accept")
	}
	if got := ledger.reloadSolution(t, solution.ID).Status; got != models.SolutionStatusSubmitted {
		t.Fatalf("failed accept must not move the solution, got %s", got)
	}
}

func TestConcurrentDecidesAcceptExactlyOne(t *testing.T) {
	ledger := newTestLedger(t)
	bounty := ledger.postBounty(t, testCreator)

	const contenders = 8
	solutions := make([]*models.Solution, contenders)
	solvers := []string{testSolver, testSolver2, testStranger}
	for i := range solutions {
		solutions[i] = ledger.submitSolution(t, bounty.ID, solvers[i%len(solvers)], uint32(10*i))
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := range solutions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ledger.Solutions.decide(solutions[i].ID, true, testCreator)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInvalidTransition):
			// lost the race — its solution was mass-rejected first
		default:
			t.Fatalf("decide %d: unexpected error %v", i, err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one accepted decide, got %d", succeeded)
	}

	var accepted int64
	ledger.DB.Model(&models.Solution{}).
		Where("bounty_id = ? AND status = ?", bounty.ID, models.SolutionStatusAccepted).
		Count(&accepted)
	if accepted != 1 {
		t.Fatalf("expected exactly one accepted solution, found %d", accepted)
	}

	rec := ledger.reputationOf(t, ledgerAcceptedSolver(t, ledger, bounty.ID))
	if rec.CompletedBounties != 1 {
		t.Fatalf("winner credited %d times", rec.CompletedBounties)
	}
}

func ledgerAcceptedSolver(t *testing.T, ledger *testLedger, bountyID uint64) string {
	t.Helper()
	var accepted models.Solution
	if err := ledger.DB.Where("bounty_id = ? AND status = ?", bountyID, models.SolutionStatusAccepted).
		First(&accepted).Error; err != nil {
		t.Fatalf("load accepted solution: %v", err)
	}
	return accepted.Solver
}
