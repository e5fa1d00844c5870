package store

import (
	"context"
	"time"

	"credvault/internal/claim/models"
)

// SeedDemoData loads the demo holders and claims, including one
// revoked-then-revised transcript chain, so a fresh instance has something
// to show in every role.
func SeedDemoData(claims *InMemoryClaimStore, holders *InMemoryHolderStore) {
	ctx := context.Background()
	day := func(s string) time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return t
	}

	for _, h := range []models.Holder{
		{ID: "S001", Name: "Ravi Kumar", Email: "ravi@credvault.test", Batch: "2021-2025", Dept: "Computer Science"},
		{ID: "S002", Name: "Priya Sharma", Email: "priya@credvault.test", Batch: "2020-2024", Dept: "Mechanical Eng"},
		{ID: "S003", Name: "Arjun Mehta", Email: "arjun@credvault.test", Batch: "2021-2025", Dept: "Electrical Eng"},
	} {
		_ = holders.Save(ctx, h)
	}

	seed := []models.Claim{
		{ID: "C001", HolderID: "S001", Kind: models.KindTranscript, Value: "Sem 5 - 8.8 CGPA", Issuer: "Academic Office", IssuedOn: day("2024-11-01"), Status: models.StatusActive, Visible: true},
		{ID: "C002", HolderID: "S001", Kind: models.KindDegree, Value: "B.Tech CS", Issuer: "University Registrar", IssuedOn: day("2024-12-15"), Status: models.StatusActive, Visible: true},
		{ID: "C003", HolderID: "S001", Kind: models.KindClearance, Value: "Campus No Dues", Issuer: "Campus Admin", IssuedOn: day("2025-01-10"), Status: models.StatusActive, Visible: false},
		{ID: "C004", HolderID: "S002", Kind: models.KindAward, Value: "Best Outgoing Student", Issuer: "Campus Admin", IssuedOn: day("2024-10-05"), Status: models.StatusActive, Visible: true},
		{ID: "C005", HolderID: "S002", Kind: models.KindEmployment, Value: "Verified: Google Cloud India", Issuer: "Placement Cell", IssuedOn: day("2024-12-20"), Status: models.StatusActive, Visible: true},
		{ID: "C006", HolderID: "S003", Kind: models.KindTranscript, Value: "Sem 5 - 6.5 CGPA", Issuer: "Academic Office", IssuedOn: day("2024-11-01"), Status: models.StatusActive, Visible: true},
		{ID: "C007", HolderID: "S003", Kind: models.KindTranscript, Value: "Sem 5 - 7.2 CGPA (Revised)", Issuer: "Academic Office", IssuedOn: day("2024-12-05"), Status: models.StatusActive, Visible: true},
	}
	for _, c := range seed {
		_ = claims.Insert(ctx, c)
	}

	// C006 was revised into C007, and C004 was later revoked. Applied through
	// Update so the seed goes through the same invariant checks as live
	// traffic.
	_, _ = claims.Update(ctx, "C006", func(c *models.Claim) error {
		c.Status = models.StatusSuperseded
		c.NextVersionID = "C007"
		return nil
	})
	_, _ = claims.Update(ctx, "C007", func(c *models.Claim) error {
		c.PreviousVersionID = "C006"
		return nil
	})
	_, _ = claims.Update(ctx, "C004", func(c *models.Claim) error {
		c.Status = models.StatusRevoked
		c.RevocationReason = "Administrative action"
		c.RevokedAt = day("2025-01-20")
		return nil
	})
}
