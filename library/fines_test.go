package library

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccrueFine(t *testing.T) {
	midnight := func(daysBefore int) time.Time {
		d := testNow.AddDate(0, 0, -daysBefore)
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.Local)
	}
	tests := []struct {
		name string
		due  time.Time
		want string
	}{
		{"not yet due", midnight(-3), "0.00"},
		{"due today", midnight(0), "0.00"},
		{"one day", midnight(1), "0.15"},
		{"thirty days", midnight(30), "4.50"},
		{"capped", midnight(400), "25.00"},
		{"unparsed due date", time.Time{}, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AccrueFine(LoanRecord{Due: tt.due}, testNow)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestAccrueFineCountsCalendarDaysAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Clocks go forward on 10 March 2024, so this span is one hour short of 15 days.
	due := time.Date(2024, time.March, 5, 0, 0, 0, 0, ny)
	now := time.Date(2024, time.March, 20, 0, 30, 0, 0, ny)
	assert.Equal(t, "2.25", AccrueFine(LoanRecord{Due: due}, now).StringFixed(2))

	// Clocks go back on 3 November 2024; the extra hour must not add a day.
	due = time.Date(2024, time.October, 30, 0, 0, 0, 0, ny)
	now = time.Date(2024, time.November, 4, 23, 30, 0, 0, ny)
	assert.Equal(t, "0.75", AccrueFine(LoanRecord{Due: due}, now).StringFixed(2))
}

func TestRecomputeAllNeverLowersStoredFine(t *testing.T) {
	mgr, paths := newLending(t)
	writeTable(t, paths.Accounts, accountHeader+
		ann+",Ann,Lee,ann,[],0.00,\n"+
		ben+",Ben,Ray,ben,[],10.00,\n")
	writeTable(t, paths.Loans, loanHeader+
		"Dune,"+ann+","+daysAgo(51)+","+daysAgo(30)+",1,Book\n"+
		"Emma,"+ben+","+daysAgo(51)+","+daysAgo(30)+",2,Book\n")

	changes, err := mgr.Reconciler().RecomputeAll()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ann, changes[0].AccountNumber)
	assert.Equal(t, "4.50", changes[0].Applied.StringFixed(2))

	a, err := mgr.Ledger().FindByAccountNumber(ann)
	require.NoError(t, err)
	assert.Equal(t, "4.50", a.Fine.StringFixed(2))
	b, err := mgr.Ledger().FindByAccountNumber(ben)
	require.NoError(t, err)
	assert.Equal(t, "10.00", b.Fine.StringFixed(2))

	again, err := mgr.Reconciler().RecomputeAll()
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestRecomputeAllSumsLoansAndRefreshesBorrowerView(t *testing.T) {
	mgr, paths := newLending(t)
	writeTable(t, paths.Loans, loanHeader+
		"Dune,"+ann+","+daysAgo(30)+","+daysAgo(10)+",1,Book\n"+
		"Emma,"+ann+","+daysAgo(300)+","+daysAgo(200)+",2,Book\n"+
		"Beloved,"+ann+","+daysAgo(1)+","+daysAgo(-20)+",3,Book\n"+
		"Ghost,404,"+daysAgo(30)+","+daysAgo(10)+",4,Book\n")

	mgr.Borrowers().Reset(mgr.Ledger().Accounts())
	cached, ok := mgr.Borrowers().Get(ann)
	require.True(t, ok)

	changes, err := mgr.Reconciler().RecomputeAll()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	// 10 days at 0.15 plus the capped 25.00.
	assert.Equal(t, "26.50", changes[0].Accrued.StringFixed(2))
	assert.Equal(t, "26.50", cached.Fine.StringFixed(2))
}

func TestRecomputeAllIgnoresSubCentDrift(t *testing.T) {
	mgr, paths := newLending(t)
	writeTable(t, paths.Accounts, accountHeader+ann+",Ann,Lee,ann,[],4.495,\n")
	writeTable(t, paths.Loans, loanHeader+"Dune,"+ann+","+daysAgo(51)+","+daysAgo(30)+",1,Book\n")

	changes, err := mgr.Reconciler().RecomputeAll()
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestRecomputeAllJoinsCommitFailures(t *testing.T) {
	mgr, paths := newLending(t)
	writeTable(t, paths.Loans, loanHeader+"Dune,"+ann+","+daysAgo(51)+","+daysAgo(30)+",1,Book\n")

	ledger := NewLedger(droppingStore{mgr.Store()}, paths.Accounts, testHasher(), testOptions()...)
	engine := NewEngine(mgr.Store(), paths.Catalogue, paths.Loans, ledger, testOptions()...)
	r := NewReconciler(engine, ledger, nil, testOptions()...)

	changes, err := r.RecomputeAll()
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Empty(t, changes)
}

func TestFineReport(t *testing.T) {
	mgr, paths := newLending(t)
	writeTable(t, paths.Accounts, accountHeader+
		"202406150001,Ann,Lee,ann,[],4.50,\n"+
		"202406150002,Ben,Ray,ben,[],0,\n"+
		"202406150003,Cat,Orr,cat,[],10.00,\n"+
		"202406150004,Dee,Fox,dee,[],1.25,\n")

	rep := mgr.Reconciler().Report()
	assert.Equal(t, testNow, rep.GeneratedAt)
	require.Equal(t, 3, rep.Count)
	assert.Equal(t, []string{"cat", "ann", "dee"}, []string{rep.Entries[0].Username, rep.Entries[1].Username, rep.Entries[2].Username})
	assert.Equal(t, "15.75", rep.Total.StringFixed(2))
	assert.Equal(t, "5.25", rep.Average.StringFixed(2))
	assert.True(t, rep.Max.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "1.25", rep.Min.StringFixed(2))

	out := paths.Accounts + ".report.csv"
	require.NoError(t, rep.WriteCSV(mgr.Store(), out))
	assert.Equal(t, "account number,username,first name,last name,fine amount\n"+
		"202406150003,cat,Cat,Orr,10.00\n"+
		"202406150001,ann,Ann,Lee,4.50\n"+
		"202406150004,dee,Dee,Fox,1.25\n", readTable(t, out))
}

func TestFineReportEmpty(t *testing.T) {
	mgr, _ := newLending(t)
	rep := mgr.Reconciler().Report()
	assert.Zero(t, rep.Count)
	assert.Empty(t, rep.Entries)
	assert.True(t, rep.Total.IsZero())
}
