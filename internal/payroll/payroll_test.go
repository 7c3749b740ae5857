package payroll

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/carwash-console/internal/model"
)

var april = model.MonthKey{Year: 2024, Month: time.April}

func workerWithPresentDays(present int) model.Worker {
	att := NewMonth(april)
	for day := 1; day <= present; day++ {
		att[day] = model.AttendancePresent
	}
	att[30] = model.AttendanceAbsent
	return model.Worker{
		ID:         "w1",
		Salary:     decimal.NewFromInt(3000),
		Attendance: map[model.MonthKey]model.MonthAttendance{april: att},
	}
}

func advance(amount int64, at time.Time) model.Advance {
	return model.Advance{Amount: decimal.NewFromInt(amount), Date: at}
}

func TestSummarize(t *testing.T) {
	inApril := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	inMay := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		advances    []model.Advance
		wantFinal   int64
		wantAdvance int64
		wantDeficit int64
	}{
		{name: "no advances", wantFinal: 1500},
		{name: "one advance in month", advances: []model.Advance{advance(500, inApril)}, wantFinal: 1000, wantAdvance: 500},
		{
			name:        "advances exceed base payment",
			advances:    []model.Advance{advance(1500, inApril), advance(500, inApril)},
			wantFinal:   0,
			wantAdvance: 2000,
			wantDeficit: 500,
		},
		{name: "advance in another month is ignored", advances: []model.Advance{advance(500, inMay)}, wantFinal: 1500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := workerWithPresentDays(15)
			w.Advances = tt.advances

			got := Summarize(w, april, time.UTC)

			assert.Equal(t, 30, got.DaysInMonth)
			assert.Equal(t, 15, got.PresentDays)
			assert.Equal(t, 1, got.AbsentDays)
			assert.True(t, decimal.NewFromInt(100).Equal(got.DailyRate), got.DailyRate.String())
			assert.True(t, decimal.NewFromInt(1500).Equal(got.BasePayment), got.BasePayment.String())
			assert.True(t, decimal.NewFromInt(tt.wantAdvance).Equal(got.TotalAdvances), got.TotalAdvances.String())
			assert.True(t, decimal.NewFromInt(tt.wantFinal).Equal(got.FinalPayment), got.FinalPayment.String())
			assert.True(t, decimal.NewFromInt(tt.wantDeficit).Equal(got.Deficit), got.Deficit.String())
		})
	}
}

func TestSummarizeDeficitIsNotCarriedForward(t *testing.T) {
	w := workerWithPresentDays(15)
	w.Advances = []model.Advance{advance(2000, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC))}
	may := model.MonthKey{Year: 2024, Month: time.May}
	mayAtt := NewMonth(may)
	for day := 1; day <= 31; day++ {
		mayAtt[day] = model.AttendancePresent
	}
	w.Attendance[may] = mayAtt

	got := Summarize(w, may, time.UTC)

	assert.True(t, decimal.NewFromInt(3000).Equal(got.FinalPayment), got.FinalPayment.String())
	assert.True(t, got.TotalAdvances.IsZero())
}

func TestSummarizeMissingMonth(t *testing.T) {
	w := model.Worker{Salary: decimal.NewFromInt(2900)}

	got := Summarize(w, model.MonthKey{Year: 2024, Month: time.February}, nil)

	assert.Equal(t, 29, got.DaysInMonth)
	assert.Zero(t, got.PresentDays)
	assert.True(t, decimal.NewFromInt(100).Equal(got.DailyRate))
	assert.True(t, got.FinalPayment.IsZero())
}

func TestSummarizeAdvanceMonthUsesLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	w := workerWithPresentDays(15)
	// 30 апреля 20:00 UTC - это уже 1 мая по Индии.
	w.Advances = []model.Advance{advance(500, time.Date(2024, 4, 30, 20, 0, 0, 0, time.UTC))}

	assert.True(t, Summarize(w, april, time.UTC).TotalAdvances.Equal(decimal.NewFromInt(500)))
	assert.True(t, Summarize(w, april, kolkata).TotalAdvances.IsZero())
}

func TestBulkSetThenToggle(t *testing.T) {
	w := model.Worker{}

	require.NoError(t, BulkSet(&w, april, model.AttendanceAbsent))
	require.Len(t, w.Attendance[april], 30)
	for day := 1; day <= 30; day++ {
		assert.Equal(t, model.AttendanceAbsent, w.Attendance[april][day])
	}

	next, err := Toggle(&w, april, 5)
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceNone, next)

	next, err = Toggle(&w, april, 5)
	require.NoError(t, err)
	assert.Equal(t, model.AttendancePresent, next)
	assert.Equal(t, model.AttendanceAbsent, w.Attendance[april][6])
}

func TestBulkSetOverwritesExistingEntries(t *testing.T) {
	w := workerWithPresentDays(10)

	require.NoError(t, BulkSet(&w, april, model.AttendancePresent))

	assert.Equal(t, 30, Summarize(w, april, time.UTC).PresentDays)
	assert.ErrorIs(t, BulkSet(&w, april, "holiday"), ErrInvalidStatus)
}

func TestToggleFullCycle(t *testing.T) {
	w := model.Worker{}
	feb := model.MonthKey{Year: 2024, Month: time.February}

	var seen []model.AttendanceStatus
	for i := 0; i < 3; i++ {
		s, err := Toggle(&w, feb, 29)
		require.NoError(t, err)
		seen = append(seen, s)
	}

	assert.Equal(t, []model.AttendanceStatus{model.AttendancePresent, model.AttendanceAbsent, model.AttendanceNone}, seen)
	assert.Len(t, w.Attendance[feb], 29, "missing month is initialised with every day")

	_, err := Toggle(&w, model.MonthKey{Year: 2023, Month: time.February}, 29)
	assert.ErrorIs(t, err, ErrInvalidDay)
	_, err = Toggle(&w, feb, 0)
	assert.ErrorIs(t, err, ErrInvalidDay)
}

func TestNewAdvance(t *testing.T) {
	now := time.Date(2024, 4, 3, 9, 0, 0, 0, time.UTC)

	adv, err := NewAdvance(decimal.NewFromInt(250), "", now)
	require.NoError(t, err)
	assert.Equal(t, DefaultAdvanceNote, adv.Note)
	assert.Equal(t, now, adv.Date)

	_, err = NewAdvance(decimal.Zero, "x", now)
	assert.ErrorIs(t, err, ErrInvalidAdvance)
	_, err = NewAdvance(decimal.NewFromInt(-5), "x", now)
	assert.ErrorIs(t, err, ErrInvalidAdvance)
}

func TestPresentDaysTotal(t *testing.T) {
	w := workerWithPresentDays(12)
	require.NoError(t, BulkSet(&w, model.MonthKey{Year: 2024, Month: time.May}, model.AttendancePresent))

	assert.Equal(t, 12+31, PresentDaysTotal(w))
}
