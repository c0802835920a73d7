package progress

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/imajine/core"
)

func TestProgress_Percentage(t *testing.T) {
	now := time.Now().UTC()
	allowed := []int{0, 25, 50, 75, 100}

	tests := []struct {
		name  string
		weeks [4]string
		want  int
	}{
		{name: "nothing done", weeks: [4]string{NotDone, NotDone, NotDone, NotDone}, want: 0},
		{name: "first week", weeks: [4]string{Done, NotDone, NotDone, NotDone}, want: 25},
		{name: "two weeks", weeks: [4]string{Done, NotDone, Done, NotDone}, want: 50},
		{name: "three weeks", weeks: [4]string{NotDone, Done, Done, Done}, want: 75},
		{name: "all done", weeks: [4]string{Done, Done, Done, Done}, want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New("s1", "BM001", now)
			p.Week1Material, p.Week2Material, p.Week3Material, p.Week4Material = tt.weeks[0], tt.weeks[1], tt.weeks[2], tt.weeks[3]

			assert.Equal(t, tt.want, p.Percentage())
			assert.Contains(t, allowed, p.Percentage())
			assert.Equal(t, tt.want/25, p.CompletedWeeks())
		})
	}
}

func TestAverageProgress(t *testing.T) {
	now := time.Now().UTC()
	half := New("s1", "BM001", now)
	half.Week1Material, half.Week2Material = Done, Done
	quarter := New("s2", "BM001", now)
	quarter.Week4Material = Done
	full := New("s3", "BM001", now)
	full.Week1Material, full.Week2Material, full.Week3Material, full.Week4Material = Done, Done, Done, Done

	assert.Equal(t, 0, AverageProgress(nil))
	assert.Equal(t, 50, AverageProgress([]Progress{half}))
	assert.Equal(t, 58, AverageProgress([]Progress{half, quarter, full})) // 175 / 3
}

func TestUpdateProgress_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	done, invalid := "done", "HALF"
	up := UpdateProgress{Week2Material: &done}
	require.NoError(t, up.Validate(validate))
	assert.Equal(t, Done, *up.Week2Material)

	p := New("s1", "BM001", time.Now().UTC())
	up.apply(&p)
	assert.Equal(t, NotDone, p.Week1Material)
	assert.Equal(t, Done, p.Week2Material)

	up = UpdateProgress{Week3Material: &invalid}
	assert.Error(t, up.Validate(validate))
}

func TestUpdateProgress_apply(t *testing.T) {
	p := New("s1", "BM001", time.Now().UTC())
	p.Week2Material = Done

	done, notDone := Done, NotDone
	UpdateProgress{Week1Material: &done, Week2Material: &notDone}.apply(&p)
	assert.Equal(t, [4]string{Done, NotDone, NotDone, NotDone}, [4]string{p.Week1Material, p.Week2Material, p.Week3Material, p.Week4Material})

	UpdateProgress{Week3Material: &done}.apply(&p)
	assert.Equal(t, [4]string{Done, NotDone, Done, NotDone}, [4]string{p.Week1Material, p.Week2Material, p.Week3Material, p.Week4Material})

	UpdateProgress{}.apply(&p)
	assert.Equal(t, 50, p.Percentage())
}
