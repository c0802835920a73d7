package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func grade(g float64) *float64 { return &g }

func TestComputeMetrics(t *testing.T) {
	tests := []struct {
		name string
		subs []Submission
		want Metrics
	}{
		{name: "no submissions", want: Metrics{}},
		{
			name: "ungraded are left out of the average",
			subs: []Submission{
				{SubmissionStatus: StatusSubmitted, Grade: grade(80)},
				{SubmissionStatus: StatusSubmitted, Grade: grade(60)},
				{SubmissionStatus: StatusSubmitted},
			},
			want: Metrics{Total: 3, Submitted: 3, Graded: 2, SubmissionRate: 100, AverageGrade: 70},
		},
		{
			name: "submission rate",
			subs: []Submission{
				{SubmissionStatus: StatusSubmitted},
				{SubmissionStatus: StatusSubmitted},
				{SubmissionStatus: StatusDraft},
				{SubmissionStatus: StatusEmpty},
			},
			want: Metrics{Total: 4, Submitted: 2, SubmissionRate: 50},
		},
		{
			name: "failed under the passing grade",
			subs: []Submission{
				{SubmissionStatus: StatusSubmitted, Grade: grade(59.5)},
				{SubmissionStatus: StatusUnsubmitted, Grade: grade(0)},
				{SubmissionStatus: StatusSubmitted, Grade: grade(60)},
			},
			want: Metrics{Total: 3, Submitted: 2, Graded: 3, Failed: 2, SubmissionRate: 67, AverageGrade: 40},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeMetrics(tt.subs))
		})
	}
}
