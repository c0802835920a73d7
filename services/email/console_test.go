package emailsvc

import (
	"log"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/submission"
	logsvc "github.com/trezcool/imajine/services/logger"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewConsoleServiceMock(conf, logsvc.NewRollbarLogger(log.Default(), conf))

	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Ann Test", Address: "ann@test.test"}},
			Subject:      "Your submission has been graded",
			TemplateName: "grade_notification",
			TemplateData: submission.GradeNotification{
				StudentName:    "Ann Test",
				AssignmentName: "Essay",
				UnitCode:       "BM001",
				Grade:          72,
				Comment:        "Good structure",
			},
		},
		&core.EmailMessage{Subject: "nobody", BodyStr: "no recipients"},
		&core.EmailMessage{To: []mail.Address{{Address: "bob@test.test"}}, Subject: "empty"},
	)

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, `"Essay" (BM001) has been graded: 72/100`)
	assert.Contains(t, sent[0].TextContent, "Comment: Good structure")
	assert.Contains(t, sent[0].HTMLContent, "Essay")

	body := svc.format(sent[0])
	assert.Contains(t, body, "Subject: [Imajine] Your submission has been graded")
	assert.Contains(t, body, "To: \"Ann Test\" <ann@test.test>")
}
