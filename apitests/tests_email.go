package apitests

import (
	"fmt"
	"time"

	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/servicedef"

	"github.com/stretchr/testify/assert"
)

// fallbackRecipient receives test mail when no client account is configured.
const fallbackRecipient = "astroprobe@example.com"

func DoEmailTests(t *T) {
	t.Run("send email", func(t *T) {
		t.RequireCapability(CapabilityEmail)
		to := t.Config().Client.Email
		if to == "" {
			to = fallbackRecipient
		}
		resp := t.Do(t.Anonymous(), t.slow(framework.Request{
			Method: "POST",
			Path:   "/api/send-email",
			JSONBody: servicedef.SendEmailParams{
				To:      to,
				Subject: "astroprobe email check",
				HTML:    fmt.Sprintf("<p>Sent by astroprobe at %s.</p>", time.Now().UTC().Format(time.RFC3339)),
			},
		}))
		t.RequireStatus(resp, 200)
		obj := t.RequireObject(resp)
		assert.True(t, obj.GetByKey("success").BoolValue(), "success was not true")
		assert.NotEmpty(t, obj.GetByKey("messageId").StringValue(), "no messageId")
		t.Detailf("Message %s", obj.GetByKey("messageId").StringValue())
	})
}
