package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/messaging"
	"github.com/officialmikal/elimusmart/tests"
)

func Test_messagingApi_broadcast(t *testing.T) {
	testutil.ResetDB(t, deps)

	testutil.CreateStudent(t, deps, "1023", "Kevin Otieno", "Grade 6", "A", 12500)
	testutil.CreateStudent(t, deps, "1045", "Sarah Mwangi", "Grade 5", "B", 0)
	testutil.CreateStudent(t, deps, "1102", "Brian Kipkorir", "Grade 6", "A", 4500)

	required := "this field is required"
	tests := []httpTest{
		{name: "teacher not allowed", path: "/v1/messaging/templates", role: core.RoleClassTeacher, wantCode: http.StatusForbidden},
		{name: "templates", path: "/v1/messaging/templates", role: core.RoleBursar, wantData: marchallObj(t, messaging.Templates)},
		{
			name: "template or content required", method: http.MethodPost, path: "/v1/messaging/broadcasts", role: core.RoleAdmin,
			body:     []byte(`{"target": "all", "channel": "SMS"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"template_id": required}),
		},
		{
			name: "grade required", method: http.MethodPost, path: "/v1/messaging/broadcasts", role: core.RoleAdmin,
			body:     []byte(`{"template_id": "t1", "target": "grade", "channel": "SMS"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"grade": required}),
		},
		{
			name: "unknown template", method: http.MethodPost, path: "/v1/messaging/broadcasts", role: core.RoleAdmin,
			body:     []byte(`{"template_id": "t9", "target": "all", "channel": "SMS"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"template_id": messaging.ErrUnknownTemplate.Error()}),
		},
		{
			name: "no recipients", method: http.MethodPost, path: "/v1/messaging/broadcasts", role: core.RoleAdmin,
			body:     []byte(`{"template_id": "t1", "target": "grade", "grade": "PP1", "channel": "SMS"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"target": messaging.ErrNoRecipients.Error()}),
		},
	}
	runHTTPTests(t, tests)

	t.Run("fee reminders", func(t *testing.T) {
		before := len(deps.SMS.SentMessages())

		body := []byte(`{"template_id": "FEE_REMINDER", "target": "balances", "channel": "WhatsApp"}`)
		req, rec := newRoleRequest(http.MethodPost, "/v1/messaging/broadcasts", core.RoleBursar, body)
		app.ServeHTTP(rec, req)
		if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
			return
		}

		var b messaging.Broadcast
		decode(t, rec, &b)
		assert.Equal(t, 2, b.Recipients)
		assert.Equal(t, 2, b.Sent)

		sent := deps.SMS.SentMessages()[before:]
		if assert.Len(t, sent, 2) {
			assert.Equal(t, core.ChannelWhatsApp, sent[0].Channel)
			assert.Equal(t,
				"Dear Parent/Guardian, Kevin Otieno (ADM: 1023) has an outstanding fee balance of KES 12,500. Please clear via M-Pesa. Accounts Office.",
				sent[0].Body,
			)
		}
	})

	t.Run("history", func(t *testing.T) {
		req, rec := newRoleRequest(http.MethodGet, "/v1/messaging/broadcasts", core.RoleAdmin)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var broadcasts []messaging.Broadcast
		decode(t, rec, &broadcasts)
		assert.Len(t, broadcasts, 1)
	})
}

func Test_dashboardApi_summary(t *testing.T) {
	testutil.ResetDB(t, deps)

	tests := []httpTest{
		{name: "parent not allowed", path: "/v1/dashboard", role: core.RoleParent, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "empty school", path: "/v1/dashboard", role: core.RoleSubjectTeacher,
			wantData: []byte(`{"students": 0, "average": {"mean": 0, "grade": "P"}, "fees_collected": "0",
				"fees_outstanding": "0", "efficiency": 0, "messages_sent": 0, "top_students": []}`),
		},
	}
	runHTTPTests(t, tests)

	testutil.CreateStudent(t, deps, "1023", "Kevin Otieno", "Grade 6", "A", 12500)
	testutil.CreateStudent(t, deps, "1045", "Sarah Mwangi", "Grade 5", "B", 0)

	t.Run("summary", func(t *testing.T) {
		req, rec := newRoleRequest(http.MethodGet, "/v1/dashboard", core.RoleAdmin)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var got struct {
			Students    int `json:"students"`
			TopStudents []struct {
				AdmNo string `json:"adm_no"`
			} `json:"top_students"`
		}
		decode(t, rec, &got)
		assert.Equal(t, 2, got.Students)
		assert.Len(t, got.TopStudents, 2)
	})
}
