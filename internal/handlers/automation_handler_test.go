package handlers

import (
	"net/http"
	"testing"

	"socialpilot/internal/models"
	"socialpilot/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutomationHandler_ListWithStatusFilter(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/v1/automations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]services.RuleView](t, w)
	require.Len(t, all, 3)
	assert.Equal(t, "auto1", all[0].ID)
	assert.Equal(t, "My Awesome Biz IG", all[0].AccountName)
	assert.Equal(t, "New follower", all[0].Summary.Trigger)

	w = app.do(t, http.MethodGet, "/api/v1/automations?status=paused", nil)
	require.Equal(t, http.StatusOK, w.Code)
	paused := decode[[]services.RuleView](t, w)
	require.Len(t, paused, 1)
	assert.Equal(t, "auto3", paused[0].ID)

	w = app.do(t, http.MethodGet, "/api/v1/automations?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Fields, "status")
}

func TestAutomationHandler_CreateGetUpdate(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/v1/automations", map[string]interface{}{
		"name":      "Like every comment",
		"accountId": "ig1",
		"trigger":   map[string]interface{}{"type": "comment_keyword"},
		"action":    map[string]interface{}{"type": "like_post"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[services.RuleView](t, w)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive)
	assert.Equal(t, "active", created.Status)

	w = app.do(t, http.MethodGet, "/api/v1/automations/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPut, "/api/v1/automations/"+created.ID, map[string]interface{}{
		"name":      "Thank commenters",
		"accountId": "ig1",
		"trigger":   map[string]interface{}{"type": "comment_keyword", "keywords": []string{"love"}},
		"action":    map[string]interface{}{"type": "reply_comment", "template": "Thanks {{username}}!"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[services.RuleView](t, w)
	assert.Equal(t, "Thank commenters", updated.Name)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestAutomationHandler_ValidationAndNotFound(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/v1/automations", map[string]interface{}{
		"name":      "",
		"accountId": "ig1",
		"trigger":   map[string]interface{}{"type": "dm_keyword"},
		"action":    map[string]interface{}{"type": "send_dm"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Contains(t, resp.Fields, "name")
	assert.NotContains(t, resp.Fields, "action.template")

	w = app.do(t, http.MethodPost, "/api/v1/automations", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/automations/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodPut, "/api/v1/automations/missing", map[string]interface{}{
		"name":      "x",
		"accountId": "ig1",
		"trigger":   map[string]interface{}{"type": "new_follower"},
		"action":    map[string]interface{}{"type": "like_post"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAutomationHandler_ToggleAndDelete(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPut, "/api/v1/automations/auto3/active", map[string]bool{"active": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[services.RuleView](t, w).IsActive)

	w = app.do(t, http.MethodPut, "/api/v1/automations/auto3/active", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPut, "/api/v1/automations/missing/active", map[string]bool{"active": false})
	assert.Equal(t, http.StatusNotFound, w.Code)

	for i := 0; i < 2; i++ {
		w = app.do(t, http.MethodDelete, "/api/v1/automations/auto3", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w = app.do(t, http.MethodGet, "/api/v1/automations/auto3", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type runsPage struct {
	Data     []models.AutomationRun `json:"data"`
	Total    int64                  `json:"total"`
	Pages    int                    `json:"pages"`
}

func TestAutomationHandler_ListRuns(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/v1/events", map[string]string{
		"accountId":     "ig1",
		"kind":          "new_follower",
		"actorUsername": "dana",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	app.automation.Stop()

	w = app.do(t, http.MethodGet, "/api/v1/automations/runs?rule_id=auto1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	page := decode[runsPage](t, w)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.Pages)
	require.Len(t, page.Data, 1)
	assert.Equal(t, models.RunStatusSuccess, page.Data[0].Status)
	assert.Equal(t, "Hey dana! Thanks for following! Check out our latest offers.", page.Data[0].Text)
}
