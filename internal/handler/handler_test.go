package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/capacity"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/config"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/repository"
)

const (
	studentCode = "apu2026"
	adminCode   = "saadmin2026"
)

type recordingMailer struct {
	mu       sync.Mutex
	messages []domain.MailMessage
}

func (m *recordingMailer) Publish(_ context.Context, msg domain.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	handler *Handler
	store   repository.Store
	mailer  *recordingMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.ProgramName = "Spring 2026 Student Assistant Program"
	cfg.Access.StudentCode = studentCode
	cfg.Access.AdminCode = adminCode
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 12
	cfg.Export.Timezone = "UTC"
	cfg.Database.ConnectTimeout = 5
	cfg.Database.QueryTimeout = 5
	cfg.Database.TransactionTimeout = 5
	cfg.Local.Path = filepath.Join(t.TempDir(), "signups.db")

	store, err := repository.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	mailer := &recordingMailer{}
	h, err := NewHandler(cfg, store, domain.DefaultCatalog(), nil, mailer)
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testEnv{handler: h, store: store, mailer: mailer}
}

func (e *testEnv) do(t *testing.T, method string, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.handler.Mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) testResponse {
	t.Helper()
	var resp testResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (e *testEnv) enter(t *testing.T, code string) *http.Cookie {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/access", map[string]string{"code": code}, nil)
	resp := decode(t, rec)
	require.True(t, resp.Success, resp.Message)

	for _, c := range rec.Result().Cookies() {
		if c.Name == tokenCookieName {
			return c
		}
	}
	t.Fatal("access cookie not set")
	return nil
}

func submission(name string, email string, first string, firstAvail string, second string, secondAvail string) map[string]any {
	return map[string]any{
		"name":  name,
		"email": email,
		"selections": []map[string]string{
			{"shiftId": first, "availability": firstAvail},
			{"shiftId": second, "availability": secondAvail},
		},
	}
}

func (e *testEnv) listSignups(t *testing.T, admin *http.Cookie) []*domain.Signup {
	t.Helper()

	resp := decode(t, e.do(t, http.MethodGet, "/signups", nil, admin))
	require.True(t, resp.Success, resp.Message)

	var data struct {
		Signups []*domain.Signup `json:"signups"`
		Summary capacity.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data.Signups
}

func TestGetStatus_Standalone(t *testing.T) {
	env := newTestEnv(t)

	resp := decode(t, env.do(t, http.MethodGet, "/status", nil, nil))
	require.True(t, resp.Success)

	var data struct {
		Backend    string `json:"backend"`
		Standalone bool   `json:"standalone"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, repository.BackendLocal, data.Backend)
	assert.True(t, data.Standalone)
}

func TestEnterAccessCode(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		code    string
		success bool
		role    domain.Role
	}{
		{studentCode, true, domain.RoleStudent},
		{adminCode, true, domain.RoleAdmin},
		{"wrong", false, ""},
		{strings.ToUpper(studentCode), false, ""},
		{" " + studentCode, false, ""},
	}

	for _, tt := range tests {
		resp := decode(t, env.do(t, http.MethodPost, "/access", map[string]string{"code": tt.code}, nil))
		assert.Equal(t, tt.success, resp.Success, "code=%q", tt.code)

		if !tt.success {
			assert.Equal(t, "Invalid access code. Please try again.", resp.Message)
			continue
		}

		var data struct {
			Role domain.Role `json:"role"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, tt.role, data.Role)
	}
}

func TestRoutesRequireAccess(t *testing.T) {
	env := newTestEnv(t)

	resp := decode(t, env.do(t, http.MethodGet, "/slots", nil, nil))
	assert.False(t, resp.Success)

	forged := &http.Cookie{Name: tokenCookieName, Value: "not-a-token"}
	resp = decode(t, env.do(t, http.MethodGet, "/slots", nil, forged))
	assert.False(t, resp.Success)
}

func TestRoleEnforcement(t *testing.T) {
	env := newTestEnv(t)
	student := env.enter(t, studentCode)
	admin := env.enter(t, adminCode)

	resp := decode(t, env.do(t, http.MethodGet, "/signups", nil, student))
	assert.False(t, resp.Success)

	resp = decode(t, env.do(t, http.MethodGet, "/signups/export.csv", nil, student))
	assert.False(t, resp.Success)

	body := submission("Jane Doe", "jane.doe@apu.ac.jp", "mt2", "Q1 Only", "tf4", "Full Semester")
	resp = decode(t, env.do(t, http.MethodPost, "/signups", body, admin))
	assert.False(t, resp.Success)

	resp = decode(t, env.do(t, http.MethodGet, "/slots", nil, student))
	assert.True(t, resp.Success)
	resp = decode(t, env.do(t, http.MethodGet, "/slots", nil, admin))
	assert.True(t, resp.Success)
}

func TestSubmitSignup_Success(t *testing.T) {
	env := newTestEnv(t)
	student := env.enter(t, studentCode)
	admin := env.enter(t, adminCode)

	earlier := &domain.Signup{
		Name:  "Earlier Student",
		Email: "earlier@apu.ac.jp",
		SelectedShifts: []domain.SelectedShift{
			{ShiftID: "mt3", Availability: domain.AvailabilityFullSemester},
			{ShiftID: "tf5", Availability: domain.AvailabilityQ2Only},
		},
	}
	require.NoError(t, env.store.Create(context.Background(), earlier))

	body := submission("Jane Doe", "jane.doe@apu.ac.jp", "mt2", "Q1 Only", "tf4", "Full Semester")
	resp := decode(t, env.do(t, http.MethodPost, "/signups", body, student))
	require.True(t, resp.Success, resp.Message)

	var confirmation SignupConfirmation
	require.NoError(t, json.Unmarshal(resp.Data, &confirmation))
	assert.NotEmpty(t, confirmation.Signup.ID)
	assert.False(t, confirmation.Signup.Timestamp.IsZero())
	assert.Equal(t, []domain.SelectedShift{
		{ShiftID: "mt2", Availability: domain.AvailabilityQ1Only},
		{ShiftID: "tf4", Availability: domain.AvailabilityFullSemester},
	}, confirmation.Signup.SelectedShifts)
	assert.Equal(t, []domain.ConfirmedShift{
		{Name: "Monday/Thursday 2nd Period", Availability: "Q1 Only"},
		{Name: "Tuesday/Friday 4th Period", Availability: "Full Semester"},
	}, confirmation.Shifts)

	signups := env.listSignups(t, admin)
	require.Len(t, signups, 2)
	assert.Equal(t, confirmation.Signup.ID, signups[0].ID)
	assert.Equal(t, "Jane Doe", signups[0].Name)
	assert.Equal(t, earlier.ID, signups[1].ID)

	require.Len(t, env.mailer.messages, 1)
	assert.Equal(t, domain.MailTypeSignupConfirmation, env.mailer.messages[0].Type)
	assert.Equal(t, "jane.doe@apu.ac.jp", env.mailer.messages[0].To)
}

func TestSubmitSignup_RejectsFullSlot(t *testing.T) {
	env := newTestEnv(t)
	student := env.enter(t, studentCode)
	admin := env.enter(t, adminCode)

	for i := range 6 {
		holder := &domain.Signup{
			Name:  fmt.Sprintf("Holder %d", i),
			Email: fmt.Sprintf("holder%d@apu.ac.jp", i),
			SelectedShifts: []domain.SelectedShift{
				{ShiftID: "tf3", Availability: domain.AvailabilityFullSemester},
				{ShiftID: "mt2", Availability: domain.AvailabilityFullSemester},
			},
		}
		require.NoError(t, env.store.Create(context.Background(), holder))
	}

	body := submission("Late Student", "late@apu.ac.jp", "tf3", "Full Semester", "mt3", "Full Semester")
	resp := decode(t, env.do(t, http.MethodPost, "/signups", body, student))
	require.False(t, resp.Success)
	assert.Equal(t, "Tuesday/Friday 3rd Period is already full. Please choose another slot.", resp.Message)

	var failure validationFailure
	require.NoError(t, json.Unmarshal(resp.Data, &failure))
	assert.Equal(t, domain.KindSlotFull, failure.Kind)
	assert.Equal(t, "tf3", failure.SlotID)

	assert.Len(t, env.listSignups(t, admin), 6)
	assert.Empty(t, env.mailer.messages)
}

func TestSubmitSignup_ValidationMessages(t *testing.T) {
	env := newTestEnv(t)
	student := env.enter(t, studentCode)

	tests := []struct {
		name string
		body map[string]any
		kind domain.ValidationKind
	}{
		{"blank name", submission("   ", "jane@apu.ac.jp", "mt2", "", "tf4", ""), domain.KindMissingName},
		{"bad email", submission("Jane", "not-an-email", "mt2", "", "tf4", ""), domain.KindInvalidEmail},
		{"same slot twice", submission("Jane", "jane@apu.ac.jp", "mt2", "", "mt2", ""), domain.KindDuplicateSlot},
		{"unknown slot", submission("Jane", "jane@apu.ac.jp", "mt2", "", "zz9", ""), domain.KindUnknownSlot},
		{"bad availability", submission("Jane", "jane@apu.ac.jp", "mt2", "Q3 Only", "tf4", ""), domain.KindInvalidAvailability},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := decode(t, env.do(t, http.MethodPost, "/signups", tt.body, student))
			require.False(t, resp.Success)

			var failure validationFailure
			require.NoError(t, json.Unmarshal(resp.Data, &failure))
			assert.Equal(t, tt.kind, failure.Kind)
		})
	}

	all, err := env.store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGetSlots_ReflectsSubmissions(t *testing.T) {
	env := newTestEnv(t)
	student := env.enter(t, studentCode)

	body := submission("Jane Doe", "jane.doe@apu.ac.jp", "mt2", "", "tf3", "")
	require.True(t, decode(t, env.do(t, http.MethodPost, "/signups", body, student)).Success)

	resp := decode(t, env.do(t, http.MethodGet, "/slots", nil, student))
	require.True(t, resp.Success)

	var summary capacity.Summary
	require.NoError(t, json.Unmarshal(resp.Data, &summary))
	assert.Equal(t, 2, summary.ShiftsAssigned)
	assert.Equal(t, 58, summary.TotalCapacity)
	require.Len(t, summary.Slots, 5)
	assert.Equal(t, "tf3", summary.Slots[2].Slot.ID)
	assert.Equal(t, 5, summary.Slots[2].Remaining)
}

func TestDeleteSignup_Twice(t *testing.T) {
	env := newTestEnv(t)
	admin := env.enter(t, adminCode)

	signup := &domain.Signup{
		Name:  "Jane Doe",
		Email: "jane.doe@apu.ac.jp",
		SelectedShifts: []domain.SelectedShift{
			{ShiftID: "mt2", Availability: domain.AvailabilityQ1Only},
			{ShiftID: "tf4", Availability: domain.AvailabilityFullSemester},
		},
	}
	require.NoError(t, env.store.Create(context.Background(), signup))

	resp := decode(t, env.do(t, http.MethodDelete, "/signups/"+signup.ID, nil, admin))
	assert.True(t, resp.Success)

	resp = decode(t, env.do(t, http.MethodDelete, "/signups/"+signup.ID, nil, admin))
	assert.False(t, resp.Success)
	assert.Equal(t, "Signup not found", resp.Message)

	assert.Empty(t, env.listSignups(t, admin))
}

func TestExportSignupsCSV(t *testing.T) {
	env := newTestEnv(t)
	admin := env.enter(t, adminCode)

	signup := &domain.Signup{
		Name:  "Doe, Jane",
		Email: "jane.doe@apu.ac.jp",
		SelectedShifts: []domain.SelectedShift{
			{ShiftID: "mt2", Availability: domain.AvailabilityQ1Only},
			{ShiftID: "tf4", Availability: domain.AvailabilityFullSemester},
		},
	}
	require.NoError(t, env.store.Create(context.Background(), signup))

	rec := env.do(t, http.MethodGet, "/signups/export.csv", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sa_signups_export_")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")

	lines := strings.Split(rec.Body.String(), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Timestamp,Name,Email,Shift 1 Name,Shift 1 Availability,Shift 2 Name,Shift 2 Availability", lines[0])
	assert.Contains(t, lines[1], `"Doe, Jane",jane.doe@apu.ac.jp,"Monday/Thursday 2nd Period",Q1 Only,"Tuesday/Friday 4th Period",Full Semester`)
}
