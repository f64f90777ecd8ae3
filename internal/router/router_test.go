package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"classmaster/internal/auth"
	"classmaster/internal/docstore"
	"classmaster/internal/models"
	"classmaster/internal/payment"
	repo "classmaster/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

type fakeGateway struct {
	mu      sync.Mutex
	intents []payment.Intent
}

func (g *fakeGateway) CreateIntent(ctx context.Context, intent payment.Intent) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents = append(g.intents, intent)
	return "secret-" + intent.OrderID, nil
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.intents)
}

// brokenCounterStore fails every enrollment counter increment.
type brokenCounterStore struct {
	docstore.Store
}

func (s brokenCounterStore) IncrementWhere(ctx context.Context, collection string, filter docstore.Filter, field string, delta int64) (docstore.UpdateResult, error) {
	if collection == models.ClassesCollection {
		return docstore.UpdateResult{}, context.DeadlineExceeded
	}
	return s.Store.IncrementWhere(ctx, collection, filter, field, delta)
}

type testEnv struct {
	router     http.Handler
	repository *repo.Repository
	issuer     *auth.TokenIssuer
	gateway    *fakeGateway
}

func newTestEnv(t *testing.T, store docstore.Store, withGateway bool) *testEnv {
	t.Helper()

	env := &testEnv{
		repository: repo.New(store),
		issuer:     auth.NewTokenIssuer(testSecret, time.Hour),
		gateway:    &fakeGateway{},
	}

	var gateway payment.Gateway
	if withGateway {
		gateway = env.gateway
	}
	h := NewHandlers(env.repository, env.issuer, auth.NewVerifier(testSecret), gateway)

	router := chi.NewRouter()
	router.Group(h.UserRoutes)
	router.Group(h.PromotionRoutes)
	router.Group(h.ClassRoutes)
	router.Group(h.PaymentRoutes)
	router.Group(h.AssignmentRoutes)
	router.Group(h.EvaluationRoutes)
	env.router = router

	return env
}

func (e *testEnv) token(t *testing.T, email string) string {
	t.Helper()
	tok, err := e.issuer.Issue(models.TokenRequest{Email: email})
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, email string, role models.Role) {
	t.Helper()
	ctx := context.Background()

	_, err := e.repository.RegisterUser(ctx, &models.CreateUserRequest{Email: email})
	require.NoError(t, err)
	if role != models.RoleStudent {
		_, err = e.repository.PromoteUser(ctx, email, role)
		require.NoError(t, err)
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func TestCreateTokenAndRegister(t *testing.T) {
	env := newTestEnv(t, docstore.NewMemory(), true)

	rec := env.do(t, http.MethodPost, "/jwt", "", map[string]string{"email": "s@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	var token struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &token)
	assert.NotEmpty(t, token.Token)

	rec = env.do(t, http.MethodPost, "/users", "", map[string]string{"email": "s@example.com", "name": "S"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/users", "", map[string]string{"email": "S@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	var existing map[string]interface{}
	decodeBody(t, rec, &existing)
	assert.Equal(t, "user already exist", existing["message"])
	assert.Nil(t, existing["insertedId"])
}

func TestValidationErrorsNameFields(t *testing.T) {
	env := newTestEnv(t, docstore.NewMemory(), true)

	rec := env.do(t, http.MethodPost, "/users", "", map[string]string{"email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, rec, &body)
	assert.Contains(t, body.Errors, "email")

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoleLookupIsSelfOnly(t *testing.T) {
	env := newTestEnv(t, docstore.NewMemory(), true)
	env.register(t, "a@example.com", models.RoleStudent)
	env.register(t, "admin@example.com", models.RoleAdmin)

	rec := env.do(t, http.MethodGet, "/users/role/a@example.com", env.token(t, "a@example.com"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var role map[string]string
	decodeBody(t, rec, &role)
	assert.Equal(t, "student", role["role"])

	rec = env.do(t, http.MethodGet, "/users/role/a@example.com", env.token(t, "admin@example.com"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/users/role/a@example.com", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/users/role/ghost@example.com", env.token(t, "ghost@example.com"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Clients that percent-encode the path segment are matched against the decoded email.
	rec = env.do(t, http.MethodGet, "/users/role/a%40example.com", env.token(t, "a@example.com"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &role)
	assert.Equal(t, "student", role["role"])

	env.register(t, "s.kim+tag@example.com", models.RoleTeacher)
	rec = env.do(t, http.MethodGet, "/users/role/S.Kim%2Btag@example.com", env.token(t, "s.kim+tag@example.com"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &role)
	assert.Equal(t, "teacher", role["role"])

	rec = env.do(t, http.MethodGet, "/users/role/a%40example.com", env.token(t, "admin@example.com"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/userRole?email=a@example.com", env.token(t, "a@example.com"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/users/admin/admin@example.com", env.token(t, "admin@example.com"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var admin map[string]bool
	decodeBody(t, rec, &admin)
	assert.True(t, admin["admin"])

	rec = env.do(t, http.MethodGet, "/users/admin/admin%40example.com", env.token(t, "admin@example.com"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	admin = nil
	decodeBody(t, rec, &admin)
	assert.True(t, admin["admin"])
}

func TestModerationIsAdminOnly(t *testing.T) {
	env := newTestEnv(t, docstore.NewMemory(), true)
	env.register(t, "s@example.com", models.RoleStudent)
	env.register(t, "admin@example.com", models.RoleAdmin)

	rec := env.do(t, http.MethodPost, "/teachOnClassMaster", "", map[string]string{
		"email": "s@example.com", "title": "Go", "category": "programming",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var submitted models.SubmitPromotionResult
	decodeBody(t, rec, &submitted)

	rec = env.do(t, http.MethodGet, "/teachersRequest", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(t, http.MethodGet, "/teachersRequest", env.token(t, "s@example.com"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodPost, "/updateTeacherRequest/"+submitted.ID, env.token(t, "s@example.com"), map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/teachersRequest?email=s@example.com", env.token(t, "admin@example.com"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var requests []models.PromotionRequest
	decodeBody(t, rec, &requests)
	require.Len(t, requests, 1)
	assert.Equal(t, models.RequestPending, requests[0].Status)

	rec = env.do(t, http.MethodPost, "/updateTeacherRequest/"+submitted.ID, env.token(t, "admin@example.com"), map[string]string{"status": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/updateTeacherRequest/"+submitted.ID, env.token(t, "admin@example.com"), map[string]string{"status": "rejected"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/updateTeacherRequest/"+submitted.ID, env.token(t, "admin@example.com"), map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreatePaymentIntent(t *testing.T) {
	env := newTestEnv(t, docstore.NewMemory(), true)

	for _, body := range []map[string]interface{}{
		{"price": 0},
		{"price": "abc"},
		{},
		{"price": 0.001},
		{"price": "0.004"},
		{"price": 1e300},
	} {
		rec := env.do(t, http.MethodPost, "/create-payment-intent", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%v", body)
	}
	assert.Equal(t, 0, env.gateway.calls())

	rec := env.do(t, http.MethodPost, "/create-payment-intent", "", map[string]interface{}{"price": 250000})
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.PaymentIntentResponse
	decodeBody(t, rec, &res)
	assert.NotEmpty(t, res.ClientSecret)
	require.Equal(t, 1, env.gateway.calls())
	assert.Equal(t, int64(250000), env.gateway.intents[0].Amount)
}

func TestCreatePaymentIntentWithoutProvider(t *testing.T) {
	env := newTestEnv(t, docstore.NewMemory(), false)

	rec := env.do(t, http.MethodPost, "/create-payment-intent", "", map[string]interface{}{"price": 10})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSavePaymentPartialFailureIsReported(t *testing.T) {
	env := newTestEnv(t, brokenCounterStore{Store: docstore.NewMemory()}, true)
	class, err := env.repository.CreateClass(context.Background(), &models.CreateClassRequest{OwnerEmail: "t@example.com", Title: "Go", Price: 10})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/save-payment", "", map[string]interface{}{
		"transactionId": "txn-1",
		"email":         "s@example.com",
		"classId":       class.ID,
		"className":     "Go",
		"price":         10,
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body struct {
		Message string `json:"message"`
		Report  struct {
			Steps []struct {
				Name   string `json:"name"`
				Status string `json:"status"`
			} `json:"steps"`
		} `json:"report"`
		Result models.SavePaymentResult `json:"result"`
	}
	decodeBody(t, rec, &body)
	assert.Contains(t, body.Message, "class-counter")
	require.Len(t, body.Report.Steps, 3)
	assert.Equal(t, "done", body.Report.Steps[0].Status)
	assert.Equal(t, "done", body.Report.Steps[1].Status)
	assert.Equal(t, "failed", body.Report.Steps[2].Status)
	assert.NotEmpty(t, body.Result.PaymentID)
	assert.NotEmpty(t, body.Result.EnrollmentID)
}

func TestAssignmentAccess(t *testing.T) {
	env := newTestEnv(t, docstore.NewMemory(), true)
	env.register(t, "teacher@example.com", models.RoleTeacher)
	env.register(t, "student@example.com", models.RoleStudent)

	rec := env.do(t, http.MethodPost, "/classes", env.token(t, "teacher@example.com"), map[string]interface{}{"title": "Go", "price": 20})
	require.Equal(t, http.StatusCreated, rec.Code)
	var class models.Class
	decodeBody(t, rec, &class)
	assert.Equal(t, "teacher@example.com", class.OwnerEmail)

	rec = env.do(t, http.MethodPost, "/classes", env.token(t, "student@example.com"), map[string]interface{}{"title": "Go", "price": 20})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/assignments", env.token(t, "teacher@example.com"), map[string]interface{}{"classId": class.ID, "title": "HW1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var assignment models.Assignment
	decodeBody(t, rec, &assignment)

	rec = env.do(t, http.MethodGet, "/assignments/"+class.ID, env.token(t, "student@example.com"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodGet, "/assignments/"+class.ID, env.token(t, "teacher@example.com"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/submit-assignment", "", map[string]interface{}{
		"assignmentId": assignment.ID, "studentEmail": "student@example.com", "submissionData": "link",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var submitted models.SubmitAssignmentResult
	decodeBody(t, rec, &submitted)
	assert.NotEmpty(t, submitted.InsertedID)
	require.NotNil(t, submitted.UpdateResult)
	assert.Equal(t, int64(1), submitted.UpdateResult.ModifiedCount)

	rec = env.do(t, http.MethodGet, "/submissions/"+class.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var count models.SubmissionCount
	decodeBody(t, rec, &count)
	assert.Equal(t, int64(1), count.TotalSubmissions)
}

func TestEvaluationMustBeOwnEmail(t *testing.T) {
	env := newTestEnv(t, docstore.NewMemory(), true)
	class, err := env.repository.CreateClass(context.Background(), &models.CreateClassRequest{OwnerEmail: "t@example.com", Title: "Go", Price: 10})
	require.NoError(t, err)

	body := map[string]interface{}{"classId": class.ID, "studentEmail": "s@example.com", "rating": 4, "description": "good"}

	rec := env.do(t, http.MethodPost, "/evaluations", env.token(t, "other@example.com"), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/evaluations", env.token(t, "s@example.com"), body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var evaluation models.Evaluation
	decodeBody(t, rec, &evaluation)
	assert.Equal(t, "Go", evaluation.ClassTitle)
}

func TestClassRoutes(t *testing.T) {
	env := newTestEnv(t, docstore.NewMemory(), true)
	env.register(t, "admin@example.com", models.RoleAdmin)
	class, err := env.repository.CreateClass(context.Background(), &models.CreateClassRequest{OwnerEmail: "t@example.com", Title: "Go", Price: 10})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/classes/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/classes/"+class.ID+"/status", "", map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/classes/"+class.ID+"/status", env.token(t, "admin@example.com"), map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/classes/"+class.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Class
	decodeBody(t, rec, &got)
	assert.Equal(t, models.ClassApproved, got.Status)

	rec = env.do(t, http.MethodPost, "/classes/"+class.ID+"/recount", env.token(t, "admin@example.com"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var recount models.RecountResult
	decodeBody(t, rec, &recount)
	assert.Equal(t, int64(0), recount.Current)
}
