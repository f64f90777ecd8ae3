package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"classmaster/internal/auth"
	"classmaster/internal/docstore"
	"classmaster/internal/models"
	repo "classmaster/internal/repository"
	rtr "classmaster/internal/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "server-test-secret"

type client struct {
	t      *testing.T
	server *httptest.Server
}

func (c *client) call(method, path, token string, body, out interface{}) int {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.server.URL+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer res.Body.Close()

	if out != nil && res.StatusCode < 300 {
		require.NoError(c.t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func (c *client) token(email string) string {
	c.t.Helper()

	var res struct {
		Token string `json:"token"`
	}
	require.Equal(c.t, http.StatusOK, c.call(http.MethodPost, "/jwt", "", models.TokenRequest{Email: email}, &res))
	return res.Token
}

func TestHealth(t *testing.T) {
	repository := repo.New(docstore.NewMemory())
	h := rtr.NewHandlers(repository, auth.NewTokenIssuer(testSecret, time.Hour), auth.NewVerifier(testSecret), nil)

	rec := httptest.NewRecorder()
	Routes(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "server is running")
}

// A student applies to teach, is accepted, publishes a class and another student enrolls in it.
func TestMarketplaceFlow(t *testing.T) {
	repository := repo.New(docstore.NewMemory())
	h := rtr.NewHandlers(repository, auth.NewTokenIssuer(testSecret, time.Hour), auth.NewVerifier(testSecret), nil)
	srv := httptest.NewServer(Routes(h))
	defer srv.Close()
	c := &client{t: t, server: srv}

	// Admins are bootstrapped out of band.
	_, err := repository.RegisterUser(context.Background(), &models.CreateUserRequest{Email: "admin@example.com"})
	require.NoError(t, err)
	_, err = repository.PromoteUser(context.Background(), "admin@example.com", models.RoleAdmin)
	require.NoError(t, err)
	adminToken := c.token("admin@example.com")

	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/users", "", models.CreateUserRequest{Email: "s@example.com", Name: "S"}, nil))
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/users", "", models.CreateUserRequest{Email: "t@example.com", Name: "T"}, nil))
	teacherToken := c.token("s@example.com")
	studentToken := c.token("t@example.com")

	var role map[string]string
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/users/role/s@example.com", teacherToken, nil, &role))
	assert.Equal(t, "student", role["role"])

	// Students cannot publish classes yet.
	assert.Equal(t, http.StatusForbidden, c.call(http.MethodPost, "/classes", teacherToken, models.CreateClassRequest{Title: "Go", Price: 20}, nil))

	var submitted models.SubmitPromotionResult
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/teachOnClassMaster", "", models.SubmitPromotionRequest{
		Email: "s@example.com", Name: "S", Title: "Go for beginners", Category: "programming",
	}, &submitted))

	var moderated models.ModerationResult
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/updateTeacherRequest/"+submitted.ID, adminToken, models.ModerateRequest{Status: models.RequestAccepted}, &moderated))
	assert.Equal(t, int64(1), moderated.RequestUpdate.ModifiedCount)
	require.NotNil(t, moderated.RoleUpdate)
	assert.Equal(t, int64(1), moderated.RoleUpdate.ModifiedCount)

	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/userRole?email=s@example.com", teacherToken, nil, &role))
	assert.Equal(t, "teacher", role["role"])

	var class models.Class
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/classes", teacherToken, models.CreateClassRequest{Title: "Go", Price: 20}, &class))
	assert.Equal(t, models.ClassPending, class.Status)

	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/classes/"+class.ID+"/status", adminToken, models.ClassStatusRequest{Status: models.ClassApproved}, nil))

	var saved models.SavePaymentResult
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/save-payment", studentToken, models.SavePaymentRequest{
		TransactionID: "txn-1", Email: "t@example.com", ClassID: class.ID, ClassName: "Go", Price: 20,
	}, &saved))
	assert.NotEmpty(t, saved.PaymentID)
	assert.NotEmpty(t, saved.EnrollmentID)

	// Replaying the confirmation does not enroll twice.
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/save-payment", studentToken, models.SavePaymentRequest{
		TransactionID: "txn-1", Email: "t@example.com", ClassID: class.ID, ClassName: "Go", Price: 20,
	}, nil))

	var got models.Class
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/classes/"+class.ID, "", nil, &got))
	assert.Equal(t, models.ClassApproved, got.Status)
	assert.Equal(t, int64(1), got.EnrollmentCount)

	var enrolled []models.Class
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/my-enroll-classes?email=t@example.com", studentToken, nil, &enrolled))
	require.Len(t, enrolled, 1)
	assert.Equal(t, class.ID, enrolled[0].ID)
}
