package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/OkanBey11/ToDoApiWithGemini/internal/auth"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/services"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/storage"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/store"
	"github.com/OkanBey11/ToDoApiWithGemini/types"
)

var testSigning = auth.SigningConfig{Secret: []byte("0123456789abcdef0123456789abcdef")}

type memUsers struct {
	mu    sync.Mutex
	users []types.User
}

func (m *memUsers) GetByID(_ context.Context, id int64) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = int64(len(m.users) + 1)
	m.users = append(m.users, user)
	return user, nil
}

func (m *memUsers) SetActive(_ context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].IsActive = active
			return nil
		}
	}
	return store.ErrNotFound
}

type memTasks struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]types.Task
}

func (m *memTasks) ListForOwner(_ context.Context, ownerID int64) ([]types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Task, 0)
	for _, t := range m.tasks {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memTasks) GetForOwner(_ context.Context, ownerID, taskID int64) (types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.OwnerID != ownerID {
		return types.Task{}, store.ErrNotFound
	}
	return t, nil
}

func (m *memTasks) Create(_ context.Context, ownerID int64, task types.Task) (types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	task.ID = m.nextID
	task.OwnerID = ownerID
	m.tasks[task.ID] = task
	return task, nil
}

func (m *memTasks) UpdateForOwner(_ context.Context, ownerID int64, task types.Task) (types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.tasks[task.ID]
	if !ok || current.OwnerID != ownerID {
		return types.Task{}, store.ErrNotFound
	}
	task.OwnerID = ownerID
	m.tasks[task.ID] = task
	return task, nil
}

func (m *memTasks) DeleteForOwner(_ context.Context, ownerID, taskID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.tasks[taskID]
	if !ok || current.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(m.tasks, taskID)
	return nil
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

type testAPI struct {
	router *chi.Mux
	users  *memUsers
	tasks  *memTasks
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	users := &memUsers{}
	tasks := &memTasks{tasks: map[int64]types.Task{}}
	objects := &memObjects{objects: map[string][]byte{}}

	hasher, err := auth.NewPasswordHasher(auth.AlgorithmBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	issuer, err := auth.NewTokenIssuer(testSigning)
	require.NoError(t, err)
	verifier, err := auth.NewTokenVerifier(testSigning)
	require.NoError(t, err)
	authenticator, err := services.NewAuthenticator(users, hasher)
	require.NoError(t, err)

	userService := services.NewUserService(users, hasher, nil)
	authService := services.NewAuthService(authenticator, issuer, time.Hour)
	taskService := services.NewTaskService(tasks, nil)
	exportService := services.NewExportService(tasks, objects)
	requireAuth := RequireAuth(verifier)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz(stubPinger{}))
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, userService, authService, requireAuth)
	})
	router.Route("/todo", func(r chi.Router) {
		TaskRouter(r, taskService, requireAuth)
		r.Route("/exports", func(r chi.Router) {
			ExportRouter(r, exportService, requireAuth)
		})
	})

	return &testAPI{router: router, users: users, tasks: tasks}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(t *testing.T, username, password string) types.User {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var user types.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	return user
}

func (a *testAPI) login(t *testing.T, username, password string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "bearer", resp.TokenType)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRegister(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/auth/", "", map[string]string{
		"username":   "alice",
		"email":      "alice@example.com",
		"first_name": "Alice",
		"last_name":  "Liddell",
		"password":   "correct horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotContains(t, rec.Body.String(), "password")
	require.NotContains(t, rec.Body.String(), "$2a$")

	user := decodeBody[map[string]any](t, rec)
	require.Equal(t, "alice", user["username"])
	require.Equal(t, "user", user["role"])
	require.Equal(t, true, user["is_active"])

	rec = api.do(t, http.MethodPost, "/auth/", "", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "pw",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodPost, "/auth/", "", map[string]string{"username": "bob"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	verr := decodeBody[ValidationErrorResponse](t, rec)
	require.Equal(t, "validation failed", verr.Error)
	require.NotEmpty(t, verr.Fields)

	req := httptest.NewRequest(http.MethodPost, "/auth/", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToken(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "alice", "correct horse")

	token := api.login(t, "alice", "correct horse")
	claims, err := mustVerifier(t).Verify(token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username())

	rec := api.do(t, http.MethodPost, "/auth/token", "", map[string]string{
		"username": "alice",
		"password": "correct horse",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, creds := range []map[string]string{
		{"username": "alice", "password": "wrong"},
		{"username": "nobody", "password": "correct horse"},
		{"username": "alice"},
		{},
	} {
		rec := api.do(t, http.MethodPost, "/auth/token", "", creds)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
		require.Equal(t, msgBadCredentials, decodeBody[ErrorResponse](t, rec).Error)
	}
}

func TestTokenRejectsInactiveUser(t *testing.T) {
	api := newTestAPI(t)
	user := api.register(t, "alice", "correct horse")
	require.NoError(t, api.users.SetActive(context.Background(), user.ID, false))

	rec := api.do(t, http.MethodPost, "/auth/token", "", map[string]string{
		"username": "alice",
		"password": "correct horse",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, msgBadCredentials, decodeBody[ErrorResponse](t, rec).Error)
}

func TestMe(t *testing.T) {
	api := newTestAPI(t)
	registered := api.register(t, "alice", "correct horse")
	token := api.login(t, "alice", "correct horse")

	rec := api.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, registered.ID, decodeBody[types.User](t, rec).ID)

	rec = api.do(t, http.MethodGet, "/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestProtectedRoutesRejectBadTokens(t *testing.T) {
	api := newTestAPI(t)
	user := api.register(t, "alice", "correct horse")

	past := time.Now().Add(-2 * time.Hour)
	oldIssuer, err := auth.NewTokenIssuer(testSigning, auth.WithClock(func() time.Time { return past }))
	require.NoError(t, err)
	expired, err := oldIssuer.Issue("alice", user.ID, "user", time.Hour)
	require.NoError(t, err)

	foreignIssuer, err := auth.NewTokenIssuer(auth.SigningConfig{Secret: []byte("ffffffffffffffffffffffffffffffff")})
	require.NoError(t, err)
	forged, err := foreignIssuer.Issue("alice", user.ID, "admin", time.Hour)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"missing": "",
		"garbage": "not.a.token",
		"expired": expired,
		"forged":  forged,
	} {
		t.Run(name, func(t *testing.T) {
			rec := api.do(t, http.MethodGet, "/todo/", token, nil)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/todo/", nil)
	req.Header.Set("Authorization", "Basic YWxpY2U6cHc=")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTaskLifecycle(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "alice", "correct horse")
	token := api.login(t, "alice", "correct horse")

	rec := api.do(t, http.MethodPost, "/todo/todo", token, map[string]any{
		"title":       "Buy milk",
		"description": "two liters",
		"priority":    3,
		"complate":    false,
		"owner_id":    999,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[types.Task](t, rec)
	require.Equal(t, alice.ID, created.OwnerID)

	rec = api.do(t, http.MethodGet, "/todo/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]types.Task](t, rec), 1)

	path := "/todo/todo/" + itoa(created.ID)
	rec = api.do(t, http.MethodPut, path, token, map[string]any{
		"title":       "Buy oat milk",
		"description": "two liters",
		"priority":    5,
		"complate":    true,
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	require.Empty(t, rec.Body.String())

	rec = api.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	require.Equal(t, "Buy oat milk", body["title"])
	require.Equal(t, true, body["complate"])

	rec = api.do(t, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, msgTaskNotFound, decodeBody[ErrorResponse](t, rec).Error)
}

func TestEmptyListIsArray(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "alice", "correct horse")
	token := api.login(t, "alice", "correct horse")

	rec := api.do(t, http.MethodGet, "/todo/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestTasksAreIsolatedBetweenUsers(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "alice", "correct horse")
	api.register(t, "bob", "battery staple")
	aliceToken := api.login(t, "alice", "correct horse")
	bobToken := api.login(t, "bob", "battery staple")

	rec := api.do(t, http.MethodPost, "/todo/todo", aliceToken, map[string]any{
		"title": "secret plan", "description": "do not share", "priority": 1, "complate": false,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	path := "/todo/todo/" + itoa(decodeBody[types.Task](t, rec).ID)

	rec = api.do(t, http.MethodGet, "/todo/", bobToken, nil)
	require.JSONEq(t, `[]`, rec.Body.String())

	rec = api.do(t, http.MethodGet, path, bobToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPut, path, bobToken, map[string]any{
		"title": "hijacked", "description": "hijacked", "priority": 1, "complate": true,
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, path, bobToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, path, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "secret plan", decodeBody[types.Task](t, rec).Title)
}

func TestTaskRequestErrors(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "alice", "correct horse")
	token := api.login(t, "alice", "correct horse")

	for _, path := range []string{"/todo/todo/0", "/todo/todo/-1", "/todo/todo/abc"} {
		rec := api.do(t, http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec := api.do(t, http.MethodPost, "/todo/todo", token, map[string]any{
		"title": "ab", "description": "ok!", "priority": 9, "complate": false,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	verr := decodeBody[ValidationErrorResponse](t, rec)
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	require.Equal(t, []string{"title", "priority"}, fields)
	require.Empty(t, api.tasks.tasks)

	req := httptest.NewRequest(http.MethodPost, "/todo/todo",
		strings.NewReader(`{"title":"nul\u0000byte","description":"valid","priority":1,"complate":false}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	require.Equal(t, "title", decodeBody[ValidationErrorResponse](t, rec).Fields[0].Field)
	require.Empty(t, api.tasks.tasks)

	rec = api.do(t, http.MethodPut, "/todo/todo/42", token, map[string]any{
		"title": "valid", "description": "valid", "priority": 1, "complate": false,
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskRequiresCompletionFlag(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "alice", "correct horse")
	token := api.login(t, "alice", "correct horse")

	requireCompletionError := func(t *testing.T, rec *httptest.ResponseRecorder) {
		t.Helper()
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
		verr := decodeBody[ValidationErrorResponse](t, rec)
		require.Equal(t, []services.FieldError{{Field: "complate", Message: "is required"}}, verr.Fields)
	}

	rec := api.do(t, http.MethodPost, "/todo/todo", token, map[string]any{
		"title": "Buy milk", "description": "two liters", "priority": 3,
	})
	requireCompletionError(t, rec)
	require.Empty(t, api.tasks.tasks)

	rec = api.do(t, http.MethodPost, "/todo/todo", token, map[string]any{
		"title": "Buy milk", "description": "two liters", "priority": 3, "complate": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	path := "/todo/todo/" + itoa(decodeBody[types.Task](t, rec).ID)

	for _, body := range []map[string]any{
		{"title": "Buy oat milk", "description": "two liters", "priority": 3},
		{"title": "Buy oat milk", "description": "two liters", "priority": 3, "complate": nil},
	} {
		requireCompletionError(t, api.do(t, http.MethodPut, path, token, body))
	}

	rec = api.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[types.Task](t, rec)
	require.True(t, got.Completed)
	require.Equal(t, "Buy milk", got.Title)
}

func TestExports(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "alice", "correct horse")
	api.register(t, "bob", "battery staple")
	aliceToken := api.login(t, "alice", "correct horse")
	bobToken := api.login(t, "bob", "battery staple")

	rec := api.do(t, http.MethodPost, "/todo/todo", aliceToken, map[string]any{
		"title": "export me", "description": "please", "priority": 2, "complate": false,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/todo/exports", aliceToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	export := decodeBody[types.TaskExport](t, rec)
	require.Equal(t, 1, export.Count)

	rec = api.do(t, http.MethodGet, "/todo/exports/"+export.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "export me")

	rec = api.do(t, http.MethodGet, "/todo/exports/"+export.ID, bobToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, "/todo/exports/not-an-id", aliceToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodDelete, "/todo/exports/"+export.ID, bobToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, "/todo/exports/"+export.ID, aliceToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/todo/exports/"+export.ID, aliceToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/todo/exports", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	Healthz(stubPinger{})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Healthz(stubPinger{err: errors.New("down")})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func mustVerifier(t *testing.T) *auth.TokenVerifier {
	t.Helper()
	verifier, err := auth.NewTokenVerifier(testSigning)
	require.NoError(t, err)
	return verifier
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
