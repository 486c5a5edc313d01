package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"travelapp/internal/database"
	"travelapp/internal/pkg/jwt"
	"travelapp/internal/pkg/metrics"
	"travelapp/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type page struct {
	Items []map[string]any `json:"items"`
	Total int64            `json:"total"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(":memory:", database.Options{LogLevel: "silent"}, nil)
	require.NoError(t, err, "failed to connect to test database")
	require.NoError(t, repository.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	router := NewRouter(Deps{
		DB:       db,
		Tokens:   jwt.New("test_secret_key_32_characters_min", time.Hour),
		Metrics:  metrics.New("travel-test"),
		BasePath: "/api",
	})
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.True(t, env.Success, w.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.NotNil(t, env.Error, w.Body.String())
	return env.Error.Code
}

type account struct {
	ID    int64
	Token string
}

func (s *testServer) register(username string) account {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api-auth/register/", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "password-" + username,
	}, "")
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	out := decode[struct {
		Token string `json:"token"`
		User  struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}](s.t, w)
	return account{ID: out.User.ID, Token: out.Token}
}

func (s *testServer) createListing(owner account, title string, extra map[string]any) map[string]any {
	s.t.Helper()
	body := map[string]any{
		"title":           title,
		"location":        "Lisbon, Portugal",
		"price_per_night": 100,
		"max_guests":      4,
	}
	for k, v := range extra {
		body[k] = v
	}
	w := s.do(http.MethodPost, "/api/listings/", body, owner.Token)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](s.t, w)
}

func (s *testServer) createBooking(guest account, listingID any, in, out string) map[string]any {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/bookings/", map[string]any{
		"listing":   listingID,
		"check_in":  in,
		"check_out": out,
		"guests":    2,
	}, guest.Token)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](s.t, w)
}

func TestListings_AnonymousCanReadButNotWrite(t *testing.T) {
	s := setupServer(t)

	w := s.do(http.MethodGet, "/api/listings/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/listings/", map[string]any{"title": "Nope", "price_per_night": 10}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))
}

func TestListings_OwnerIsCreatorRegardlessOfBody(t *testing.T) {
	s := setupServer(t)
	alice := s.register("alice")
	bob := s.register("bob")

	l := s.createListing(alice, "Sunny Flat", map[string]any{"owner": bob.ID, "owner_id": bob.ID})

	assert.EqualValues(t, alice.ID, l["owner"])
	assert.Equal(t, "sunny-flat", l["slug"])
}

func TestListings_SlugDerivationAndConflicts(t *testing.T) {
	s := setupServer(t)
	alice := s.register("alice")

	first := s.createListing(alice, "Sea View", nil)
	second := s.createListing(alice, "Sea View", nil)
	assert.Equal(t, "sea-view", first["slug"])
	assert.Equal(t, "sea-view-2", second["slug"])

	w := s.do(http.MethodPost, "/api/listings/", map[string]any{
		"slug": "sea-view", "title": "Other", "price_per_night": 10,
	}, alice.Token)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListings_RetrieveIsDetailedAndAcceptsID(t *testing.T) {
	s := setupServer(t)
	alice := s.register("alice")
	l := s.createListing(alice, "Old Mill", map[string]any{"description": "stone walls"})

	_, hasDescription := l["description"]
	assert.False(t, hasDescription, "create renders the summary")

	w := s.do(http.MethodGet, "/api/listings/old-mill/", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[map[string]any](t, w)
	assert.Equal(t, "stone walls", detail["description"])
	assert.Equal(t, "alice", detail["owner_username"])
	assert.EqualValues(t, 0, detail["review_count"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/listings/%v/", l["id"]), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "old-mill", decode[map[string]any](t, w)["slug"])

	w = s.do(http.MethodGet, "/api/listings/", nil, "")
	items := decode[page](t, w).Items
	require.Len(t, items, 1)
	_, hasDescription = items[0]["description"]
	assert.False(t, hasDescription, "list renders the summary")
}

func TestListings_StrangerCannotDelete(t *testing.T) {
	s := setupServer(t)
	alice := s.register("alice")
	bob := s.register("bob")
	s.createListing(alice, "Cabin", nil)

	w := s.do(http.MethodDelete, "/api/listings/cabin/", nil, bob.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, w))

	w = s.do(http.MethodDelete, "/api/listings/cabin/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/listings/cabin/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPatch, "/api/listings/cabin/", map[string]any{"price_per_night": 1}, bob.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/api/listings/cabin/", map[string]any{"price_per_night": 150}, alice.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 150, decode[map[string]any](t, w)["price_per_night"])

	w = s.do(http.MethodDelete, "/api/listings/cabin/", nil, alice.Token)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/api/listings/cabin/", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListings_Filters(t *testing.T) {
	s := setupServer(t)
	alice := s.register("alice")
	bob := s.register("bob")
	s.createListing(alice, "Cheap", map[string]any{"price_per_night": 40, "location": "Porto"})
	s.createListing(alice, "Pricey", map[string]any{"price_per_night": 400, "location": "Lisbon"})
	s.createListing(bob, "Mid", map[string]any{"price_per_night": 120, "location": "Lisbon"})

	total := func(query string) int64 {
		w := s.do(http.MethodGet, "/api/listings/"+query, nil, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode[page](t, w).Total
	}
	assert.EqualValues(t, 3, total(""))
	assert.EqualValues(t, 2, total("?location=lisbon"))
	assert.EqualValues(t, 2, total("?max_price=150"))
	assert.EqualValues(t, 1, total(fmt.Sprintf("?owner=%d", bob.ID)))

	w := s.do(http.MethodGet, "/api/listings/?max_price=cheap", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookings_ScopedToGuest(t *testing.T) {
	s := setupServer(t)
	alice := s.register("alice")
	bob := s.register("bob")
	l := s.createListing(alice, "Cabin", nil)

	b := s.createBooking(bob, l["id"], "2030-01-10", "2030-01-13")
	assert.EqualValues(t, bob.ID, b["guest"])
	assert.Equal(t, "pending", b["status"])
	assert.EqualValues(t, 300, b["total_price"])

	w := s.do(http.MethodGet, "/api/bookings/", nil, alice.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[page](t, w).Items)

	w = s.do(http.MethodGet, "/api/bookings/", nil, bob.Token)
	bobs := decode[page](t, w)
	require.Len(t, bobs.Items, 1)
	assert.EqualValues(t, bob.ID, bobs.Items[0]["guest"])

	path := fmt.Sprintf("/api/bookings/%v/", b["id"])
	w = s.do(http.MethodGet, path, nil, alice.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/bookings/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookings_ValidationAndOverlap(t *testing.T) {
	s := setupServer(t)
	alice := s.register("alice")
	bob := s.register("bob")
	carol := s.register("carol")
	l := s.createListing(alice, "Cabin", nil)

	w := s.do(http.MethodPost, "/api/bookings/", map[string]any{
		"listing": l["id"], "check_in": "2030-01-10", "check_out": "2030-01-09",
	}, bob.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/bookings/", map[string]any{
		"listing": 9999, "check_in": "2030-01-10", "check_out": "2030-01-12",
	}, bob.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.createBooking(bob, l["id"], "2030-01-10", "2030-01-13")
	w = s.do(http.MethodPost, "/api/bookings/", map[string]any{
		"listing": l["id"], "check_in": "2030-01-12", "check_out": "2030-01-15",
	}, carol.Token)
	assert.Equal(t, http.StatusConflict, w.Code)

	// back-to-back stays do not overlap
	s.createBooking(carol, l["id"], "2030-01-13", "2030-01-15")
}

func TestBookings_CancelLifecycle(t *testing.T) {
	s := setupServer(t)
	alice := s.register("alice")
	bob := s.register("bob")
	l := s.createListing(alice, "Cabin", nil)
	b := s.createBooking(bob, l["id"], "2030-02-01", "2030-02-03")
	path := fmt.Sprintf("/api/bookings/%v/", b["id"])

	// pending cannot be cancelled
	w := s.do(http.MethodPost, path+"cancel/", nil, bob.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Booking cannot be cancelled"}`, w.Body.String())
	w = s.do(http.MethodGet, path, nil, bob.Token)
	assert.Equal(t, "pending", decode[map[string]any](t, w)["status"])

	w = s.do(http.MethodPatch, path, map[string]any{"status": "confirmed"}, bob.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the listing owner cannot see the booking at all
	w = s.do(http.MethodPost, path+"cancel/", nil, alice.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, path+"cancel/", nil, bob.Token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"Booking cancelled"}`, w.Body.String())

	w = s.do(http.MethodGet, path, nil, bob.Token)
	got := decode[map[string]any](t, w)
	assert.Equal(t, "cancelled", got["status"])
	assert.NotNil(t, got["cancelled_at"])

	w = s.do(http.MethodPost, path+"cancel/", nil, bob.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Booking cannot be cancelled"}`, w.Body.String())

	w = s.do(http.MethodPatch, path, map[string]any{"status": "confirmed"}, bob.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodGet, path, nil, bob.Token)
	assert.Equal(t, "cancelled", decode[map[string]any](t, w)["status"])

	w = s.do(http.MethodGet, "/api/bookings/?status=cancelled", nil, bob.Token)
	assert.EqualValues(t, 1, decode[page](t, w).Total)

	w = s.do(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `booking_transitions_total{service="travel-test",status="cancelled"} 1`)
}

func TestBookings_StatusCannotBypassCancel(t *testing.T) {
	s := setupServer(t)
	alice := s.register("alice")
	bob := s.register("bob")
	l := s.createListing(alice, "Cabin", nil)
	b := s.createBooking(bob, l["id"], "2030-02-10", "2030-02-12")
	path := fmt.Sprintf("/api/bookings/%v/", b["id"])

	w := s.do(http.MethodPost, path+"cancel/", nil, bob.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, path, map[string]any{"status": "cancelled"}, bob.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))

	w = s.do(http.MethodPut, path, map[string]any{
		"check_in": "2030-02-10", "check_out": "2030-02-12", "guests": 2, "status": "cancelled",
	}, bob.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, path, nil, bob.Token)
	got := decode[map[string]any](t, w)
	assert.Equal(t, "pending", got["status"])
	assert.Nil(t, got["cancelled_at"])
}

func TestBookings_UpdateAndDelete(t *testing.T) {
	s := setupServer(t)
	alice := s.register("alice")
	bob := s.register("bob")
	l := s.createListing(alice, "Cabin", nil)
	b := s.createBooking(bob, l["id"], "2030-03-01", "2030-03-02")
	path := fmt.Sprintf("/api/bookings/%v/", b["id"])

	w := s.do(http.MethodPut, path, map[string]any{
		"check_in": "2030-03-01", "check_out": "2030-03-05", "guests": 3,
	}, bob.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[map[string]any](t, w)
	assert.EqualValues(t, 400, got["total_price"])
	assert.EqualValues(t, 3, got["guests"])

	w = s.do(http.MethodPatch, path, map[string]any{"status": "done"}, bob.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, path, nil, alice.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, path, nil, bob.Token)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, path, nil, bob.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviews_NestedUnderListing(t *testing.T) {
	s := setupServer(t)
	alice := s.register("alice")
	bob := s.register("bob")
	cabin := s.createListing(alice, "Cabin", nil)
	loft := s.createListing(alice, "Loft", nil)

	w := s.do(http.MethodPost, "/api/listings/cabin/reviews/", map[string]any{
		"rating": 5, "comment": "great", "author": alice.ID, "listing": loft["id"],
	}, bob.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	r := decode[map[string]any](t, w)
	assert.EqualValues(t, cabin["id"], r["listing"])
	assert.EqualValues(t, bob.ID, r["author"])

	w = s.do(http.MethodPost, "/api/listings/cabin/reviews/", map[string]any{"rating": 4}, bob.Token)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/listings/cabin/reviews/", map[string]any{"rating": 4}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	w = s.do(http.MethodPost, "/api/listings/cabin/reviews/", map[string]any{"rating": 9}, alice.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/listings/cabin/reviews/", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[page](t, w).Total)

	w = s.do(http.MethodGet, "/api/listings/loft/reviews/", nil, "")
	assert.EqualValues(t, 0, decode[page](t, w).Total)

	w = s.do(http.MethodGet, "/api/listings/atlantis/reviews/", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	cabinReview := fmt.Sprintf("/api/listings/cabin/reviews/%v/", r["id"])
	w = s.do(http.MethodGet, fmt.Sprintf("/api/listings/loft/reviews/%v/", r["id"]), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPatch, cabinReview, map[string]any{"rating": 1}, alice.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, cabinReview, map[string]any{"rating": 1}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPatch, cabinReview, map[string]any{"rating": 4}, bob.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 4, decode[map[string]any](t, w)["rating"])

	w = s.do(http.MethodGet, "/api/listings/cabin/", nil, "")
	detail := decode[map[string]any](t, w)
	assert.EqualValues(t, 1, detail["review_count"])
	assert.EqualValues(t, 4, detail["average_rating"])

	w = s.do(http.MethodDelete, cabinReview, nil, bob.Token)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUsers_RequireAuthentication(t *testing.T) {
	s := setupServer(t)

	w := s.do(http.MethodGet, "/api/users/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	alice := s.register("alice")
	w = s.do(http.MethodGet, "/api/users/", nil, alice.Token)
	require.Equal(t, http.StatusOK, w.Code)
	users := decode[page](t, w)
	require.Len(t, users.Items, 1)
	_, leaked := users.Items[0]["password_hash"]
	assert.False(t, leaked)

	w = s.do(http.MethodPost, "/api/users/", map[string]any{"username": "eve", "password": "password-eve"}, alice.Token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	eve := decode[map[string]any](t, w)

	w = s.do(http.MethodPost, "/api-auth/login/", map[string]any{"username": "eve", "password": "password-eve"}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPatch, fmt.Sprintf("/api/users/%v/", eve["id"]), map[string]any{"first_name": "Eve"}, alice.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Eve", decode[map[string]any](t, w)["first_name"])

	w = s.do(http.MethodPost, "/api/users/", map[string]any{"username": "eve", "password": "password-eve"}, alice.Token)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuth_Endpoints(t *testing.T) {
	s := setupServer(t)
	alice := s.register("alice")

	w := s.do(http.MethodGet, "/api-auth/login/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api-auth/login/", map[string]any{"username": "alice", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api-auth/login/", map[string]any{"username": "alice", "password": "password-alice"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api-auth/me/", nil, alice.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decode[map[string]any](t, w)["username"])

	w = s.do(http.MethodGet, "/api-auth/me/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/listings/", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, w))

	w = s.do(http.MethodPost, "/api-auth/logout/", nil, alice.Token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api-auth/register/", map[string]any{"username": "alice", "password": "another-pass"}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuth_DeletedUserTokenIsRejected(t *testing.T) {
	s := setupServer(t)
	alice := s.register("alice")
	bob := s.register("bob")

	w := s.do(http.MethodDelete, fmt.Sprintf("/api/users/%d/", alice.ID), nil, bob.Token)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/listings/", map[string]any{
		"title": "Orphan", "location": "Nowhere", "price_per_night": 10, "max_guests": 1,
	}, alice.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, w))

	w = s.do(http.MethodGet, "/api-auth/me/", nil, alice.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/listings/", nil, bob.Token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth(t *testing.T) {
	s := setupServer(t)

	w := s.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
