// Package clienttest runs an in-process stand-in for the marketplace REST API.
//
// It implements just enough of the auth and bookmark endpoints for the client,
// session and bookmark packages to be tested end to end.
package clienttest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/dealbook-dev/dealbook/internal/models"
)

// AccountNotActivated is the body fragment the backend sends for inactive accounts.
const AccountNotActivated = "Account not activated"

// User is an account known to the backend.
type User struct {
	ID         string
	Email      string
	FirstName  string
	LastName   string
	Inactive   bool
	Businesses []models.Business
	// Roles maps business ID to the user's role there.
	Roles map[string]string
}

type account struct {
	User
	passwordHash []byte
}

type bookmark struct {
	ID        string    `json:"_id"`
	User      string    `json:"user"`
	Deal      string    `json:"deal"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type tokenClaims struct {
	ID         string         `json:"id"`
	Email      string         `json:"email"`
	FirstName  string         `json:"firstName,omitempty"`
	LastName   string         `json:"lastName,omitempty"`
	Businesses []businessJSON `json:"businesses,omitempty"`
	jwt.RegisteredClaims
}

type businessJSON struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Backend is the fake API server.
type Backend struct {
	mu        sync.Mutex
	secret    []byte
	tokenTTL  time.Duration
	accounts  map[string]*account
	bookmarks map[string][]bookmark
	failures  map[string]int
	bulkCalls [][]string
	calls     map[string]int
	server    *httptest.Server
}

// New starts a backend that is shut down when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()

	gin.SetMode(gin.TestMode)

	b := &Backend{
		secret:    []byte("clienttest-secret"),
		tokenTTL:  time.Hour,
		accounts:  make(map[string]*account),
		bookmarks: make(map[string][]bookmark),
		failures:  make(map[string]int),
		calls:     make(map[string]int),
	}
	b.server = httptest.NewServer(b.router())
	t.Cleanup(b.server.Close)

	return b
}

// URL is the API root.
func (b *Backend) URL() string {
	return b.server.URL
}

// AddUser registers an account.
func (b *Backend) AddUser(t testing.TB, u User, password string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[strings.ToLower(u.Email)] = &account{User: u, passwordHash: hash}
}

// SetTokenTTL changes the lifetime of tokens issued by login.
func (b *Backend) SetTokenTTL(ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokenTTL = ttl
}

// IssueToken signs a token for a registered account with the given lifetime.
// A negative ttl yields an already expired token.
func (b *Backend) IssueToken(t testing.TB, email string, ttl time.Duration) string {
	t.Helper()

	b.mu.Lock()
	acc, ok := b.accounts[strings.ToLower(email)]
	b.mu.Unlock()
	if !ok {
		t.Fatalf("unknown account %s", email)
	}

	token, err := b.sign(acc.User, ttl)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

// SeedBookmark stores a bookmark for userID directly.
func (b *Backend) SeedBookmark(userID, dealID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addBookmarkLocked(userID, dealID)
}

// DealIDs returns the deals bookmarked by userID, in insertion order.
func (b *Backend) DealIDs(userID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.bookmarks[userID]))
	for _, bm := range b.bookmarks[userID] {
		ids = append(ids, bm.Deal)
	}
	return ids
}

// Fail makes route ("POST /bookmark-deal/bulk") answer with status until cleared with status 0.
func (b *Backend) Fail(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.failures, route)
		return
	}
	b.failures[route] = status
}

// BulkCalls returns the deal IDs submitted to each bulk request.
func (b *Backend) BulkCalls() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]string(nil), b.bulkCalls...)
}

// Calls returns how many requests hit route.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

func (b *Backend) sign(u User, ttl time.Duration) (string, error) {
	businesses := make([]businessJSON, 0, len(u.Businesses))
	for _, biz := range u.Businesses {
		businesses = append(businesses, businessJSON{ID: biz.ID, Name: biz.Name})
	}

	now := time.Now()
	claims := tokenClaims{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Businesses: businesses,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

func (b *Backend) addBookmarkLocked(userID, dealID string) bookmark {
	now := time.Now().UTC()
	bm := bookmark{ID: ulid.Make().String(), User: userID, Deal: dealID, CreatedAt: now, UpdatedAt: now}
	b.bookmarks[userID] = append(b.bookmarks[userID], bm)
	return bm
}

func (b *Backend) hasBookmarkLocked(userID, dealID string) bool {
	for _, bm := range b.bookmarks[userID] {
		if bm.Deal == dealID {
			return true
		}
	}
	return false
}

func (b *Backend) router() *gin.Engine {
	r := gin.New()
	r.Use(b.recordAndFail)

	r.POST("/auth/login", b.login)

	authed := r.Group("/", b.requireToken)
	authed.GET("/auth/role/:businessId", b.role)
	authed.GET("/bookmark-deal", b.listBookmarks)
	authed.POST("/bookmark-deal", b.createBookmark)
	authed.POST("/bookmark-deal/bulk", b.bulkCreateBookmarks)
	authed.DELETE("/bookmark-deal/:id", b.deleteBookmark)

	return r
}

func (b *Backend) recordAndFail(c *gin.Context) {
	route := c.Request.Method + " " + c.FullPath()

	b.mu.Lock()
	b.calls[route]++
	status, fail := b.failures[route]
	b.mu.Unlock()

	if fail {
		c.AbortWithStatusJSON(status, gin.H{"message": "injected failure"})
		return
	}
	c.Next()
}

func (b *Backend) requireToken(c *gin.Context) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing authorization header"})
		return
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return b.secret, nil
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
		return
	}

	c.Set("userID", claims.ID)
	c.Set("email", claims.Email)
	c.Next()
}

func (b *Backend) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	b.mu.Lock()
	acc, ok := b.accounts[strings.ToLower(req.Email)]
	ttl := b.tokenTTL
	b.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
		return
	}
	if acc.Inactive {
		c.JSON(http.StatusForbidden, gin.H{"message": AccountNotActivated + ". Please check your email."})
		return
	}

	token, err := b.sign(acc.User, ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accessToken": token})
}

func (b *Backend) role(c *gin.Context) {
	email := c.GetString("email")
	businessID := c.Param("businessId")

	b.mu.Lock()
	acc, ok := b.accounts[strings.ToLower(email)]
	b.mu.Unlock()

	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "User not found"})
		return
	}
	role, ok := acc.Roles[businessID]
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"message": "No role in business"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"role": role})
}

func (b *Backend) listBookmarks(c *gin.Context) {
	userID := c.GetString("userID")

	b.mu.Lock()
	list := append([]bookmark{}, b.bookmarks[userID]...)
	b.mu.Unlock()

	c.JSON(http.StatusOK, list)
}

func (b *Backend) createBookmark(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Deal string `json:"deal" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hasBookmarkLocked(userID, req.Deal) {
		c.JSON(http.StatusConflict, gin.H{"message": "Deal already bookmarked"})
		return
	}
	c.JSON(http.StatusCreated, b.addBookmarkLocked(userID, req.Deal))
}

func (b *Backend) bulkCreateBookmarks(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Deals []string `json:"deals" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.bulkCalls = append(b.bulkCalls, append([]string(nil), req.Deals...))

	created := make([]bookmark, 0, len(req.Deals))
	for _, dealID := range req.Deals {
		if b.hasBookmarkLocked(userID, dealID) {
			continue
		}
		created = append(created, b.addBookmarkLocked(userID, dealID))
	}
	c.JSON(http.StatusCreated, created)
}

func (b *Backend) deleteBookmark(c *gin.Context) {
	userID := c.GetString("userID")
	id := c.Param("id")

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.bookmarks[userID]
	for i, bm := range list {
		if bm.ID == id {
			b.bookmarks[userID] = append(list[:i:i], list[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"message": "Bookmark removed"})
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"message": "Bookmark not found"})
}
