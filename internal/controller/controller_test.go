package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thailao_logistics/internal/controller"
	"thailao_logistics/internal/middleware"
	"thailao_logistics/internal/model"
	"thailao_logistics/internal/repository"
	"thailao_logistics/internal/router"
	"thailao_logistics/internal/service"
	"thailao_logistics/pkg/database"
)

const adminPassword = "admin-secret"

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// newTestServer 组装完整路由，sqlite 内存库 + 本地存储
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.InitDB(database.Options{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"}, model.AllModels()...)
	require.NoError(t, err)
	require.NoError(t, middleware.RegisterAuditCallbacks(db))
	t.Cleanup(func() { _ = database.Close(db) })

	storage, err := service.NewStorageService(&service.StorageConfig{
		Provider:  "local",
		BasePath:  t.TempDir(),
		PublicURL: "/uploads",
		MaxBytes:  1 << 20,
	})
	require.NoError(t, err)

	auth := middleware.NewAuthenticator(middleware.JWTConfig{SecretKey: "test-secret", TTL: time.Hour})
	shipments := repository.NewShipmentRepository(db)
	userSvc := service.NewUserService(repository.NewUserRepository(db), auth)
	shipmentSvc := service.NewShipmentService(repository.NewShipmentUnitOfWork(db))

	_, err = userSvc.EnsureBootstrapAdmin(context.Background(), service.BootstrapAdmin{Username: "admin", Password: adminPassword})
	require.NoError(t, err)

	ctl := &router.Controllers{
		Auth:     controller.NewAuthController(userSvc),
		User:     controller.NewUserController(userSvc),
		Customer: controller.NewCustomerController(service.NewCustomerService(repository.NewCustomerRepository(db))),
		Shipment: controller.NewShipmentController(shipmentSvc),
		Photo:    controller.NewPhotoController(service.NewPhotoService(shipments, repository.NewPhotoRepository(db), storage), storage),
		Tracking: controller.NewTrackingController(shipmentSvc),
		Setting:  controller.NewSettingController(service.NewSettingService(repository.NewSettingRepository(db))),
		Report:   controller.NewReportController(service.NewReportService(repository.NewReportRepository(db), shipments)),
	}

	engine := router.SetupRouter(ctl, router.Options{
		Auth:        auth,
		RateLimiter: middleware.NewMemoryRateLimiter(),
		LoginLimit:  middleware.LoginRateLimit,
		APILimit:    middleware.APIRateLimit,
	})
	return &testServer{t: t, engine: engine}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(s.t, w, &resp)
	require.NotEmpty(s.t, resp.Token)
	return resp.Token
}

// createUser 由 admin 创建用户并登录
func (s *testServer) createUser(adminToken, username string, role model.UserRole) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/users", adminToken, map[string]string{
		"username": username,
		"password": "secret123",
		"fullName": username + " Name",
		"role":     string(role),
	})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return s.login(username, "secret123")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/auth/me", "/api/shipments", "/api/customers", "/api/settings"} {
		w := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := s.do(http.MethodGet, "/api/shipments", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decode(t, w, nil)
	assert.False(t, env.Success)
	assert.Equal(t, "Invalid username or password", env.Error)

	w = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_RateLimited(t *testing.T) {
	s := newTestServer(t)
	body := map[string]string{"username": "admin", "password": "wrong"}

	for i := 0; i < middleware.LoginRateLimit.MaxRequests; i++ {
		w := s.do(http.MethodPost, "/api/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i+1)
	}

	w := s.do(http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "minute")

	// 正确密码同样被拦截
	w = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": adminPassword})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRoleGate(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminPassword)
	staff := s.createUser(admin, "staff1", model.RoleStaff)
	manager := s.createUser(admin, "manager1", model.RoleManager)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"staff reports", http.MethodGet, "/api/reports/daily", staff, http.StatusForbidden},
		{"staff cod report", http.MethodGet, "/api/reports/cod", staff, http.StatusForbidden},
		{"staff financial", http.MethodGet, "/api/dashboard/financial", staff, http.StatusForbidden},
		{"staff export", http.MethodGet, "/api/export/csv", staff, http.StatusForbidden},
		{"staff users", http.MethodGet, "/api/users", staff, http.StatusForbidden},
		{"staff dashboard", http.MethodGet, "/api/dashboard/stats", staff, http.StatusOK},
		{"staff settings read", http.MethodGet, "/api/settings", staff, http.StatusOK},
		{"manager reports", http.MethodGet, "/api/reports/daily", manager, http.StatusOK},
		{"manager users", http.MethodGet, "/api/users", manager, http.StatusOK},
		{"manager delete user", http.MethodDelete, "/api/users/1", manager, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(tc.method, tc.path, tc.token, nil)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}

	w := s.do(http.MethodPatch, "/api/settings", manager, map[string]string{"companyName": "X"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodPatch, "/api/settings", admin, map[string]string{"companyName": "X"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestShipmentFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminPassword)
	staff := s.createUser(admin, "staff1", model.RoleStaff)

	// 客户
	w := s.do(http.MethodPost, "/api/customers", staff, map[string]string{"name": "Somchai", "phone": "0812345678"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var customer model.Customer
	decode(t, w, &customer)
	assert.Equal(t, "TLL-0001", customer.Code)

	// 创建运单
	w = s.do(http.MethodPost, "/api/shipments", staff, map[string]interface{}{
		"direction":      "TH_TO_LA",
		"parcelType":     "PARCEL",
		"weight":         2.5,
		"receiverName":   "Khamla",
		"receiverPhone":  "02055551234",
		"crossBorderFee": 50000,
		"domesticFee":    20000,
		"codAmount":      150000,
		"customerId":     customer.ID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var shipment model.Shipment
	decode(t, w, &shipment)
	assert.True(t, strings.HasPrefix(shipment.CompanyTracking, "LA"))
	assert.Len(t, shipment.CompanyTracking, 12)
	assert.Equal(t, model.StatusCreated, shipment.CurrentStatus)
	assert.Equal(t, model.CodPending, shipment.CodStatus)

	base := "/api/shipments/" + itoa(shipment.ID)

	// CREATED -> RECEIVED_AT_ORIGIN -> IN_TRANSIT
	w = s.do(http.MethodPatch, base+"/status", staff, map[string]string{"status": "RECEIVED_AT_ORIGIN"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodPatch, base+"/status", staff, map[string]string{"status": "IN_TRANSIT", "location": "Nong Khai"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 倒退被拒绝，STAFF 不能强制
	w = s.do(http.MethodPatch, base+"/status", staff, map[string]string{"status": "RECEIVED_AT_ORIGIN"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPatch, base+"/status", staff, map[string]interface{}{"status": "RECEIVED_AT_ORIGIN", "force": true})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 未知状态
	w = s.do(http.MethodPatch, base+"/status", staff, map[string]string{"status": "LOST"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 末端：自提
	w = s.do(http.MethodPatch, base+"/lastmile", staff, map[string]string{"method": "PICKUP"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &shipment)
	assert.Equal(t, model.StatusReadyForPickup, shipment.CurrentStatus)

	// COD
	w = s.do(http.MethodPatch, base+"/cod", staff, map[string]string{"status": "COLLECTED"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodPatch, base+"/cod", staff, map[string]string{"status": "PENDING"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 公开查询不需要登录，且不含电话
	w = s.do(http.MethodGet, "/api/tracking/"+shipment.CompanyTracking, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "02055551234")
	var tracking struct {
		CurrentStatus string `json:"currentStatus"`
		Total         int64  `json:"total"`
		Events        []struct {
			Status string `json:"status"`
		} `json:"events"`
	}
	decode(t, w, &tracking)
	assert.Equal(t, "READY_FOR_PICKUP", tracking.CurrentStatus)
	assert.EqualValues(t, 70000, tracking.Total)
	assert.Len(t, tracking.Events, 4)

	w = s.do(http.MethodGet, "/api/tracking/LA0000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 详情
	w = s.do(http.MethodGet, base, staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail model.Shipment
	decode(t, w, &detail)
	assert.Len(t, detail.Events, 4)
	require.NotNil(t, detail.Customer)
	assert.Equal(t, "TLL-0001", detail.Customer.Code)

	// 列表过滤
	w = s.do(http.MethodGet, "/api/shipments?status=READY_FOR_PICKUP", staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total int64 `json:"total"`
	}
	decode(t, w, &list)
	assert.EqualValues(t, 1, list.Total)

	w = s.do(http.MethodGet, "/api/shipments?dateFrom=yesterday", staff, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 删除：STAFF 禁止，ADMIN 允许
	w = s.do(http.MethodDelete, base, staff, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodDelete, base, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, base, staff, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBatchUpdate(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminPassword)

	var ids []int64
	for i := 0; i < 3; i++ {
		w := s.do(http.MethodPost, "/api/shipments", admin, map[string]interface{}{
			"direction":      "LA_TO_TH",
			"parcelType":     "DOCUMENT",
			"weight":         0.5,
			"receiverName":   "Niran",
			"receiverPhone":  "0899999999",
			"crossBorderFee": 30000,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var sh model.Shipment
		decode(t, w, &sh)
		assert.True(t, strings.HasPrefix(sh.CompanyTracking, "TH"))
		ids = append(ids, sh.ID)
	}

	w := s.do(http.MethodPost, "/api/shipments/batch", admin, map[string]interface{}{
		"ids":    append(ids, 9999),
		"status": "RECEIVED_AT_ORIGIN",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Updated int `json:"updated"`
		Failed  int `json:"failed"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 3, resp.Updated)
	assert.Equal(t, 1, resp.Failed)

	w = s.do(http.MethodPost, "/api/shipments/batch", admin, map[string]interface{}{"ids": []int64{}, "status": "IN_TRANSIT"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadAndServe(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminPassword)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "label.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var uploaded struct {
		URL string `json:"url"`
	}
	decode(t, w, &uploaded)
	require.True(t, strings.HasPrefix(uploaded.URL, "/uploads/"))

	w = s.do(http.MethodGet, uploaded.URL, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "immutable")
	assert.Equal(t, pngBytes, w.Body.Bytes())

	w = s.do(http.MethodGet, "/uploads/missing.png", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "File not found", w.Body.String())

	// 创建运单时带上照片
	w = s.do(http.MethodPost, "/api/shipments", admin, map[string]interface{}{
		"direction":      "TH_TO_LA",
		"parcelType":     "FRAGILE",
		"weight":         1,
		"receiverName":   "Bounmy",
		"receiverPhone":  "02011112222",
		"crossBorderFee": 50000,
		"photos":         []string{uploaded.URL},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sh model.Shipment
	decode(t, w, &sh)

	w = s.do(http.MethodGet, "/api/shipments/"+itoa(sh.ID)+"/photos", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var photos []model.ShipmentPhoto
	decode(t, w, &photos)
	require.Len(t, photos, 1)
	assert.Equal(t, uploaded.URL, photos[0].URL)
	assert.Equal(t, model.PhotoReceived, photos[0].Type)
}

func TestUploadTooLarge(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminPassword)

	// 测试服务器上限 1 MiB
	big := append(append([]byte{}, pngBytes...), make([]byte, 1<<20)...)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "huge.png")
	require.NoError(t, err)
	_, err = part.Write(big)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "File too large")
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminPassword)

	w := s.do(http.MethodPost, "/api/shipments", admin, map[string]interface{}{
		"direction":      "TH_TO_LA",
		"parcelType":     "PACKAGE",
		"weight":         3,
		"receiverName":   "Vilay, Jr.",
		"receiverPhone":  "02033334444",
		"crossBorderFee": 50000,
		"domesticFee":    20000,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/export/csv", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Company Tracking,"))
	assert.Contains(t, lines[1], `"Vilay, Jr."`)
	assert.Contains(t, lines[1], "70000")

	// 参数错误时仍然返回 JSON
	w = s.do(http.MethodGet, "/api/export/csv?status=LOST", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/json"))
}

func TestUserManagement(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", adminPassword)
	manager := s.createUser(admin, "manager1", model.RoleManager)

	// MANAGER 不能创建 ADMIN
	w := s.do(http.MethodPost, "/api/users", manager, map[string]string{
		"username": "boss", "password": "secret123", "fullName": "Boss", "role": "ADMIN",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 重名
	w = s.do(http.MethodPost, "/api/users", admin, map[string]string{
		"username": "manager1", "password": "secret123", "fullName": "Dup",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 本人修改密码
	w = s.do(http.MethodGet, "/api/auth/me", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		ID int64 `json:"id"`
	}
	decode(t, w, &me)

	w = s.do(http.MethodPatch, "/api/users/"+itoa(me.ID)+"/password", manager, map[string]string{
		"currentPassword": "wrong", "newPassword": "newsecret1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPatch, "/api/users/"+itoa(me.ID)+"/password", manager, map[string]string{
		"currentPassword": "secret123", "newPassword": "newsecret1",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 密码超过 72 字节
	long := strings.Repeat("x", 80)
	w = s.do(http.MethodPost, "/api/users", admin, map[string]string{
		"username": "longpass", "password": long, "fullName": "Long",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	w = s.do(http.MethodPatch, "/api/users/"+itoa(me.ID)+"/password", manager, map[string]string{
		"currentPassword": "newsecret1", "newPassword": long,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	// ADMIN 不能删除自己
	w = s.do(http.MethodDelete, "/api/users/1", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodDelete, "/api/users/"+itoa(me.ID), admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
