package webapi_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	infracache "github.com/ineza/schoolpay/infra/cache"
	"github.com/ineza/schoolpay/infra/sms"
	"github.com/ineza/schoolpay/internal/fixtures"
	"github.com/ineza/schoolpay/pkg/app"
	"github.com/ineza/schoolpay/pkg/config"
	"github.com/ineza/schoolpay/pkg/domain/device"
	"github.com/ineza/schoolpay/pkg/domain/user"
	"github.com/ineza/schoolpay/webapi"
)

// APITestSuite runs the full HTTP stack against the in-memory unit of work.
type APITestSuite struct {
	suite.Suite

	uow      *fixtures.MemoryUoW
	app      *fiber.App
	schoolID uuid.UUID
	token    string
}

func (s *APITestSuite) SetupTest() {
	s.uow = fixtures.NewMemoryUoW()
	deps, _ := fixtures.Deps(s.T(), s.uow)
	deps.CardCache = infracache.NewMemoryCardStatusCache()
	deps.SMSGateway = sms.NewMockGateway()

	cfg := deps.Config
	cfg.Jwt = config.Jwt{Secret: "test-secret", Expiry: time.Hour}
	cfg.RateLimit = config.RateLimit{
		General: config.RateLimitTier{MaxRequests: 1000, Window: time.Minute},
		Auth:    config.RateLimitTier{MaxRequests: 1000, Window: time.Minute},
		Payment: config.RateLimitTier{MaxRequests: 1000, Window: time.Minute},
		Tap:     config.RateLimitTier{MaxRequests: 1000, Window: time.Minute},
	}

	a := app.New(deps)
	s.app = webapi.SetupApp(a)

	s.schoolID = uuid.New()
	_, err := a.AuthService.Register(s.T().Context(),
		"gs-kacyiru", "ops@gs-kacyiru.rw", "password123",
		user.RoleSchool, s.schoolID)
	s.Require().NoError(err)
	s.token = s.login("gs-kacyiru", "password123")
}

func (s *APITestSuite) makeRequest(method, target, body, token string) *http.Response {
	s.T().Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	return resp
}

// decodeData unmarshals the "data" member of the success envelope.
func (s *APITestSuite) decodeData(resp *http.Response, out any) {
	s.T().Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&envelope))
	s.Require().NoError(json.Unmarshal(envelope.Data, out))
}

func (s *APITestSuite) login(identity, password string) string {
	s.T().Helper()
	resp := s.makeRequest("POST", "/auth/login",
		`{"identity":"`+identity+`","password":"`+password+`"}`, "")
	defer resp.Body.Close() //nolint: errcheck
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	var data struct {
		Token string `json:"token"`
	}
	s.decodeData(resp, &data)
	s.Require().NotEmpty(data.Token)
	return data.Token
}

func (s *APITestSuite) TestHealthRoute() {
	resp := s.makeRequest("GET", "/", "", "")
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(fiber.StatusOK, resp.StatusCode)
}

func (s *APITestSuite) TestLogin_BadCredentials() {
	resp := s.makeRequest("POST", "/auth/login",
		`{"identity":"gs-kacyiru","password":"wrong"}`, "")
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(fiber.StatusUnauthorized, resp.StatusCode)
}

func (s *APITestSuite) TestStudents_RequireToken() {
	resp := s.makeRequest("GET", "/students", "", "")
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(fiber.StatusUnauthorized, resp.StatusCode)
}

func (s *APITestSuite) TestEnrollStudent() {
	resp := s.makeRequest("POST", "/students",
		`{"first_name":"Aline","last_name":"Uwase","parent_phone":"+250788123456","card_uid":"04:A3:2B:1C"}`,
		s.token)
	defer resp.Body.Close() //nolint: errcheck
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)

	var data struct {
		ID         string `json:"id"`
		CardUID    string `json:"card_uid"`
		CardStatus string `json:"card_status"`
	}
	s.decodeData(resp, &data)
	s.Equal("04:A3:2B:1C", data.CardUID)
	s.Equal("active", data.CardStatus)
}

func (s *APITestSuite) TestEnrollStudent_DuplicateCard() {
	body := `{"first_name":"Aline","last_name":"Uwase","card_uid":"04:A3:2B:1C"}`
	resp := s.makeRequest("POST", "/students", body, s.token)
	resp.Body.Close() //nolint: errcheck
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)

	resp = s.makeRequest("POST", "/students", body, s.token)
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(fiber.StatusConflict, resp.StatusCode)
}

func (s *APITestSuite) TestTapPurchase() {
	st := fixtures.SeedStudent(s.T(), s.uow, s.schoolID, "04:A3:2B:1C", "+250788000001")
	fixtures.SeedAccount(s.T(), s.uow, st.ID, 1000)
	m := fixtures.SeedMerchant(s.T(), s.uow, s.schoolID, "Canteen")
	fixtures.SeedDevice(s.T(), s.uow, s.schoolID, "POS-01", device.TypePOS, m.ID)

	resp := s.makeRequest("POST", "/tap",
		`{"card_uid":"04:A3:2B:1C","device_id":"POS-01","amount":300,"currency":"RWF"}`, "")
	defer resp.Body.Close() //nolint: errcheck
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)

	var data struct {
		Kind      string  `json:"kind"`
		Reference string  `json:"reference"`
		Balance   float64 `json:"balance"`
		SMSSent   bool    `json:"sms_sent"`
	}
	s.decodeData(resp, &data)
	s.Equal("payment", data.Kind)
	s.Contains(data.Reference, "TXN-PUR-")
	s.InDelta(700, data.Balance, 0.001)
	s.True(data.SMSSent)
}

func (s *APITestSuite) TestTapUnknownCardRejected() {
	m := fixtures.SeedMerchant(s.T(), s.uow, s.schoolID, "Canteen")
	fixtures.SeedDevice(s.T(), s.uow, s.schoolID, "POS-01", device.TypePOS, m.ID)

	resp := s.makeRequest("POST", "/tap",
		`{"card_uid":"FF:FF:FF:FF","device_id":"POS-01","amount":300,"currency":"RWF"}`, "")
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func (s *APITestSuite) TestTapAttendance() {
	st := fixtures.SeedStudent(s.T(), s.uow, s.schoolID, "04:A3:2B:1C", "+250788000001")
	fixtures.SeedDevice(s.T(), s.uow, s.schoolID, "GATE-01", device.TypeESP32, uuid.Nil)

	resp := s.makeRequest("POST", "/tap",
		`{"card_uid":"04:A3:2B:1C","device_id":"GATE-01"}`, "")
	defer resp.Body.Close() //nolint: errcheck
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)

	var data struct {
		Kind        string `json:"kind"`
		StudentName string `json:"student_name"`
		RecordID    string `json:"record_id"`
	}
	s.decodeData(resp, &data)
	s.Equal("attendance", data.Kind)
	s.Equal(st.FullName(), data.StudentName)
	s.NotEmpty(data.RecordID)
}

func (s *APITestSuite) TestTopUpAndBalance() {
	st := fixtures.SeedStudent(s.T(), s.uow, s.schoolID, "04:A3:2B:1C", "+250788000001")

	resp := s.makeRequest("POST", "/payments/topup",
		`{"student_id":"`+st.ID.String()+`","amount":5000,"currency":"RWF","description":"term 1"}`,
		s.token)
	resp.Body.Close() //nolint: errcheck
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)

	resp = s.makeRequest("GET", "/students/"+st.ID.String()+"/balance", "", s.token)
	defer resp.Body.Close() //nolint: errcheck
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)

	var data struct {
		Balance float64 `json:"balance"`
	}
	s.decodeData(resp, &data)
	s.InDelta(5000, data.Balance, 0.001)
}

func (s *APITestSuite) TestTransactionsCSVExport() {
	resp := s.makeRequest("GET", "/reports/transactions.csv", "", s.token)
	defer resp.Body.Close() //nolint: errcheck
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	s.Contains(resp.Header.Get("Content-Type"), "text/csv")

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Contains(string(body), "reference,type,status")
}

func (s *APITestSuite) TestHeartbeatIsOpen() {
	fixtures.SeedDevice(s.T(), s.uow, s.schoolID, "GATE-01", device.TypeESP32, uuid.Nil)

	resp := s.makeRequest("POST", "/devices/GATE-01/heartbeat",
		`{"status":"online"}`, "")
	defer resp.Body.Close() //nolint: errcheck
	s.Equal(fiber.StatusOK, resp.StatusCode)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
