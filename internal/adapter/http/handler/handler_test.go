package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledgerbook/internal/adapter/http/middleware"
	"ledgerbook/internal/core/domain"
	"ledgerbook/internal/core/ports"
	"ledgerbook/internal/core/ports/mocks"
	"ledgerbook/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testContext builds a gin context for calling a handler directly. A
// non-nil userID stands in for JWTAuth.
func testContext(method, target, body string, userID *uuid.UUID, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	if userID != nil {
		c.Set(middleware.CtxUserID, *userID)
	}
	c.Params = params
	return c, w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["data"]
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	code, _ := resp["error_code"].(string)
	return code
}

// --- Auth Handler Tests ---

func TestRegister_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	email := "alice@example.com"
	userID := uuid.New()
	mockAuth.EXPECT().Register(gomock.Any(), ports.RegisterRequest{
		Name:       "Alice",
		Identifier: "alice@example.com",
		Password:   "secret123",
	}).Return(&ports.AuthResult{
		User:      &domain.User{ID: userID, Name: "Alice", Email: &email},
		Token:     "jwt-token",
		ExpiresAt: time.Unix(1700000000, 0),
	}, nil)

	c, w := testContext(http.MethodPost, "/api/v1/auth/register",
		`{"name":" Alice ","identifier":"alice@example.com","password":"secret123"}`, nil)
	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w).(map[string]interface{})
	assert.Equal(t, "jwt-token", data["token"])
	assert.Equal(t, float64(1700000000), data["expiry"])
	user := data["user"].(map[string]interface{})
	assert.Equal(t, userID.String(), user["id"])
	assert.Equal(t, email, user["email"])
	assert.NotContains(t, user, "phone")
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRegister_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewAuthHandler(mocks.NewMockAuthService(ctrl))

	c, w := testContext(http.MethodPost, "/", `{}`, nil)
	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeValidation, decodeErrorCode(t, w))
}

func TestRegister_IdentifierTaken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)
	mockAuth.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrIdentifierExists())

	c, w := testContext(http.MethodPost, "/", `{"name":"Bob","identifier":"5550100","password":"secret123"}`, nil)
	h.Register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	phone := "5550100"
	mockAuth.EXPECT().Login(gomock.Any(), "5550100", "secret123").Return(&ports.AuthResult{
		User:      &domain.User{ID: uuid.New(), Name: "Bob", Phone: &phone},
		Token:     "jwt-token-123",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)

	c, w := testContext(http.MethodPost, "/", `{"identifier":"5550100","password":"secret123"}`, nil)
	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w).(map[string]interface{})
	assert.Equal(t, "jwt-token-123", data["token"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)
	mockAuth.EXPECT().Login(gomock.Any(), "bad", "bad").Return(nil, apperror.ErrInvalidCredentials())

	c, w := testContext(http.MethodPost, "/", `{"identifier":"bad","password":"bad"}`, nil)
	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperror.CodeInvalidCredentials, decodeErrorCode(t, w))
}

// --- Customer Handler Tests ---

func TestCustomerList_Unauthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewCustomerHandler(mocks.NewMockCustomerService(ctrl))
	c, w := testContext(http.MethodGet, "/", "", nil)
	h.List(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCustomerCreate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockCustomerService(ctrl)
	h := NewCustomerHandler(mockSvc)
	userID := uuid.New()

	created := &domain.Customer{ID: uuid.New(), UserID: userID, Name: "Bob", Phone: "5550100"}
	mockSvc.EXPECT().Create(gomock.Any(), userID, "Bob", "5550100").Return(created, nil)

	c, w := testContext(http.MethodPost, "/", `{"name":"  Bob ","phone":"5550100"}`, &userID)
	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w).(map[string]interface{})
	assert.Equal(t, created.ID.String(), data["id"])
	assert.Equal(t, "0", data["balance"])
}

func TestCustomerCreate_Duplicate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockCustomerService(ctrl)
	h := NewCustomerHandler(mockSvc)
	userID := uuid.New()
	mockSvc.EXPECT().Create(gomock.Any(), userID, "bob", "").Return(nil, apperror.ErrDuplicateName())

	c, w := testContext(http.MethodPost, "/", `{"name":"bob"}`, &userID)
	h.Create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeDuplicateName, decodeErrorCode(t, w))
}

func TestCustomerUpdate_PartialFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockCustomerService(ctrl)
	h := NewCustomerHandler(mockSvc)
	userID, id := uuid.New(), uuid.New()

	mockSvc.EXPECT().Update(gomock.Any(), userID, id, gomock.Any()).DoAndReturn(
		func(ctx context.Context, userID, id uuid.UUID, req ports.CustomerUpdate) (*domain.Customer, error) {
			require.NotNil(t, req.Name)
			assert.Equal(t, "Robert", *req.Name)
			assert.Nil(t, req.Phone)
			return &domain.Customer{ID: id, UserID: userID, Name: "Robert"}, nil
		},
	)

	c, w := testContext(http.MethodPut, "/", `{"name":"Robert"}`, &userID, gin.Param{Key: "id", Value: id.String()})
	h.Update(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCustomerUpdate_MalformedID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewCustomerHandler(mocks.NewMockCustomerService(ctrl))
	userID := uuid.New()

	c, w := testContext(http.MethodPut, "/", `{"name":"x"}`, &userID, gin.Param{Key: "id", Value: "42"})
	h.Update(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCustomerDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockCustomerService(ctrl)
	h := NewCustomerHandler(mockSvc)
	userID, id := uuid.New(), uuid.New()
	mockSvc.EXPECT().Delete(gomock.Any(), userID, id).Return(apperror.ErrNotFound("customer"))

	c, w := testContext(http.MethodDelete, "/", "", &userID, gin.Param{Key: "id", Value: id.String()})
	h.Delete(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCustomerBackfill(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockCustomerService(ctrl)
	h := NewCustomerHandler(mockSvc)
	userID := uuid.New()
	mockSvc.EXPECT().Backfill(gomock.Any(), userID).Return(&domain.BackfillReport{
		UserID: userID, CustomersCreated: 2, TransactionsLinked: 5, BalancesRecomputed: 3,
	}, nil)

	c, w := testContext(http.MethodPost, "/", "", &userID)
	h.Backfill(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w).(map[string]interface{})
	assert.Equal(t, float64(2), data["customers_created"])
	assert.Equal(t, float64(5), data["transactions_linked"])
}

// --- Transaction Handler Tests ---

func TestTransactionCreate_ByCustomerID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	h := NewTransactionHandler(mockSvc)
	userID, customerID := uuid.New(), uuid.New()

	mockSvc.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req ports.CreateTransactionRequest) (*domain.Transaction, error) {
			assert.Equal(t, userID, req.UserID)
			require.NotNil(t, req.Customer.ID)
			assert.Equal(t, customerID, *req.Customer.ID)
			require.NotNil(t, req.Amount)
			assert.True(t, req.Amount.Equal(decimal.RequireFromString("100.50")))
			require.NotNil(t, req.Type)
			assert.Equal(t, domain.TransactionTypeCredit, *req.Type)
			require.NotNil(t, req.Date)
			assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), *req.Date)
			assert.Equal(t, "rent", req.Note)
			return &domain.Transaction{ID: uuid.New(), UserID: userID, CustomerID: &customerID,
				CustomerName: "Alice", Amount: *req.Amount, Type: *req.Type, Date: *req.Date}, nil
		},
	)

	body := `{"customer_id":"` + customerID.String() + `","amount":"100.50","type":"credit","note":"rent","date":"2024-02-01"}`
	c, w := testContext(http.MethodPost, "/", body, &userID)
	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w).(map[string]interface{})
	assert.Equal(t, "Alice", data["customer_name"])
	assert.Equal(t, "100.5", data["amount"])
}

func TestTransactionCreate_AbsentAmountReachesService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	h := NewTransactionHandler(mockSvc)
	userID := uuid.New()

	mockSvc.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req ports.CreateTransactionRequest) (*domain.Transaction, error) {
			assert.Nil(t, req.Amount)
			assert.Equal(t, "Alice", req.Customer.Name)
			assert.Nil(t, req.Customer.ID)
			return nil, apperror.Validation("amount is required")
		},
	)

	c, w := testContext(http.MethodPost, "/", `{"customer_name":"Alice","type":"debit"}`, &userID)
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeValidation, decodeErrorCode(t, w))
}

func TestTransactionCreate_BindingRejects(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTransactionHandler(mocks.NewMockLedgerService(ctrl))
	userID := uuid.New()

	for name, body := range map[string]string{
		"bad type":        `{"amount":"10","type":"refund"}`,
		"bad customer id": `{"amount":"10","type":"credit","customer_id":"nope"}`,
		"bad date":        `{"amount":"10","type":"credit","date":"31/12/2024"}`,
		"bad amount":      `{"amount":"ten","type":"credit"}`,
	} {
		t.Run(name, func(t *testing.T) {
			c, w := testContext(http.MethodPost, "/", body, &userID)
			h.Create(c)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestTransactionUpdate_PatchCarriesOnlySentFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	h := NewTransactionHandler(mockSvc)
	userID, id := uuid.New(), uuid.New()

	mockSvc.EXPECT().Update(gomock.Any(), userID, id, gomock.Any()).DoAndReturn(
		func(ctx context.Context, userID, id uuid.UUID, patch domain.TransactionPatch) (*domain.Transaction, error) {
			assert.Nil(t, patch.Amount)
			assert.Nil(t, patch.Type)
			assert.Nil(t, patch.Date)
			require.NotNil(t, patch.Note)
			assert.Equal(t, "", *patch.Note)
			return &domain.Transaction{ID: id, UserID: userID}, nil
		},
	)

	c, w := testContext(http.MethodPut, "/", `{"note":""}`, &userID, gin.Param{Key: "id", Value: id.String()})
	h.Update(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTransactionDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	h := NewTransactionHandler(mockSvc)
	userID, id := uuid.New(), uuid.New()
	mockSvc.EXPECT().Delete(gomock.Any(), userID, id).Return(nil)

	c, w := testContext(http.MethodDelete, "/", "", &userID, gin.Param{Key: "id", Value: id.String()})
	h.Delete(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w).(map[string]interface{})
	assert.Equal(t, "Transaction deleted", data["message"])
}

func TestTransactionList_DateRange(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	h := NewTransactionHandler(mockSvc)
	userID := uuid.New()

	mockSvc.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, f domain.TransactionFilter) ([]domain.Transaction, error) {
			assert.Equal(t, userID, f.UserID)
			require.NotNil(t, f.From)
			require.NotNil(t, f.To)
			assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *f.From)
			assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC), *f.To)
			return []domain.Transaction{}, nil
		},
	)

	c, w := testContext(http.MethodGet, "/api/v1/transactions?start_date=2024-01-01&end_date=2024-01-31", "", &userID)
	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, decodeData(t, w))
}

func TestTransactionSummary_BadDate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTransactionHandler(mocks.NewMockLedgerService(ctrl))
	userID := uuid.New()

	c, w := testContext(http.MethodGet, "/api/v1/transactions/summary?start_date=yesterday", "", &userID)
	h.Summary(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransactionSummary(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	h := NewTransactionHandler(mockSvc)
	userID := uuid.New()

	mockSvc.EXPECT().Summary(gomock.Any(), domain.TransactionFilter{UserID: userID}).Return([]domain.CustomerSummary{
		{CustomerName: domain.CashCustomerName, TotalAmount: decimal.NewFromInt(-5)},
	}, nil)

	c, w := testContext(http.MethodGet, "/api/v1/transactions/summary", "", &userID)
	h.Summary(c)

	assert.Equal(t, http.StatusOK, w.Code)
	rows := decodeData(t, w).([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, "Cash Transactions", rows[0].(map[string]interface{})["customer_name"])
}

func TestTransactionMonthlySummary(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	h := NewTransactionHandler(mockSvc)
	userID := uuid.New()

	mockSvc.EXPECT().MonthlySummary(gomock.Any(), userID).Return([]domain.MonthlySummary{
		{Year: 2024, Month: 1, Credit: decimal.NewFromInt(10), Debit: decimal.Zero},
	}, nil)

	c, w := testContext(http.MethodGet, "/", "", &userID)
	h.MonthlySummary(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTransactionCustomerView_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLedgerService(ctrl)
	h := NewTransactionHandler(mockSvc)
	userID := uuid.New()
	mockSvc.EXPECT().CustomerView(gomock.Any(), userID, "Ghost").Return(nil, apperror.ErrNotFound("customer"))

	c, w := testContext(http.MethodGet, "/", "", &userID, gin.Param{Key: "customerName", Value: "Ghost"})
	h.CustomerView(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Payment Handler Tests ---

func TestSend_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewPaymentHandler(mockWallet)
	sender, receiver := uuid.New(), uuid.New()
	paymentID := uuid.New()

	mockWallet.EXPECT().Transfer(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req ports.TransferRequest) (*domain.TransferResult, error) {
			assert.Equal(t, sender, req.SenderID)
			require.NotNil(t, req.ReceiverID)
			assert.Equal(t, receiver, *req.ReceiverID)
			assert.True(t, req.Amount.Equal(decimal.NewFromInt(25)))
			assert.Equal(t, "order-7", req.IdempotencyKey)
			assert.Equal(t, "lunch", req.Note)
			return &domain.TransferResult{
				NewBalance: decimal.NewFromInt(75),
				Payment: domain.Payment{ID: paymentID, SenderID: sender, ReceiverID: receiver,
					Amount: req.Amount, Status: domain.PaymentStatusCompleted, Note: "lunch", Date: time.Now()},
			}, nil
		},
	)

	c, w := testContext(http.MethodPost, "/", `{"receiver_id":"`+receiver.String()+`","amount":25,"note":"lunch"}`, &sender)
	c.Request.Header.Set(HeaderIdempotencyKey, "order-7")
	h.Send(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w).(map[string]interface{})
	assert.Equal(t, "75", data["new_balance"])
	payment := data["payment"].(map[string]interface{})
	assert.Equal(t, paymentID.String(), payment["id"])
	assert.Equal(t, "completed", payment["status"])
}

func TestSend_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewPaymentHandler(mockWallet)
	sender := uuid.New()

	t.Run("malformed receiver", func(t *testing.T) {
		c, w := testContext(http.MethodPost, "/", `{"receiver_id":"abc","amount":5}`, &sender)
		h.Send(c)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperror.CodeInvalidRequest, decodeErrorCode(t, w))
	})

	t.Run("insufficient balance", func(t *testing.T) {
		mockWallet.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientBalance())
		c, w := testContext(http.MethodPost, "/", `{"receiver_id":"`+uuid.NewString()+`","amount":50}`, &sender)
		h.Send(c)
		assert.Equal(t, http.StatusPaymentRequired, w.Code)
	})

	t.Run("store failure is opaque", func(t *testing.T) {
		mockWallet.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(nil, errors.New("conn reset"))
		c, w := testContext(http.MethodPost, "/", `{"receiver_id":"`+uuid.NewString()+`","amount":1}`, &sender)
		h.Send(c)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "conn reset")
	})
}

func TestHistory_Direction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewPaymentHandler(mockWallet)
	me, other := uuid.New(), uuid.New()

	mockWallet.EXPECT().History(gomock.Any(), me).Return([]domain.PaymentRecord{
		{Payment: domain.Payment{ID: uuid.New(), SenderID: me, ReceiverID: other, Amount: decimal.NewFromInt(5)},
			Sender: domain.PaymentParty{ID: me, Name: "Me"}, Receiver: domain.PaymentParty{ID: other, Name: "Other"}},
		{Payment: domain.Payment{ID: uuid.New(), SenderID: other, ReceiverID: me, Amount: decimal.NewFromInt(7)},
			Sender: domain.PaymentParty{ID: other, Name: "Other"}, Receiver: domain.PaymentParty{ID: me, Name: "Me"}},
	}, nil)

	c, w := testContext(http.MethodGet, "/", "", &me)
	h.History(c)

	assert.Equal(t, http.StatusOK, w.Code)
	rows := decodeData(t, w).([]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, "sent", rows[0].(map[string]interface{})["direction"])
	assert.Equal(t, "received", rows[1].(map[string]interface{})["direction"])
	assert.Equal(t, "Other", rows[1].(map[string]interface{})["sender"].(map[string]interface{})["name"])
}

func TestAddMoney(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewPaymentHandler(mockWallet)
	userID := uuid.New()

	mockWallet.EXPECT().Topup(gomock.Any(), userID, gomock.Any()).DoAndReturn(
		func(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
			assert.True(t, amount.Equal(decimal.RequireFromString("12.5")))
			return decimal.RequireFromString("112.5"), nil
		},
	)

	c, w := testContext(http.MethodPost, "/", `{"amount":"12.5"}`, &userID)
	h.AddMoney(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w).(map[string]interface{})
	assert.Equal(t, "112.5", data["new_balance"])
}

func TestBalanceAndUsers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewPaymentHandler(mockWallet)
	userID := uuid.New()

	mockWallet.EXPECT().Balance(gomock.Any(), userID).Return(decimal.NewFromInt(40), nil)
	c, w := testContext(http.MethodGet, "/", "", &userID)
	h.Balance(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "40", decodeData(t, w).(map[string]interface{})["balance"])

	mockWallet.EXPECT().Recipients(gomock.Any(), userID).Return([]domain.User{
		{ID: uuid.New(), Name: "Carol", PasswordHash: "$argon2id$secret"},
	}, nil)
	c, w = testContext(http.MethodGet, "/", "", &userID)
	h.Users(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "argon2id")
	assert.Len(t, decodeData(t, w).([]interface{}), 1)
}

// --- Health ---

type fakeChecker struct {
	name string
	err  error
}

func (f fakeChecker) Ping(context.Context) error { return f.err }
func (f fakeChecker) Name() string               { return f.name }

func TestHealthCheck(t *testing.T) {
	r := gin.New()
	r.GET("/ok", HealthCheck(fakeChecker{name: "memory"}))
	r.GET("/degraded", HealthCheck(fakeChecker{name: "postgres"}, fakeChecker{name: "redis", err: errors.New("refused")}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/degraded", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "refused")
}
