package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/localhelp-backend/internal/gateway"
	"github.com/ignatzorin/localhelp-backend/internal/models"
	"github.com/ignatzorin/localhelp-backend/internal/repository"
)

type mockPaymentStore struct {
	mock.Mock
}

func (m *mockPaymentStore) Create(ctx context.Context, p *models.Payment) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil {
		p.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockPaymentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentStore) GetActiveByJobID(ctx context.Context, jobID uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *mockPaymentStore) TransitionStatus(ctx context.Context, paymentID uuid.UUID, to string, from ...string) error {
	args := m.Called(ctx, paymentID, to, from)
	return args.Error(0)
}

func (m *mockPaymentStore) MarkReleased(ctx context.Context, paymentID uuid.UUID, releaseDate time.Time) error {
	args := m.Called(ctx, paymentID, releaseDate)
	return args.Error(0)
}

func (m *mockPaymentStore) OpenDispute(ctx context.Context, paymentID uuid.UUID, reason, description string) error {
	args := m.Called(ctx, paymentID, reason, description)
	return args.Error(0)
}

func (m *mockPaymentStore) ResolveDispute(ctx context.Context, paymentID, resolvedBy uuid.UUID, resolution, finalStatus string) error {
	args := m.Called(ctx, paymentID, resolvedBy, resolution, finalStatus)
	return args.Error(0)
}

type mockJobStoreForPayments struct {
	mock.Mock
}

func (m *mockJobStoreForPayments) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *mockJobStoreForPayments) MarkPaid(ctx context.Context, jobID uuid.UUID) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *mockJobStoreForPayments) MarkReleased(ctx context.Context, jobID uuid.UUID) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *mockJobStoreForPayments) SetPaymentStatus(ctx context.Context, jobID uuid.UUID, paymentStatus string) error {
	args := m.Called(ctx, jobID, paymentStatus)
	return args.Error(0)
}

func (m *mockJobStoreForPayments) Cancel(ctx context.Context, jobID, cancelledBy uuid.UUID, reason string) error {
	args := m.Called(ctx, jobID, cancelledBy, reason)
	return args.Error(0)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*gateway.Intent, error) {
	args := m.Called(ctx, amount, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Intent), args.Error(1)
}

func (m *mockGateway) RetrieveIntent(ctx context.Context, intentID string) (string, error) {
	args := m.Called(ctx, intentID)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CreateTransfer(ctx context.Context, amount int64, currency, destination string, metadata map[string]string) (*gateway.Transfer, error) {
	args := m.Called(ctx, amount, currency, destination, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Transfer), args.Error(1)
}

func (m *mockGateway) Refund(ctx context.Context, intentID string) error {
	args := m.Called(ctx, intentID)
	return args.Error(0)
}

func newPaymentServiceForTest() (*PaymentService, *mockPaymentStore, *mockJobStoreForPayments, *mockUserStore, *mockGateway, *mockNotifier) {
	payments := new(mockPaymentStore)
	jobs := new(mockJobStoreForPayments)
	users := new(mockUserStore)
	gw := new(mockGateway)
	notifier := new(mockNotifier)
	svc := NewPaymentService(payments, jobs, users, gw, notifier, 5)
	return svc, payments, jobs, users, gw, notifier
}

func TestPaymentService_CreateIntent_Success(t *testing.T) {
	svc, payments, jobs, _, gw, _ := newPaymentServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	helperID := uuid.New()
	jobID := uuid.New()

	job := &models.Job{ID: jobID, CreatorID: clientID, AssignedTo: &helperID, Status: models.JobStatusAccepted}
	jobs.On("GetByID", ctx, jobID).Return(job, nil)
	payments.On("GetActiveByJobID", ctx, jobID).Return(nil, repository.ErrPaymentNotFound)
	gw.On("CreateIntent", ctx, int64(10000), "usd", mock.Anything).
		Return(&gateway.Intent{ID: "pi_123", ClientSecret: "pi_123_secret", Status: "requires_payment_method"}, nil)
	payments.On("Create", ctx, mock.AnythingOfType("*models.Payment")).Return(nil)

	payment, err := svc.CreateIntent(ctx, CreateIntentInput{
		JobID: jobID, ClientID: clientID, Amount: 10000, Currency: "usd",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(500), payment.PlatformFee)
	assert.Equal(t, int64(9500), payment.HelperAmount)
	assert.Equal(t, "pi_123", payment.GatewayIntentID)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
}

func TestPaymentService_CreateIntent_FeeRounding(t *testing.T) {
	svc, payments, jobs, _, gw, _ := newPaymentServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	helperID := uuid.New()
	jobID := uuid.New()

	job := &models.Job{ID: jobID, CreatorID: clientID, AssignedTo: &helperID, Status: models.JobStatusAccepted}
	jobs.On("GetByID", ctx, jobID).Return(job, nil)
	payments.On("GetActiveByJobID", ctx, jobID).Return(nil, repository.ErrPaymentNotFound)
	gw.On("CreateIntent", ctx, int64(999), "eur", mock.Anything).
		Return(&gateway.Intent{ID: "pi_999", ClientSecret: "s"}, nil)
	payments.On("Create", ctx, mock.AnythingOfType("*models.Payment")).Return(nil)

	// 5% от 999 = 49.95, округляется до 50.
	payment, err := svc.CreateIntent(ctx, CreateIntentInput{
		JobID: jobID, ClientID: clientID, Amount: 999, Currency: "eur",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(50), payment.PlatformFee)
	assert.Equal(t, int64(949), payment.HelperAmount)
}

func TestPaymentService_CreateIntent_Idempotent(t *testing.T) {
	svc, payments, jobs, _, gw, _ := newPaymentServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	helperID := uuid.New()
	jobID := uuid.New()

	job := &models.Job{ID: jobID, CreatorID: clientID, AssignedTo: &helperID, Status: models.JobStatusAccepted}
	existing := &models.Payment{ID: uuid.New(), JobID: jobID, Status: models.PaymentStatusPending}

	jobs.On("GetByID", ctx, jobID).Return(job, nil)
	payments.On("GetActiveByJobID", ctx, jobID).Return(existing, nil)

	payment, err := svc.CreateIntent(ctx, CreateIntentInput{
		JobID: jobID, ClientID: clientID, Amount: 10000, Currency: "usd",
	})

	assert.NoError(t, err)
	assert.Equal(t, existing.ID, payment.ID)
	gw.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_CreateIntent_WrongJobStatus(t *testing.T) {
	svc, _, jobs, _, _, _ := newPaymentServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	jobID := uuid.New()

	job := &models.Job{ID: jobID, CreatorID: clientID, Status: models.JobStatusOpen}
	jobs.On("GetByID", ctx, jobID).Return(job, nil)

	_, err := svc.CreateIntent(ctx, CreateIntentInput{
		JobID: jobID, ClientID: clientID, Amount: 10000, Currency: "usd",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "нельзя оплатить")
}

func TestPaymentService_CreateIntent_UnsupportedCurrency(t *testing.T) {
	svc, _, _, _, _, _ := newPaymentServiceForTest()
	ctx := context.Background()

	_, err := svc.CreateIntent(ctx, CreateIntentInput{
		JobID: uuid.New(), ClientID: uuid.New(), Amount: 10000, Currency: "rub",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "не поддерживается")
}

func TestPaymentService_CreateIntent_NotCreator(t *testing.T) {
	svc, _, jobs, _, _, _ := newPaymentServiceForTest()
	ctx := context.Background()

	jobID := uuid.New()
	job := &models.Job{ID: jobID, CreatorID: uuid.New(), Status: models.JobStatusAccepted}
	jobs.On("GetByID", ctx, jobID).Return(job, nil)

	_, err := svc.CreateIntent(ctx, CreateIntentInput{
		JobID: jobID, ClientID: uuid.New(), Amount: 10000, Currency: "usd",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "только его автор")
}

func TestPaymentService_Confirm_Succeeded(t *testing.T) {
	svc, payments, jobs, _, gw, notifier := newPaymentServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	helperID := uuid.New()
	jobID := uuid.New()
	paymentID := uuid.New()

	payment := &models.Payment{
		ID: paymentID, JobID: jobID, ClientID: clientID, HelperID: helperID,
		Status: models.PaymentStatusPending, GatewayIntentID: "pi_123",
	}

	payments.On("GetByID", ctx, paymentID).Return(payment, nil)
	gw.On("RetrieveIntent", ctx, "pi_123").Return(gateway.IntentStatusSucceeded, nil)
	payments.On("TransitionStatus", ctx, paymentID, models.PaymentStatusCompleted,
		[]string{models.PaymentStatusPending, models.PaymentStatusProcessing}).Return(nil)
	jobs.On("MarkPaid", ctx, jobID).Return(nil)
	notifier.On("NotifyAsync", helperID, models.NotificationTypePayment, mock.Anything, mock.Anything, mock.Anything).Return()

	_, err := svc.Confirm(ctx, paymentID, clientID)
	assert.NoError(t, err)
	jobs.AssertCalled(t, "MarkPaid", ctx, jobID)
}

func TestPaymentService_Confirm_Failed(t *testing.T) {
	svc, payments, jobs, _, gw, _ := newPaymentServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	paymentID := uuid.New()

	payment := &models.Payment{
		ID: paymentID, JobID: uuid.New(), ClientID: clientID, HelperID: uuid.New(),
		Status: models.PaymentStatusPending, GatewayIntentID: "pi_bad",
	}

	payments.On("GetByID", ctx, paymentID).Return(payment, nil)
	gw.On("RetrieveIntent", ctx, "pi_bad").Return(gateway.IntentStatusFailed, nil)
	payments.On("TransitionStatus", ctx, paymentID, models.PaymentStatusFailed,
		[]string{models.PaymentStatusPending, models.PaymentStatusProcessing}).Return(nil)

	_, err := svc.Confirm(ctx, paymentID, clientID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "отклонён")
	jobs.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
}

func TestPaymentService_Confirm_AlreadyCompleted(t *testing.T) {
	svc, payments, _, _, gw, _ := newPaymentServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	paymentID := uuid.New()

	payment := &models.Payment{
		ID: paymentID, ClientID: clientID, HelperID: uuid.New(),
		Status: models.PaymentStatusCompleted,
	}
	payments.On("GetByID", ctx, paymentID).Return(payment, nil)

	// Повторное подтверждение не должно трогать шлюз.
	_, err := svc.Confirm(ctx, paymentID, clientID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже в статусе")
	gw.AssertNotCalled(t, "RetrieveIntent", mock.Anything, mock.Anything)
}

func TestPaymentService_ReleaseEscrow_Success(t *testing.T) {
	svc, payments, jobs, users, gw, notifier := newPaymentServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	helperID := uuid.New()
	jobID := uuid.New()
	paymentID := uuid.New()
	payout := "acct_1"

	payment := &models.Payment{
		ID: paymentID, JobID: jobID, ClientID: clientID, HelperID: helperID,
		Amount: 10000, HelperAmount: 9500, Currency: "usd",
		Status: models.PaymentStatusCompleted, GatewayIntentID: "pi_123",
	}
	job := &models.Job{ID: jobID, CreatorID: clientID, AssignedTo: &helperID, Status: models.JobStatusCompleted}
	helper := &models.User{ID: helperID, PayoutAccount: &payout}

	payments.On("GetByID", ctx, paymentID).Return(payment, nil)
	jobs.On("GetByID", ctx, jobID).Return(job, nil)
	users.On("GetByID", ctx, helperID).Return(helper, nil)
	gw.On("CreateTransfer", ctx, int64(9500), "usd", payout, mock.Anything).
		Return(&gateway.Transfer{ID: "tr_1", Status: "paid"}, nil)
	payments.On("MarkReleased", ctx, paymentID, mock.AnythingOfType("time.Time")).Return(nil)
	jobs.On("MarkReleased", ctx, jobID).Return(nil)
	notifier.On("NotifyAsync", helperID, models.NotificationTypePayment, mock.Anything, mock.Anything, mock.Anything).Return()

	_, err := svc.ReleaseEscrow(ctx, paymentID, clientID)
	assert.NoError(t, err)
	gw.AssertCalled(t, "CreateTransfer", ctx, int64(9500), "usd", payout, mock.Anything)
}

func TestPaymentService_ReleaseEscrow_AlreadyReleased(t *testing.T) {
	svc, payments, _, _, gw, _ := newPaymentServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	paymentID := uuid.New()
	released := time.Now()

	payment := &models.Payment{
		ID: paymentID, ClientID: clientID, HelperID: uuid.New(),
		Status: models.PaymentStatusCompleted, ReleaseDate: &released,
	}
	payments.On("GetByID", ctx, paymentID).Return(payment, nil)

	_, err := svc.ReleaseEscrow(ctx, paymentID, clientID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже выплачены")
	gw.AssertNotCalled(t, "CreateTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_ReleaseEscrow_Disputed(t *testing.T) {
	svc, payments, _, _, _, _ := newPaymentServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	paymentID := uuid.New()

	payment := &models.Payment{
		ID: paymentID, ClientID: clientID, HelperID: uuid.New(),
		Status: models.PaymentStatusCompleted, IsDisputed: true,
	}
	payments.On("GetByID", ctx, paymentID).Return(payment, nil)

	_, err := svc.ReleaseEscrow(ctx, paymentID, clientID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "спор")
}

func TestPaymentService_OpenDispute_Success(t *testing.T) {
	svc, payments, _, _, _, notifier := newPaymentServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	helperID := uuid.New()
	paymentID := uuid.New()

	payment := &models.Payment{
		ID: paymentID, JobID: uuid.New(), ClientID: clientID, HelperID: helperID,
		Status: models.PaymentStatusCompleted,
	}

	payments.On("GetByID", ctx, paymentID).Return(payment, nil)
	payments.On("OpenDispute", ctx, paymentID, "работа не выполнена", "описание").Return(nil)
	notifier.On("NotifyAsync", helperID, models.NotificationTypePayment, mock.Anything, mock.Anything, mock.Anything).Return()

	_, err := svc.OpenDispute(ctx, paymentID, clientID, "работа не выполнена", "описание")
	assert.NoError(t, err)
}

func TestPaymentService_OpenDispute_Duplicate(t *testing.T) {
	svc, payments, _, _, _, _ := newPaymentServiceForTest()
	ctx := context.Background()

	clientID := uuid.New()
	paymentID := uuid.New()

	payment := &models.Payment{
		ID: paymentID, ClientID: clientID, HelperID: uuid.New(),
		Status: models.PaymentStatusCompleted,
	}

	payments.On("GetByID", ctx, paymentID).Return(payment, nil)
	payments.On("OpenDispute", ctx, paymentID, "причина", "").Return(repository.ErrPaymentStateConflict)

	_, err := svc.OpenDispute(ctx, paymentID, clientID, "причина", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже открыт")
}

func TestPaymentService_ResolveDispute_PartialRefundUnsupported(t *testing.T) {
	svc, _, _, users, _, _ := newPaymentServiceForTest()
	ctx := context.Background()

	adminID := uuid.New()
	users.On("GetByID", ctx, adminID).Return(&models.User{ID: adminID, IsAdmin: true}, nil)

	_, err := svc.ResolveDispute(ctx, uuid.New(), adminID, models.DisputeResolutionPartialRefund)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "не поддерживается")
}

func TestPaymentService_ResolveDispute_NotAdmin(t *testing.T) {
	svc, _, _, users, _, _ := newPaymentServiceForTest()
	ctx := context.Background()

	userID := uuid.New()
	users.On("GetByID", ctx, userID).Return(&models.User{ID: userID, IsAdmin: false}, nil)

	_, err := svc.ResolveDispute(ctx, uuid.New(), userID, models.DisputeResolutionRefundClient)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "администратор")
}

func TestPaymentService_ResolveDispute_RefundClient(t *testing.T) {
	svc, payments, jobs, users, gw, notifier := newPaymentServiceForTest()
	ctx := context.Background()

	adminID := uuid.New()
	clientID := uuid.New()
	helperID := uuid.New()
	jobID := uuid.New()
	paymentID := uuid.New()

	payment := &models.Payment{
		ID: paymentID, JobID: jobID, ClientID: clientID, HelperID: helperID,
		Status: models.PaymentStatusDisputed, IsDisputed: true, GatewayIntentID: "pi_123",
	}

	users.On("GetByID", ctx, adminID).Return(&models.User{ID: adminID, IsAdmin: true}, nil)
	payments.On("GetByID", ctx, paymentID).Return(payment, nil)
	gw.On("Refund", ctx, "pi_123").Return(nil)
	payments.On("ResolveDispute", ctx, paymentID, adminID, models.DisputeResolutionRefundClient, models.PaymentStatusRefunded).Return(nil)
	jobs.On("SetPaymentStatus", ctx, jobID, models.JobPaymentStatusRefunded).Return(nil)
	jobs.On("Cancel", ctx, jobID, adminID, mock.Anything).Return(nil)
	notifier.On("NotifyAsync", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()

	_, err := svc.ResolveDispute(ctx, paymentID, adminID, models.DisputeResolutionRefundClient)
	assert.NoError(t, err)
	gw.AssertCalled(t, "Refund", ctx, "pi_123")
	jobs.AssertCalled(t, "Cancel", ctx, jobID, adminID, mock.Anything)
}

func TestPaymentService_ResolveDispute_PayHelper(t *testing.T) {
	svc, payments, jobs, users, gw, notifier := newPaymentServiceForTest()
	ctx := context.Background()

	adminID := uuid.New()
	helperID := uuid.New()
	jobID := uuid.New()
	paymentID := uuid.New()
	payout := "acct_2"

	payment := &models.Payment{
		ID: paymentID, JobID: jobID, ClientID: uuid.New(), HelperID: helperID,
		HelperAmount: 4750, Currency: "usd",
		Status: models.PaymentStatusDisputed, IsDisputed: true, GatewayIntentID: "pi_77",
	}

	users.On("GetByID", ctx, adminID).Return(&models.User{ID: adminID, IsAdmin: true}, nil)
	payments.On("GetByID", ctx, paymentID).Return(payment, nil)
	users.On("GetByID", ctx, helperID).Return(&models.User{ID: helperID, PayoutAccount: &payout}, nil)
	gw.On("CreateTransfer", ctx, int64(4750), "usd", payout, mock.Anything).
		Return(&gateway.Transfer{ID: "tr_2"}, nil)
	payments.On("ResolveDispute", ctx, paymentID, adminID, models.DisputeResolutionPayHelper, models.PaymentStatusCompleted).Return(nil)
	payments.On("MarkReleased", ctx, paymentID, mock.AnythingOfType("time.Time")).Return(nil)
	jobs.On("MarkReleased", ctx, jobID).Return(nil)
	notifier.On("NotifyAsync", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()

	_, err := svc.ResolveDispute(ctx, paymentID, adminID, models.DisputeResolutionPayHelper)
	assert.NoError(t, err)
	gw.AssertCalled(t, "CreateTransfer", ctx, int64(4750), "usd", payout, mock.Anything)
}
