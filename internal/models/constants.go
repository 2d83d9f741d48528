package models

// JobStatus константы статусов заданий
const (
	JobStatusOpen       = "open"
	JobStatusAccepted   = "accepted"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusCancelled  = "cancelled"
)

// PaymentStatus константы статусов платежей
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusCompleted  = "completed"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
	PaymentStatusDisputed   = "disputed"
)

// JobPaymentStatus статус оплаты самого задания
const (
	JobPaymentStatusUnpaid   = "unpaid"
	JobPaymentStatusPaid     = "paid"
	JobPaymentStatusReleased = "released"
	JobPaymentStatusRefunded = "refunded"
)

// ReviewStatus константы статусов модерации отзывов
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// AccountType константы типов аккаунтов
const (
	AccountTypeClient = "client"
	AccountTypeHelper = "helper"
	AccountTypeBoth   = "both"
)

// DisputeResolution варианты решения спора по платежу
const (
	DisputeResolutionRefundClient  = "refund_client"
	DisputeResolutionPayHelper     = "pay_helper"
	DisputeResolutionPartialRefund = "partial_refund"
)

// NotificationType типы уведомлений
const (
	NotificationTypeSystem  = "system"
	NotificationTypeJob     = "job"
	NotificationTypePayment = "payment"
	NotificationTypeReview  = "review"
)

// ValidJobStatuses список валидных статусов заданий
var ValidJobStatuses = map[string]struct{}{
	JobStatusOpen:       {},
	JobStatusAccepted:   {},
	JobStatusInProgress: {},
	JobStatusCompleted:  {},
	JobStatusCancelled:  {},
}

// ValidCurrencies список поддерживаемых валют
var ValidCurrencies = map[string]struct{}{
	"usd": {},
	"eur": {},
	"gbp": {},
	"cad": {},
	"aud": {},
}

// ValidReviewStatuses список валидных статусов отзывов
var ValidReviewStatuses = map[string]struct{}{
	ReviewStatusPending:  {},
	ReviewStatusApproved: {},
	ReviewStatusRejected: {},
}

// ValidAccountTypes список валидных типов аккаунтов
var ValidAccountTypes = map[string]struct{}{
	AccountTypeClient: {},
	AccountTypeHelper: {},
	AccountTypeBoth:   {},
}

// ValidDisputeResolutions список валидных решений спора
var ValidDisputeResolutions = map[string]struct{}{
	DisputeResolutionRefundClient:  {},
	DisputeResolutionPayHelper:     {},
	DisputeResolutionPartialRefund: {},
}
