package goroutine

import (
	"runtime/debug"

	"github.com/ignatzorin/localhelp-backend/internal/logger"
)

// Logger получает сообщения о перехваченных panic.
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler запускает фоновые горутины с перехватом panic.
// Рассылка уведомлений и подбор исполнителей идут в фоне, и паника
// там не должна ронять процесс целиком.
type RecoveryHandler struct {
	logger Logger
}

// NewRecoveryHandler создаёт обработчик с заданным логгером.
func NewRecoveryHandler(l Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: l}
}

// SafeGo запускает fn в горутине; panic логируется вместе со стеком.
func (rh *RecoveryHandler) SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				rh.logger.Errorf("goroutine: перехвачен panic: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// appLogger направляет сообщения в общий логгер приложения.
type appLogger struct{}

func (appLogger) Errorf(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

// DefaultRecoveryHandler пишет перехваченные panic в общий логгер.
var DefaultRecoveryHandler = NewRecoveryHandler(appLogger{})

// SafeGo запускает fn через DefaultRecoveryHandler.
func SafeGo(fn func()) {
	DefaultRecoveryHandler.SafeGo(fn)
}
