package errors

import (
	"github.com/sirupsen/logrus"
)

// FieldsFor renders an error into structured log fields, unpacking AppError
// code, retryability and context when present.
func FieldsFor(err error) logrus.Fields {
	fields := logrus.Fields{}
	appErr, ok := err.(*AppError)
	if !ok {
		return fields
	}
	fields["error_code"] = appErr.Code
	fields["retryable"] = appErr.Retryable
	for k, v := range appErr.Context {
		fields[k] = v
	}
	return fields
}

// LogError logs err at error level with its structured context attached.
func LogError(logger *logrus.Logger, err error, message string) {
	logger.WithError(err).WithFields(FieldsFor(err)).Error(message)
}

// LogRetryableError logs retryable errors at warn level and everything else
// at error level, so transient cache hiccups don't page anyone.
func LogRetryableError(logger *logrus.Logger, err error, message string) {
	entry := logger.WithError(err).WithFields(FieldsFor(err))
	if IsRetryable(err) {
		entry.Warn(message)
	} else {
		entry.Error(message)
	}
}
