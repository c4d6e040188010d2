package gateway

import (
	"fmt"

	"github.com/rs/zerolog"

	"tradesim/internal/security"
)

// restyLogger routes resty's internal messages through zerolog.
type restyLogger struct {
	logger zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error().Msg(security.MaskSensitive(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn().Msg(security.MaskSensitive(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug().Msg(security.MaskSensitive(fmt.Sprintf(format, v...)))
}
