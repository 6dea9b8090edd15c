package logging

import "github.com/ThreeDotsLabs/watermill"

// WatermillAdapter routes watermill's internal logs through Logger.
type WatermillAdapter struct {
	logger *Logger
	fields watermill.LogFields
}

func NewWatermillAdapter(logger *Logger) *WatermillAdapter {
	if logger == nil {
		logger = Default()
	}
	return &WatermillAdapter{logger: logger}
}

func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, a.args(fields, "error", err)...)
}

func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, a.args(fields)...)
}

func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, a.args(fields)...)
}

// Trace maps to debug; zap has no lower level.
func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, a.args(fields)...)
}

func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{
		logger: a.logger,
		fields: a.fields.Add(fields),
	}
}

func (a *WatermillAdapter) args(fields watermill.LogFields, extra ...any) []any {
	out := make([]any, 0, (len(a.fields)+len(fields))*2+len(extra))
	for k, v := range a.fields {
		out = append(out, k, v)
	}
	for k, v := range fields {
		out = append(out, k, v)
	}
	return append(out, extra...)
}
