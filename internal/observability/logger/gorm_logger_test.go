package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func withObservedGlobal(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("select * from members"))
	assert.Equal(t, "UPDATE", operationFromSQL("WITH x AS (SELECT 1) UPDATE claims SET status = 'PAID'"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}

func TestTraceLogsErrorsAndSkipsNotFound(t *testing.T) {
	logs := withObservedGlobal(t)
	l := NewGormLogger(DefaultGormLoggerConfig())
	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), fc, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())

	l.Trace(context.Background(), time.Now(), fc, errors.New("boom"))
	entries := logs.TakeAll()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "SELECT", entries[0].ContextMap()["operation"])
	}
}

func TestTraceSlowQueryIsWarn(t *testing.T) {
	logs := withObservedGlobal(t)
	l := NewGormLogger(GormLoggerConfig{Level: gormlogger.Warn, SlowThreshold: time.Millisecond})

	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "UPDATE claims", 3 }, nil)

	entries := logs.TakeAll()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.EqualValues(t, 3, entries[0].ContextMap()["rows_affected"])
	}
}

func TestParamsFilterDropsValues(t *testing.T) {
	sql, params := NewGormLogger(DefaultGormLoggerConfig()).ParamsFilter(context.Background(), "SELECT ?", "12345678")
	assert.Equal(t, "SELECT ?", sql)
	assert.Nil(t, params)
}
