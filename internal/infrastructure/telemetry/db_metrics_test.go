package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewDBMetrics_NilMeter(t *testing.T) {
	m, err := NewDBMetrics(nil, DefaultDBMetricsConfig(), nil)
	assert.Nil(t, m)
	assert.True(t, errors.Is(err, ErrDBMeterNil))
}

func TestDBMetricsPlugin_RecordsQueries(t *testing.T) {
	reader, mp := newTestMeter(t)
	metrics, err := NewDBMetrics(mp.Meter("test"), DBMetricsConfig{Enabled: true, SlowQueryThreshold: time.Hour}, nil)
	require.NoError(t, err)

	db := openTestDB(t, NewDBMetricsPlugin(metrics, nil))
	require.NoError(t, db.Create(&ledgerRow{PaymentID: "pay_1"}).Error)
	require.NoError(t, db.Create(&ledgerRow{PaymentID: "pay_2"}).Error)
	var rows []ledgerRow
	require.NoError(t, db.Find(&rows).Error)

	got := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumValue(t, got["db_query_total"], AttrDBOperation.String("INSERT")))
	assert.Equal(t, int64(1), sumValue(t, got["db_query_total"], AttrDBOperation.String("SELECT")))
	_, slow := got["db_slow_query_total"]
	assert.False(t, slow)
}

func TestDBMetricsPlugin_TimesQueriesUnderTracing(t *testing.T) {
	useSpanRecorder(t)
	reader, mp := newTestMeter(t)
	metrics, err := NewDBMetrics(mp.Meter("test"), DBMetricsConfig{Enabled: true, SlowQueryThreshold: time.Nanosecond}, nil)
	require.NoError(t, err)

	db := openTestDB(t,
		NewDBTracingPlugin(DBTracingConfig{Enabled: true}, nil),
		NewDBMetricsPlugin(metrics, nil),
	)
	var rows []ledgerRow
	require.NoError(t, db.Find(&rows).Error)

	got := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumValue(t, got["db_slow_query_total"], AttrDBTable.String("ledger_rows")))
}

func TestDBMetricsPlugin_DisabledRegistersNothing(t *testing.T) {
	_, mp := newTestMeter(t)
	metrics, err := NewDBMetrics(mp.Meter("test"), DBMetricsConfig{Enabled: false}, nil)
	require.NoError(t, err)

	db := openTestDB(t, NewDBMetricsPlugin(metrics, nil))
	assert.Nil(t, db.Callback().Create().Get("db_metrics:after_create"))

	db = openTestDB(t, NewDBMetricsPlugin(nil, nil))
	assert.Nil(t, db.Callback().Create().Get("db_metrics:after_create"))
}

func TestDBMetrics_RecordQuery_SlowByTable(t *testing.T) {
	reader, mp := newTestMeter(t)
	metrics, err := NewDBMetrics(mp.Meter("test"), DBMetricsConfig{Enabled: true, SlowQueryThreshold: 10 * time.Millisecond}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordQuery(ctx, "select", "documents", 50*time.Millisecond)
	metrics.RecordQuery(ctx, "", "", 50*time.Millisecond)
	metrics.RecordQuery(ctx, "update", "plans", time.Millisecond)

	got := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumValue(t, got["db_slow_query_total"], AttrDBTable.String("documents")))
	assert.Equal(t, int64(1), sumValue(t, got["db_slow_query_total"], AttrDBTable.String("unknown")))
	assert.Equal(t, int64(1), sumValue(t, got["db_query_total"], AttrDBOperation.String("UNKNOWN")))
	assert.Equal(t, int64(0), sumValue(t, got["db_slow_query_total"], AttrDBTable.String("plans")))
}

func TestDBMetrics_PoolStats(t *testing.T) {
	reader, mp := newTestMeter(t)
	metrics, err := NewDBMetrics(mp.Meter("test"), DBMetricsConfig{Enabled: true, PoolStatsInterval: time.Hour}, nil)
	require.NoError(t, err)

	// no pool yet: returns without starting a goroutine
	metrics.StartPoolStatsCollection(context.Background())

	db := openTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)
	metrics.SetSQLDB(sqlDB)

	metrics.StartPoolStatsCollection(context.Background())
	require.Eventually(t, func() bool {
		var rm metricdata.ResourceMetrics
		if reader.Collect(context.Background(), &rm) != nil {
			return false
		}
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				if g, ok := m.Data.(metricdata.Gauge[int64]); ok && m.Name == "db_pool_connections_max" {
					return len(g.DataPoints) == 1 && g.DataPoints[0].Value == 4
				}
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	metrics.Stop()
	metrics.Stop()
}

func TestDetectOperationType(t *testing.T) {
	tests := map[string]string{
		"SELECT * FROM plans":                  "SELECT",
		"  insert into documents values (1)":   "INSERT",
		"UPDATE subscriptions SET plan_id=?":   "UPDATE",
		"delete from api_keys":                 "DELETE",
		"WITH x AS (SELECT 1) SELECT * FROM x": "SELECT",
		"PRAGMA foreign_keys = ON":             "OTHER",
		"":                                     "OTHER",
	}
	for query, want := range tests {
		assert.Equal(t, want, detectOperationType(query), query)
	}
}
