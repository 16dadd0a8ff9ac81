package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"shoppingmart/internal/logger"
)

var fixed = Record{
	Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	Actor:     "42",
	Operation: "InsertProduct",
	Outcome:   "Product created: ID 7",
}

func redisValues(r Record) []interface{} {
	return []interface{}{
		"timestamp", r.Timestamp.Format(time.RFC3339Nano),
		"actor", r.Actor,
		"operation", r.Operation,
		"outcome", r.Outcome,
	}
}

func TestNewStampsUTC(t *testing.T) {
	r := New(ActorUnauthorized, "DeleteProduct", "Authentication failed")
	assert.Equal(t, time.UTC, r.Timestamp.Location())
	assert.Equal(t, "UNAUTHORIZED", r.Actor)
	assert.WithinDuration(t, time.Now(), r.Timestamp, time.Second)
}

func TestRedisSinkAppendsToStream(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sink := NewRedisSink(db, "audit:dll", 0)

	mock.ExpectXAdd(&redis.XAddArgs{Stream: "audit:dll", Values: redisValues(fixed)}).SetVal("1-0")

	sink.Emit(context.Background(), fixed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSinkTrimsStream(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sink := NewRedisSink(db, "audit:dll", 1000)

	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: "audit:dll",
		MaxLen: 1000,
		Approx: true,
		Values: redisValues(fixed),
	}).SetVal("1-0")

	sink.Emit(context.Background(), fixed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSinkFailureIsLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(zapcore.AddSync(&buf))
	defer logger.SetOutput(zapcore.AddSync(os.Stdout))

	db, mock := redismock.NewClientMock()
	sink := NewRedisSink(db, "audit:dll", 0)
	mock.ExpectXAdd(&redis.XAddArgs{Stream: "audit:dll", Values: redisValues(fixed)}).SetErr(errors.New("connection refused"))

	sink.Emit(context.Background(), fixed)

	assert.Contains(t, buf.String(), "audit sink write failed")
	assert.Contains(t, buf.String(), "connection refused")
}

type fakeKafkaWriter struct {
	msgs   []kafka.Message
	fail   bool
	closed bool
}

func (f *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.fail {
		return errors.New("broker down")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeKafkaWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaSinkPublishesJSON(t *testing.T) {
	fk := &fakeKafkaWriter{}
	sink := newKafkaSinkWith(fk)

	sink.Emit(context.Background(), fixed)
	require.NoError(t, sink.Close())

	require.Len(t, fk.msgs, 1)
	assert.Equal(t, "InsertProduct", string(fk.msgs[0].Key))
	var got Record
	require.NoError(t, json.Unmarshal(fk.msgs[0].Value, &got))
	assert.Equal(t, fixed, got)
	assert.True(t, fk.closed)
}

func TestKafkaSinkFlushesEachRecord(t *testing.T) {
	sink := NewKafkaSink([]string{" localhost:9092 ", ""}, "shoppingmart.audit")
	defer sink.Close()

	w, ok := sink.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, 1, w.BatchSize)
	assert.LessOrEqual(t, w.BatchTimeout, 10*time.Millisecond)
	assert.Equal(t, "localhost:9092", w.Addr.String())
	assert.Equal(t, "shoppingmart.audit", w.Topic)
}

func TestKafkaSinkFailureDoesNotPanic(t *testing.T) {
	sink := newKafkaSinkWith(&fakeKafkaWriter{fail: true})
	assert.NotPanics(t, func() { sink.Emit(context.Background(), fixed) })
}

type recordingSink struct{ got []Record }

func (r *recordingSink) Emit(_ context.Context, rec Record) { r.got = append(r.got, rec) }

func TestMultiFansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	Multi{a, Discard{}, b}.Emit(context.Background(), fixed)

	assert.Equal(t, []Record{fixed}, a.got)
	assert.Equal(t, []Record{fixed}, b.got)
}

func TestLogSinkWritesEntry(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(zapcore.AddSync(&buf))
	defer logger.SetOutput(zapcore.AddSync(os.Stdout))

	LogSink{}.Emit(context.Background(), fixed)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "audit", entry["message"])
	assert.Equal(t, "42", entry["actor"])
	assert.Equal(t, "InsertProduct", entry["operation"])
}
